// Package assembler concatenates single page PDFs into one document.
package assembler

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// keeps pdfcpu from creating a configuration directory in the user's home
	model.ConfigPath = "disable"
}

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

const outputMode os.FileMode = 0644

// Document collects page PDFs in the order they are appended.
type Document struct {
	sources [][]byte
	pages   int
}

func New() *Document {
	return &Document{}
}

// Append parses a fetched PDF and queues every one of its pages after the
// pages already in the document. It returns the number of pages added.
func (d *Document) Append(pdf []byte) (int, error) {
	ctx, err := api.ReadContext(bytes.NewReader(pdf), newConfiguration())
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	err = api.ValidateContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("validate pdf: %w", err)
	}
	if ctx.PageCount == 0 {
		return 0, nil
	}

	d.sources = append(d.sources, pdf)
	d.pages += ctx.PageCount
	return ctx.PageCount, nil
}

func (d *Document) PageCount() int {
	return d.pages
}

// WriteTo merges every appended PDF into w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	if len(d.sources) == 0 {
		return 0, fmt.Errorf("document has no pages")
	}

	readers := make([]io.ReadSeeker, len(d.sources))
	for i, src := range d.sources {
		readers[i] = bytes.NewReader(src)
	}

	var out bytes.Buffer
	err := api.MergeRaw(readers, &out, false, newConfiguration())
	if err != nil {
		return 0, fmt.Errorf("merge pdf: %w", err)
	}
	return out.WriteTo(w)
}

// Save writes the document to path if it has at least one page, saved is
// false when there was nothing to write. The file is written next to path
// and renamed into place so a failed merge never leaves a partial file.
func (d *Document) Save(path string) (saved bool, err error) {
	if d.PageCount() == 0 {
		return false, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".arcinfo-*.pdf")
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	_, err = d.WriteTo(tmp)
	if err != nil {
		tmp.Close()
		return false, err
	}
	err = tmp.Close()
	if err != nil {
		return false, err
	}
	// CreateTemp makes the file owner-only
	err = os.Chmod(tmp.Name(), outputMode)
	if err != nil {
		return false, err
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return false, err
	}
	return true, nil
}

// PageWidths returns the media box width of every page in a PDF, it is how
// callers can check the page order of an assembled document.
func PageWidths(r io.ReadSeeker) ([]float64, error) {
	ctx, err := api.ReadContext(r, newConfiguration())
	if err != nil {
		return nil, err
	}
	err = api.ValidateContext(ctx)
	if err != nil {
		return nil, err
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, err
	}

	widths := make([]float64, len(dims))
	for i, dim := range dims {
		widths[i] = dim.Width
	}
	return widths, nil
}
