package assembler

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"arcinfo-pdf/internal/assembler/pdftest"

	"github.com/stretchr/testify/require"
)

func TestAppendCountsPages(t *testing.T) {
	doc := New()

	n, err := doc.Append(pdftest.SinglePage(101))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = doc.Append(pdftest.Build(
		pdftest.Page{Width: 102, Height: 842},
		pdftest.Page{Width: 103, Height: 842},
	))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.Equal(t, 3, doc.PageCount())
}

func TestAppendRejectsGarbage(t *testing.T) {
	doc := New()
	_, err := doc.Append([]byte("<html>not a pdf</html>"))
	require.Error(t, err)
	require.Equal(t, 0, doc.PageCount())
}

func TestWriteToPreservesOrder(t *testing.T) {
	doc := New()
	for _, width := range []int{103, 101, 102} {
		_, err := doc.Append(pdftest.SinglePage(width))
		require.NoError(t, err)
	}

	var out bytes.Buffer
	_, err := doc.WriteTo(&out)
	require.NoError(t, err)

	widths, err := PageWidths(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	require.Equal(t, []float64{103, 101, 102}, widths)
}

func TestWriteToEmpty(t *testing.T) {
	var out bytes.Buffer
	_, err := New().WriteTo(&out)
	require.Error(t, err)
	require.Zero(t, out.Len())
}

func TestSaveSkipsEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2021-12-24.pdf")

	saved, err := New().Save(path)
	require.NoError(t, err)
	require.False(t, saved)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2021-12-24.pdf")

	doc := New()
	_, err := doc.Append(pdftest.SinglePage(101))
	require.NoError(t, err)
	_, err = doc.Append(pdftest.SinglePage(102))
	require.NoError(t, err)

	saved, err := doc.Save(path)
	require.NoError(t, err)
	require.True(t, saved)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	widths, err := PageWidths(f)
	require.NoError(t, err)
	require.Equal(t, []float64{101, 102}, widths)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file should have been renamed")

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestSaveMissingDirectory(t *testing.T) {
	doc := New()
	_, err := doc.Append(pdftest.SinglePage(101))
	require.NoError(t, err)

	_, err = doc.Save(filepath.Join(t.TempDir(), "missing", "2021-12-24.pdf"))
	require.Error(t, err)
}
