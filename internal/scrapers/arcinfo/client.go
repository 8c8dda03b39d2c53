// Package arcinfo scrapes the ArcInfo e-paper website (jd.arcinfo.ch).
package arcinfo

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"arcinfo-pdf/internal/components/assert"
	"arcinfo-pdf/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const (
	report_client_login        = "client.login"
	report_client_list_edition = "client.list-edition"
	report_client_fetch_page   = "client.fetch-page"
)

const (
	DefaultBaseUrl = "https://jd.arcinfo.ch"
	// the site denies requests from non browser user agents
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.110 Safari/537.36"

	// AccessTokenCookie is set by the login endpoint when the credentials
	// were accepted.
	AccessTokenCookie = "arcinfo_access_token"
)

type ClientOptions struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// UserAgent defaults to DefaultUserAgent.
	UserAgent string
	// Timeout of a single request, zero means no timeout.
	Timeout time.Duration
	// DisableCloudflareBypass leaves the default transport untouched.
	DisableCloudflareBypass bool
	// DumpDir, when set, receives a dump of every request and response.
	DumpDir string
}

// Client is an HTTP session against the site, cookies set by one request are
// sent on every following one.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	jar       *cookiejar.Jar
	// cookieUrls are the urls besides BaseUrl the jar is looked up for
	cookieUrls []*url.URL
	transport  http.RoundTripper
	tel       telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("arcinfo_scraper", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	parsedBaseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	transport := httpClient.GetClient().Transport
	if !opts.DisableCloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("user-agent", opts.UserAgent)
	// page assets may be served from another host (CDN)
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}

	telemetry.InstrumentResty(httpClient, tel)
	if opts.DumpDir != "" {
		output, err := telemetry.NewFilesystemOutput(opts.DumpDir)
		if err != nil {
			return nil, err
		}
		telemetry.DumpResty(httpClient, output)
	}

	c := &Client{
		BaseUrl:    parsedBaseUrl,
		Http:       httpClient,
		jar:        jar,
		cookieUrls: []*url.URL{parsedBaseUrl.JoinPath("/arcinfo/")},
		transport:  transport,
		tel:        tel,
	}
	return c, nil
}

// Cookie returns the value of a cookie the session holds for the site, at its
// root, scoped to the newspaper's path or to a page the session logged in on.
func (c *Client) Cookie(name string) (string, bool) {
	for _, u := range append([]*url.URL{c.BaseUrl}, c.cookieUrls...) {
		for _, cookie := range c.jar.Cookies(u) {
			if cookie.Name == name {
				return cookie.Value, true
			}
		}
	}
	return "", false
}

// Close releases the idle connections of the session.
func (c *Client) Close() {
	// the cloudflare round tripper hides CloseIdleConnections of the
	// transport it wraps
	if closer, ok := c.transport.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
	c.Http.GetClient().CloseIdleConnections()
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
