package arcinfo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotAuthenticated is returned by Login when a login is required and the
// site did not hand out an access token.
var ErrNotAuthenticated = errors.New("arcinfo: login did not yield an access token")

const loginPath = "/arcinfo/login/"

type Credentials struct {
	Username string
	Password string
}

type LoginResult struct {
	// Authenticated is true when the access token cookie was set.
	Authenticated bool
	StatusCode    int
}

// Login posts the credentials to the login form. Rejected credentials are not
// an error: the result reports Authenticated = false and the session stays
// usable, anonymously.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"_username": creds.Username,
			"_password": creds.Password,
		}).
		Post(loginPath)
	if err != nil {
		c.tel.ReportBroken(
			report_client_login,
			fmt.Errorf("login request: %w", err),
		)
		return LoginResult{}, fmt.Errorf("arcinfo scraper: login: %w", err)
	}

	// the token may be scoped to the login path or to wherever the form
	// redirected to
	c.cookieUrls = append(c.cookieUrls, c.BaseUrl.JoinPath(loginPath))
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		c.cookieUrls = append(c.cookieUrls, res.RawResponse.Request.URL)
	}

	_, ok := c.Cookie(AccessTokenCookie)
	if !ok {
		ok = hasCookie(res.Cookies(), AccessTokenCookie)
	}
	result := LoginResult{
		Authenticated: ok,
		StatusCode:    res.StatusCode(),
	}
	if !ok {
		c.tel.ReportWarning(
			report_client_login,
			fmt.Errorf("login error: no %s cookie", AccessTokenCookie),
			res.Status(),
		)
	}
	return result, nil
}

func hasCookie(cookies []*http.Cookie, name string) bool {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return true
		}
	}
	return false
}
