// Package catbox drives the catbox.moe account pages and upload API.
package catbox

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"catbox/internal"
)

// Session is a logged-in catbox account. The client's cookie jar holds the
// authenticated state; it is shared by every request made through the session.
type Session struct {
	client    *http.Client
	endpoints Endpoints
	logger    *internal.SecureLogger
	userHash  *UserHashCache
}

// Login posts the credentials to the login form and returns a session bound to client
func Login(ctx context.Context, client *http.Client, creds internal.Credentials, endpoints Endpoints) (*Session, error) {
	if creds.Username == "" {
		return nil, internal.NewCredentialMissingError("username")
	}
	if creds.Password == "" {
		return nil, internal.NewCredentialMissingError("password")
	}

	session := newSession(client, endpoints)
	session.logger.Debug("Logging in as %s", creds.Username)

	form := url.Values{
		"username": {creds.Username},
		"password": {creds.Password},
	}
	body, err := session.send(ctx, http.MethodPost, endpoints.Login, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), -1)
	if err != nil {
		return nil, err
	}

	// A rejected login renders the form again
	if rendersLoginForm(body) {
		return nil, internal.NewCatboxError(internal.ErrAuthRejected, "login form returned after submitting credentials").
			WithContext("username", creds.Username)
	}

	session.logger.Info("Logged in as %s", creds.Username)
	return session, nil
}

func newSession(client *http.Client, endpoints Endpoints) *Session {
	s := &Session{
		client:    client,
		endpoints: endpoints,
		logger:    internal.GetLogger(),
	}
	s.userHash = NewUserHashCache(s, endpoints.Account)
	return s
}

func rendersLoginForm(body string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return false
	}
	return doc.Find("input[name='password']").Length() > 0
}

// Endpoints returns the endpoint table the session was created with
func (s *Session) Endpoints() Endpoints {
	return s.endpoints
}

// UserHash returns the account user hash, fetching it on first use
func (s *Session) UserHash(ctx context.Context) (string, error) {
	return s.userHash.Get(ctx)
}

// FetchText performs an authenticated GET and returns the body as text
func (s *Session) FetchText(ctx context.Context, endpoint string) (string, error) {
	return s.send(ctx, http.MethodGet, endpoint, "", nil, -1)
}

// PostForm submits a url-encoded form and discards the response body
func (s *Session) PostForm(ctx context.Context, endpoint string, values url.Values) error {
	_, err := s.send(ctx, http.MethodPost, endpoint, "application/x-www-form-urlencoded", strings.NewReader(values.Encode()), -1)
	return err
}

// PostMultipart submits a multipart body of exactly length bytes and returns the response text
func (s *Session) PostMultipart(ctx context.Context, endpoint, contentType string, body io.Reader, length int64) (string, error) {
	return s.send(ctx, http.MethodPost, endpoint, contentType, body, length)
}

func (s *Session) send(ctx context.Context, method, endpoint, contentType string, body io.Reader, length int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return "", internal.NewNetworkRequestError(endpoint, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if length >= 0 {
		req.ContentLength = length
	}

	return doText(s.client, req)
}

// fetchText performs a GET with client, which need not be authenticated
func fetchText(ctx context.Context, client *http.Client, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", internal.NewNetworkRequestError(endpoint, err)
	}
	return doText(client, req)
}

// doText executes req and maps each failure point onto its own error kind
func doText(client *http.Client, req *http.Request) (string, error) {
	endpoint := req.URL.String()

	resp, err := client.Do(req)
	if err != nil {
		return "", internal.NewNetworkRequestError(endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return "", internal.NewHTTPStatusError(endpoint, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", internal.NewResponseNotTextError(endpoint, err)
	}
	if !utf8.Valid(data) {
		return "", internal.NewResponseNotTextError(endpoint, nil)
	}

	return string(data), nil
}
