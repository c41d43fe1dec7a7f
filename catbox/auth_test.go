package catbox

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catbox/internal"
)

func TestLogin(t *testing.T) {
	fake := newFakeCatbox(t)

	session := fake.login(t)

	page, err := session.FetchText(context.Background(), fake.endpoints().Account)
	require.NoError(t, err)
	assert.Contains(t, page, "Your userhash is:")
}

func TestLogin_MissingCredentials(t *testing.T) {
	fake := newFakeCatbox(t)

	tests := []struct {
		name  string
		creds internal.Credentials
	}{
		{"no_username", internal.Credentials{Password: testPassword}},
		{"no_password", internal.Credentials{Username: testUser}},
		{"empty", internal.Credentials{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Login(context.Background(), newTestClient(t), tt.creds, fake.endpoints())
			assert.True(t, internal.IsKind(err, internal.ErrCredentialMissing), "got %v", err)
		})
	}
}

func TestLogin_Rejected(t *testing.T) {
	fake := newFakeCatbox(t)

	_, err := Login(context.Background(), newTestClient(t), internal.Credentials{
		Username: testUser,
		Password: "wrong",
	}, fake.endpoints())
	assert.True(t, internal.IsKind(err, internal.ErrAuthRejected), "got %v", err)
}

func TestLogin_HTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	endpoints := DefaultEndpoints()
	endpoints.Login = server.URL + "/user/dologin.php"

	_, err := Login(context.Background(), newTestClient(t), internal.Credentials{
		Username: testUser,
		Password: testPassword,
	}, endpoints)

	var ce *internal.CatboxError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, internal.ErrHTTPStatus, ce.Type)
	assert.Equal(t, http.StatusServiceUnavailable, ce.StatusCode)
}

func TestLogin_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL + "/user/dologin.php"
	server.Close()

	endpoints := DefaultEndpoints()
	endpoints.Login = endpoint

	_, err := Login(context.Background(), newTestClient(t), internal.Credentials{
		Username: testUser,
		Password: testPassword,
	}, endpoints)

	var ce *internal.CatboxError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, internal.ErrNetworkRequest, ce.Type)
	assert.Equal(t, endpoint, ce.Endpoint)
}

func TestSession_FetchText_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/binary":
			w.Write([]byte{0xff, 0xfe, 0x00, 0x81})
		case "/missing":
			http.NotFound(w, r)
		default:
			w.Write([]byte("<p>ok</p>"))
		}
	}))
	defer server.Close()

	session := newSession(newTestClient(t), DefaultEndpoints())
	ctx := context.Background()

	text, err := session.FetchText(ctx, server.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", text)

	_, err = session.FetchText(ctx, server.URL+"/binary")
	assert.True(t, internal.IsKind(err, internal.ErrResponseNotText), "got %v", err)

	_, err = session.FetchText(ctx, server.URL+"/missing")
	assert.True(t, internal.IsKind(err, internal.ErrHTTPStatus), "got %v", err)
}

func TestSession_FetchText_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session := newSession(newTestClient(t), DefaultEndpoints())
	_, err := session.FetchText(ctx, server.URL)
	assert.True(t, internal.IsKind(err, internal.ErrNetworkRequest), "got %v", err)
	assert.ErrorIs(t, err, context.Canceled)
}
