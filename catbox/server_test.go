package catbox

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"catbox/internal"
	"catbox/utils"
)

const (
	testUser     = "neko"
	testPassword = "hunter2"
	testHash     = "0123456789abcdef"
	testSession  = "session-token"
)

// fakeCatbox serves the subset of catbox.moe the client talks to
type fakeCatbox struct {
	server *httptest.Server

	accountFetches atomic.Int32
	apiPosts       atomic.Int32
	inFlight       atomic.Int32
	maxInFlight    atomic.Int32

	uploadDelay time.Duration
	failUploads map[string]int
	urlSuffix   string

	mu      sync.Mutex
	uploads []upload
	added   []albumAdd

	ownedFiles []string
	albums     map[string][]string
}

type upload struct {
	ReqType  string
	UserHash string
	Filename string
	Content  string
}

type albumAdd struct {
	UserHash string
	Short    string
	Files    string
}

func newFakeCatbox(t *testing.T) *fakeCatbox {
	t.Helper()

	f := &fakeCatbox{
		failUploads: map[string]int{},
		albums:      map[string][]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/user/dologin.php", f.handleLogin)
	mux.HandleFunc("/user/api.php", f.handleAPI)
	mux.HandleFunc("/user/manage.php", f.authenticated(f.handleAccount))
	mux.HandleFunc("/user/manage_albums.php", f.authenticated(f.handleAlbums))
	mux.HandleFunc("/user/view.php", f.authenticated(f.handleFiles))
	mux.HandleFunc("/c/", f.handlePublicAlbum)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeCatbox) endpoints() Endpoints {
	base := f.server.URL
	return Endpoints{
		Login:     base + "/user/dologin.php",
		API:       base + "/user/api.php",
		Account:   base + "/user/manage.php",
		Albums:    base + "/user/manage_albums.php",
		Files:     base + "/user/view.php",
		AlbumBase: base + "/c",
		FileHost:  "files.catbox.moe",
	}
}

// login returns a session authenticated against the fake server
func (f *fakeCatbox) login(t *testing.T) *Session {
	t.Helper()

	session, err := Login(context.Background(), newTestClient(t), internal.Credentials{
		Username: testUser,
		Password: testPassword,
	}, f.endpoints())
	require.NoError(t, err)
	return session
}

func (f *fakeCatbox) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("PHPSESSID"); err != nil || c.Value != testSession {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (f *fakeCatbox) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.FormValue("username") != testUser || r.FormValue("password") != testPassword {
		fmt.Fprint(w, `<html><body><form action="dologin.php" method="post">
<input type="text" name="username"><input type="password" name="password">
</form></body></html>`)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: testSession, Path: "/"})
	fmt.Fprint(w, `<html><body><p>Welcome back</p></body></html>`)
}

func (f *fakeCatbox) handleAccount(w http.ResponseWriter, r *http.Request) {
	f.accountFetches.Add(1)
	// Keep the fetch open long enough for concurrent callers to pile up
	time.Sleep(20 * time.Millisecond)
	fmt.Fprintf(w, `<html><body>
<div class="notesmall"><b>Your userhash is:</b> %s</div>
</body></html>`, testHash)
}

func (f *fakeCatbox) handleAlbums(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	b.WriteString(`<html><body><table>`)
	for short := range f.albums {
		fmt.Fprintf(&b, `<tr><td><span class="textHolder">%s/c/%s</span></td></tr>`, f.server.URL, short)
	}
	b.WriteString(`<tr><td><span class="textHolder">not a url</span></td></tr>`)
	b.WriteString(`</table></body></html>`)
	fmt.Fprint(w, b.String())
}

func (f *fakeCatbox) handleFiles(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var b strings.Builder
	b.WriteString(`<html><body><div id="results">`)
	for _, slug := range f.ownedFiles {
		fmt.Fprintf(&b, `<div class="file"><a href="https://files.catbox.moe/%s" target="_blank">%s</a><a href="#delete">x</a></div>`, slug, slug)
	}
	b.WriteString(`<a href="relative/only.png" target="_blank">bad</a>`)
	b.WriteString(`</div></body></html>`)
	fmt.Fprint(w, b.String())
}

func (f *fakeCatbox) handlePublicAlbum(w http.ResponseWriter, r *http.Request) {
	short := strings.TrimPrefix(r.URL.Path, "/c/")
	files, ok := f.albums[short]
	if !ok {
		http.NotFound(w, r)
		return
	}

	var b strings.Builder
	b.WriteString(`<html><body><div class="imagecontainer">`)
	for _, file := range files {
		fmt.Fprintf(&b, `<video src="%s"></video>`, file)
	}
	b.WriteString(`</div></body></html>`)
	fmt.Fprint(w, b.String())
}

func (f *fakeCatbox) handleAPI(w http.ResponseWriter, r *http.Request) {
	f.apiPosts.Add(1)

	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f.handleUpload(w, r)
		return
	}

	switch r.FormValue("reqtype") {
	case "addtoalbum":
		f.mu.Lock()
		f.added = append(f.added, albumAdd{
			UserHash: r.FormValue("userhash"),
			Short:    r.FormValue("short"),
			Files:    r.FormValue("files"),
		})
		f.mu.Unlock()
	default:
		http.Error(w, "unknown reqtype", http.StatusBadRequest)
	}
}

func (f *fakeCatbox) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength <= 0 {
		http.Error(w, "length required", http.StatusLengthRequired)
		return
	}

	reader, err := r.MultipartReader()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var up upload
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(part)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		switch part.FormName() {
		case "reqtype":
			up.ReqType = string(data)
		case "userhash":
			up.UserHash = string(data)
		case "fileToUpload":
			up.Filename = part.FileName()
			up.Content = string(data)
		}
	}

	time.Sleep(f.uploadDelay)

	if code, ok := f.failUploads[up.Filename]; ok {
		http.Error(w, "rejected", code)
		return
	}

	f.mu.Lock()
	f.uploads = append(f.uploads, up)
	f.ownedFiles = append(f.ownedFiles, up.Filename)
	f.mu.Unlock()

	fmt.Fprintf(w, "https://files.catbox.moe/%s%s", up.Filename, f.urlSuffix)
}

func newTestClient(t *testing.T) *http.Client {
	t.Helper()
	return newTestClientWithTimeout(t, 10*time.Second)
}

func newTestClientWithTimeout(t *testing.T, timeout time.Duration) *http.Client {
	t.Helper()
	client, err := utils.NewHTTPClient(&utils.HTTPClientConfig{Timeout: timeout})
	require.NoError(t, err)
	return client
}
