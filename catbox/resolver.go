package catbox

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"catbox/extract"
	"catbox/internal"
)

var albumTitleSelector = cascadia.MustCompile("span.textHolder")

// Resolver reads album and file listings from catbox pages and edits albums
type Resolver struct {
	endpoints Endpoints
	public    *http.Client
	logger    *internal.SecureLogger
}

// NewResolver creates a resolver. public is used for pages that need no login.
func NewResolver(endpoints Endpoints, public *http.Client) *Resolver {
	if public == nil {
		public = http.DefaultClient
	}
	return &Resolver{
		endpoints: endpoints,
		public:    public,
		logger:    internal.GetLogger(),
	}
}

// ListAlbumFiles returns the file URLs shown on a public album page, in page order
func (r *Resolver) ListAlbumFiles(ctx context.Context, album Album) ([]*url.URL, error) {
	page, err := fetchText(ctx, r.public, album.String())
	if err != nil {
		return nil, err
	}

	doc, err := extract.Parse(page)
	if err != nil {
		return nil, err
	}

	container, err := doc.FindContainer(extract.ByClass("imagecontainer"))
	if err != nil {
		return nil, err
	}

	children, err := doc.Children(container)
	if err != nil {
		return nil, err
	}

	values, err := doc.AttributeValues(children, "src", "href")
	if err != nil {
		return nil, err
	}

	files := extract.ParseURLs(values)
	r.logger.Debug("Album %s lists %d file(s)", album, len(files))
	return files, nil
}

// ListOwnedAlbums returns the albums of the logged-in account. A page
// without album titles yields an empty list.
func (r *Resolver) ListOwnedAlbums(ctx context.Context, session *Session) ([]Album, error) {
	page, err := session.FetchText(ctx, r.endpoints.Albums)
	if err != nil {
		return nil, err
	}

	doc, err := extract.Parse(page)
	if err != nil {
		return nil, err
	}

	var albums []Album
	for id := range doc.SelectAll(albumTitleSelector) {
		text, err := doc.InnerText(id)
		if err != nil {
			return nil, err
		}
		u, err := extract.ParseURL(strings.TrimSpace(text))
		if err != nil {
			continue
		}
		albums = append(albums, NewAlbum(u))
	}

	return albums, nil
}

// ListOwnedFiles returns the URLs of every file uploaded by the logged-in account
func (r *Resolver) ListOwnedFiles(ctx context.Context, session *Session) ([]*url.URL, error) {
	page, err := session.FetchText(ctx, r.endpoints.Files)
	if err != nil {
		return nil, err
	}

	doc, err := extract.Parse(page)
	if err != nil {
		return nil, err
	}

	container, err := doc.FindContainer(extract.ByID("results"))
	if err != nil {
		return nil, err
	}

	children, err := doc.Children(container)
	if err != nil {
		return nil, err
	}

	var files []*url.URL
	for _, id := range children {
		n, err := doc.Node(id)
		if err != nil {
			return nil, err
		}
		if n.Type != html.ElementNode {
			continue
		}
		if _, ok, _ := doc.Attr(id, "target"); !ok {
			continue
		}

		href, ok, _ := doc.Attr(id, "href")
		if !ok || !utf8.ValidString(href) {
			continue
		}
		if u, err := extract.ParseURL(href); err == nil {
			files = append(files, u)
		}
	}

	return files, nil
}

// AddToAlbum adds an uploaded file to an album. The slug must name a file
// owned by the account; otherwise InvalidSlug is returned and nothing is sent.
func (r *Resolver) AddToAlbum(ctx context.Context, session *Session, album Album, slug string) error {
	short, err := album.Short()
	if err != nil {
		return err
	}

	owned, err := r.ListOwnedFiles(ctx, session)
	if err != nil {
		return err
	}
	if !ownsSlug(owned, slug) {
		return internal.NewInvalidSlugError(slug)
	}

	hash, err := session.UserHash(ctx)
	if err != nil {
		return err
	}

	form := url.Values{
		"reqtype":  {"addtoalbum"},
		"userhash": {hash},
		"short":    {short},
		"files":    {slug},
	}
	if err := session.PostForm(ctx, r.endpoints.API, form); err != nil {
		return err
	}

	r.logger.Info("Added %s to album %s", slug, short)
	return nil
}

func ownsSlug(owned []*url.URL, slug string) bool {
	for _, u := range owned {
		if strings.TrimPrefix(u.Path, "/") == slug {
			return true
		}
	}
	return false
}
