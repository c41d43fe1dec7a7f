package catbox

import (
	"net/url"
	"strings"

	"catbox/extract"
	"catbox/internal"
)

// Endpoints is the set of catbox pages and forms the client talks to
type Endpoints struct {
	Login   string
	API     string
	Account string
	Albums  string
	Files   string

	// AlbumBase is the public album prefix; an album lives at AlbumBase/<short>
	AlbumBase string
	// FileHost serves uploaded files directly
	FileHost string
}

// DefaultEndpoints returns the production catbox endpoints
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:     "https://catbox.moe/user/dologin.php",
		API:       "https://catbox.moe/user/api.php",
		Account:   "https://catbox.moe/user/manage.php",
		Albums:    "https://catbox.moe/user/manage_albums.php",
		Files:     "https://catbox.moe/user/view.php",
		AlbumBase: "https://catbox.moe/c",
		FileHost:  "files.catbox.moe",
	}
}

// albumMarker is the host and path prefix that identifies an album URL, e.g. "catbox.moe/c/"
func (e Endpoints) albumMarker() string {
	base := strings.TrimSuffix(e.AlbumBase, "/")
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		return u.Host + u.Path + "/"
	}
	return base + "/"
}

// Normalize turns an album URL or a bare short code into an Album
func (e Endpoints) Normalize(identifier string) (Album, error) {
	raw := identifier
	if !strings.Contains(identifier, e.albumMarker()) {
		raw = strings.TrimSuffix(e.AlbumBase, "/") + "/" + identifier
	}

	u, err := extract.ParseURL(raw)
	if err != nil {
		return Album{}, err
	}
	return NewAlbum(u), nil
}

// ExtractSlug returns the remote file name for a direct file URL.
// Anything that is not a file URL is taken to be a slug already.
func (e Endpoints) ExtractSlug(identifier string) (string, error) {
	if !strings.Contains(identifier, e.FileHost) {
		return identifier, nil
	}

	u, err := extract.ParseURL(identifier)
	if err != nil {
		return "", err
	}

	slug, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if slug == "" {
		return "", internal.NewUnparsableURLError(identifier, nil).
			WithSuggestion("A file URL looks like https://files.catbox.moe/abc123.png")
	}
	return slug, nil
}
