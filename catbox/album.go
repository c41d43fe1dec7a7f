package catbox

import (
	"net/url"
	"strings"

	"catbox/internal"
)

// Album is a public catbox album, identified by its canonical URL
type Album struct {
	url *url.URL
}

// NewAlbum wraps an album URL
func NewAlbum(u *url.URL) Album {
	return Album{url: u}
}

// URL returns a copy of the album URL
func (a Album) URL() *url.URL {
	if a.url == nil {
		return nil
	}
	u := *a.url
	return &u
}

func (a Album) String() string {
	if a.url == nil {
		return ""
	}
	return a.url.String()
}

// Short returns the album short code, the second path segment of /c/<short>
func (a Album) Short() (string, error) {
	if a.url == nil {
		return "", internal.NewUnparsableURLError("", nil)
	}

	segments := strings.Split(strings.TrimPrefix(a.url.Path, "/"), "/")
	if len(segments) < 2 || segments[1] == "" {
		return "", internal.NewUnparsableURLError(a.url.String(), nil).
			WithSuggestion("An album URL looks like https://catbox.moe/c/abc123")
	}
	return segments[1], nil
}
