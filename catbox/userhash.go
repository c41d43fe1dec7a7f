package catbox

import (
	"context"
	"sync"

	"catbox/extract"
)

const userHashLabel = "Your userhash is:"

type textFetcher interface {
	FetchText(ctx context.Context, endpoint string) (string, error)
}

// UserHashCache fetches the account user hash at most once. Concurrent
// callers wait for the single fetch and all observe its value or its error.
type UserHashCache struct {
	fetcher    textFetcher
	accountURL string

	once sync.Once
	hash string
	err  error
}

// NewUserHashCache creates a cache that scrapes accountURL through fetcher
func NewUserHashCache(fetcher textFetcher, accountURL string) *UserHashCache {
	return &UserHashCache{fetcher: fetcher, accountURL: accountURL}
}

// Get returns the cached user hash, fetching it on the first call
func (c *UserHashCache) Get(ctx context.Context) (string, error) {
	c.once.Do(func() {
		// detached from the first caller's cancellation; the client timeout still applies
		c.hash, c.err = c.fetch(context.WithoutCancel(ctx))
	})
	return c.hash, c.err
}

func (c *UserHashCache) fetch(ctx context.Context) (string, error) {
	page, err := c.fetcher.FetchText(ctx, c.accountURL)
	if err != nil {
		return "", err
	}
	return parseUserHash(page)
}

func parseUserHash(page string) (string, error) {
	doc, err := extract.Parse(page)
	if err != nil {
		return "", err
	}

	container, err := doc.FindContainer(extract.ByClass("notesmall"))
	if err != nil {
		return "", err
	}

	return doc.LabeledValue(container, userHashLabel)
}
