package internal

import "context"

// ProgressSink receives byte counts for in-flight uploads
type ProgressSink interface {
	Track(name string, total int64) FileProgress
}

// FileProgress reports progress for a single upload. Done is called exactly once.
type FileProgress interface {
	Add(delta int64)
	Done(err error)
}

// CredentialSource supplies the account username and password
type CredentialSource interface {
	Credentials() (Credentials, error)
}

// RateLimiter controls bandwidth usage
type RateLimiter interface {
	WaitN(ctx context.Context, n int) error
}

// NopProgress discards all progress events
type NopProgress struct{}

func (NopProgress) Track(string, int64) FileProgress { return NopProgress{} }
func (NopProgress) Add(int64)                        {}
func (NopProgress) Done(error)                       {}
