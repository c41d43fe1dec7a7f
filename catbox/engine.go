package catbox

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"catbox/internal"
	"catbox/utils"
)

// DefaultConcurrency is the number of uploads in flight when none is configured
const DefaultConcurrency = 5

// Outcome is the result of uploading one local file
type Outcome struct {
	Path string
	URL  string
	Err  error
}

// Uploader sends local files to catbox through a shared session
type Uploader struct {
	session     *Session
	concurrency int
	sink        internal.ProgressSink
	limiter     internal.RateLimiter
	logger      *internal.SecureLogger
}

// UploaderOption configures an Uploader
type UploaderOption func(*Uploader)

// WithConcurrency bounds the number of uploads in flight. Values below 1 are ignored.
func WithConcurrency(n int) UploaderOption {
	return func(u *Uploader) {
		if n > 0 {
			u.concurrency = n
		}
	}
}

// WithProgressSink reports per-file byte counts to sink
func WithProgressSink(sink internal.ProgressSink) UploaderOption {
	return func(u *Uploader) {
		if sink != nil {
			u.sink = sink
		}
	}
}

// WithRateLimiter throttles the combined upload rate of every file
func WithRateLimiter(limiter internal.RateLimiter) UploaderOption {
	return func(u *Uploader) {
		u.limiter = limiter
	}
}

// WithLogger overrides the process-wide logger
func WithLogger(logger *internal.SecureLogger) UploaderOption {
	return func(u *Uploader) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// NewUploader creates an uploader bound to session
func NewUploader(session *Session, opts ...UploaderOption) *Uploader {
	u := &Uploader{
		session:     session,
		concurrency: DefaultConcurrency,
		sink:        internal.NopProgress{},
		logger:      internal.GetLogger(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Stream uploads paths with at most the configured number in flight and
// delivers outcomes in completion order. The channel is closed once every
// path has an outcome. A failed upload does not stop the others.
func (u *Uploader) Stream(ctx context.Context, paths []string) <-chan Outcome {
	out := make(chan Outcome, len(paths))

	go func() {
		defer close(out)

		var g errgroup.Group
		g.SetLimit(u.concurrency)

		for _, path := range paths {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					out <- Outcome{Path: path, Err: err}
					return nil
				}
				url, err := u.UploadFile(ctx, path)
				out <- Outcome{Path: path, URL: url, Err: err}
				return nil
			})
		}

		_ = g.Wait()
	}()

	return out
}

// UploadAll uploads every path and returns all outcomes together with the
// first failure in completion order.
func (u *Uploader) UploadAll(ctx context.Context, paths []string) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(paths))
	var firstErr error

	for outcome := range u.Stream(ctx, paths) {
		if outcome.Err != nil && firstErr == nil {
			firstErr = outcome.Err
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, firstErr
}

// UploadFile uploads a single file and returns its remote URL
func (u *Uploader) UploadFile(ctx context.Context, path string) (remote string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", internal.NewFileReadError(path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", internal.NewFileReadError(path, err)
	}
	if info.IsDir() {
		return "", internal.NewFileReadError(path, errors.New("is a directory"))
	}

	hash, err := u.session.UserHash(ctx)
	if err != nil {
		return "", err
	}

	name := filepath.Base(path)
	head, tail, contentType, err := multipartEnvelope(hash, name)
	if err != nil {
		return "", internal.NewFileReadError(path, err)
	}

	progress := u.sink.Track(name, info.Size())
	defer func() { progress.Done(err) }()

	counter := &countingReader{reader: io.LimitReader(file, info.Size()), progress: progress}
	body := io.MultiReader(
		bytes.NewReader(head),
		utils.NewRateLimitedReader(ctx, counter, u.limiter),
		bytes.NewReader(tail),
	)
	length := int64(len(head)) + info.Size() + int64(len(tail))

	u.logger.Debug("Uploading %s (%d bytes)", path, info.Size())

	text, err := u.session.PostMultipart(ctx, u.session.endpoints.API, contentType, body, length)
	if readErr := counter.Err(); readErr != nil {
		return "", internal.NewFileReadError(path, readErr)
	}
	if err != nil {
		return "", err
	}

	u.logger.Info("Uploaded %s -> %s", path, text)
	return text, nil
}

// multipartEnvelope renders the form fields and file part header (head) and
// the closing boundary (tail) that surround the raw file bytes.
func multipartEnvelope(userHash, filename string) (head, tail []byte, contentType string, err error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("reqtype", "fileupload"); err != nil {
		return nil, nil, "", err
	}
	if err := writer.WriteField("userhash", userHash); err != nil {
		return nil, nil, "", err
	}
	if _, err := writer.CreateFormFile("fileToUpload", filename); err != nil {
		return nil, nil, "", err
	}

	head = bytes.Clone(buf.Bytes())
	buf.Reset()

	if err := writer.Close(); err != nil {
		return nil, nil, "", err
	}
	tail = bytes.Clone(buf.Bytes())

	return head, tail, writer.FormDataContentType(), nil
}

// countingReader reports bytes read to progress and remembers the first read error.
// The transport may still be reading when the response arrives, so err is guarded.
type countingReader struct {
	reader   io.Reader
	progress internal.FileProgress

	mu  sync.Mutex
	err error
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.progress.Add(int64(n))
	}
	if err != nil && err != io.EOF {
		r.mu.Lock()
		if r.err == nil {
			r.err = err
		}
		r.mu.Unlock()
	}
	return n, err
}

// Err returns the first non-EOF read error
func (r *countingReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
