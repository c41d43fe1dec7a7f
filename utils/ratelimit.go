package utils

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"catbox/internal"
)

// ChunkSize is the largest read passed through a rate limiter at once
const ChunkSize = 32 * 1024

// NewByteRateLimiter returns a limiter shared by every upload of a batch,
// or nil when bytesPerSecond is not positive.
func NewByteRateLimiter(bytesPerSecond int64) internal.RateLimiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	// WaitN fails for n above the burst
	burst := int(min(bytesPerSecond, int64(1<<30)))
	if burst < ChunkSize {
		burst = ChunkSize
	}

	return rate.NewLimiter(rate.Limit(bytesPerSecond), burst)
}

// RateLimitedReader throttles reads through a shared limiter
type RateLimitedReader struct {
	ctx     context.Context
	reader  io.Reader
	limiter internal.RateLimiter
}

// NewRateLimitedReader wraps r. A nil limiter returns r unchanged.
func NewRateLimitedReader(ctx context.Context, r io.Reader, limiter internal.RateLimiter) io.Reader {
	if limiter == nil {
		return r
	}
	return &RateLimitedReader{ctx: ctx, reader: r, limiter: limiter}
}

func (r *RateLimitedReader) Read(p []byte) (int, error) {
	if len(p) > ChunkSize {
		p = p[:ChunkSize]
	}

	n, err := r.reader.Read(p)
	if n > 0 {
		if werr := r.limiter.WaitN(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

// ParseRateLimit parses human-readable rate limit strings (e.g., "5M", "1G")
func ParseRateLimit(rateStr string) (int64, error) {
	rateStr = strings.TrimSpace(rateStr)
	if rateStr == "" {
		return 0, nil
	}

	// Handle pure numbers (bytes per second)
	if val, err := strconv.ParseInt(rateStr, 10, 64); err == nil {
		if val < 0 {
			return 0, fmt.Errorf("rate cannot be negative: %d", val)
		}
		return val, nil
	}

	if len(rateStr) < 2 {
		return 0, fmt.Errorf("invalid rate format: %s", rateStr)
	}

	// Check for 2-character suffixes first (KB, MB, GB, TB)
	var numStr, suffix string
	rateUpper := strings.ToUpper(rateStr)
	if len(rateUpper) >= 3 && (strings.HasSuffix(rateUpper, "KB") ||
		strings.HasSuffix(rateUpper, "MB") ||
		strings.HasSuffix(rateUpper, "GB") ||
		strings.HasSuffix(rateUpper, "TB")) {
		numStr = rateStr[:len(rateStr)-2]
		suffix = rateUpper[len(rateUpper)-2:]
	} else {
		numStr = rateStr[:len(rateStr)-1]
		suffix = rateUpper[len(rateUpper)-1:]
	}

	baseValue, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value in rate: %s", numStr)
	}

	if baseValue < 0 {
		return 0, fmt.Errorf("rate cannot be negative: %f", baseValue)
	}

	var multiplier int64
	switch suffix {
	case "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	case "T", "TB":
		multiplier = 1024 * 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported rate suffix: %s (supported: B, K/KB, M/MB, G/GB, T/TB)", suffix)
	}

	result := int64(baseValue * float64(multiplier))
	if result < 0 {
		return 0, fmt.Errorf("rate value overflow")
	}

	return result, nil
}
