package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"

	"catbox/internal"
)

const barTemplate = `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{speed . }}`

// ProgressPool renders one bar per in-flight upload and collects batch statistics.
// It implements internal.ProgressSink.
type ProgressPool struct {
	pool      *pb.Pool
	quiet     bool
	startTime time.Time
	out       io.Writer

	mutex     sync.Mutex
	bytes     atomic.Int64
	succeeded int
	failed    int
}

// TransferSummary contains final batch statistics
type TransferSummary struct {
	TotalBytes   int64
	TotalTime    time.Duration
	AverageSpeed float64 // bytes per second
	Succeeded    int
	Failed       int
}

// NewProgressPool creates a progress sink. Bars are drawn once Start succeeds.
func NewProgressPool(quiet bool) *ProgressPool {
	return &ProgressPool{
		quiet:     quiet,
		startTime: time.Now(),
		out:       os.Stdout,
	}
}

// Start begins rendering. Without a terminal the pool stays silent and only counts.
func (p *ProgressPool) Start() error {
	p.startTime = time.Now()
	if p.quiet {
		return nil
	}

	pool, err := pb.StartPool()
	if err != nil {
		return fmt.Errorf("failed to start progress pool: %w", err)
	}
	p.pool = pool
	return nil
}

// Track registers a new upload
func (p *ProgressPool) Track(name string, total int64) internal.FileProgress {
	fp := &fileProgress{parent: p, name: name}

	if p.pool != nil {
		bar := newBar(name, total)
		p.pool.Add(bar)
		fp.bar = bar
	}

	return fp
}

func newBar(name string, total int64) *pb.ProgressBar {
	bar := pb.New64(total).SetTemplate(pb.ProgressBarTemplate(barTemplate))
	bar.Set(pb.Bytes, true)
	bar.Set(pb.SIBytesPrefix, true)
	bar.Set("prefix", name+": ")
	return bar
}

// Stop ends rendering and returns the batch summary
func (p *ProgressPool) Stop() *TransferSummary {
	if p.pool != nil {
		if err := p.pool.Stop(); err != nil {
			internal.LogDebug("Failed to stop progress pool: %v", err)
		}
		p.pool = nil
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	totalTime := time.Since(p.startTime)
	var averageSpeed float64
	if seconds := totalTime.Seconds(); seconds > 0 {
		averageSpeed = float64(p.bytes.Load()) / seconds
	}

	summary := &TransferSummary{
		TotalBytes:   p.bytes.Load(),
		TotalTime:    totalTime,
		AverageSpeed: averageSpeed,
		Succeeded:    p.succeeded,
		Failed:       p.failed,
	}

	if !p.quiet {
		p.displaySummary(summary)
	}

	return summary
}

// displaySummary prints the batch summary statistics
func (p *ProgressPool) displaySummary(summary *TransferSummary) {
	fmt.Fprintf(p.out, "\n")
	fmt.Fprintf(p.out, "Uploaded %d file(s), %d failed\n", summary.Succeeded, summary.Failed)
	fmt.Fprintf(p.out, "Total size: %s\n", formatBytes(summary.TotalBytes))
	fmt.Fprintf(p.out, "Total time: %v\n", summary.TotalTime.Round(time.Millisecond))
	fmt.Fprintf(p.out, "Average speed: %s/s\n", formatBytes(int64(summary.AverageSpeed)))
}

type fileProgress struct {
	parent *ProgressPool
	name   string
	bar    *pb.ProgressBar
	once   sync.Once
}

func (f *fileProgress) Add(delta int64) {
	f.parent.bytes.Add(delta)
	if f.bar != nil {
		f.bar.Add64(delta)
	}
}

func (f *fileProgress) Done(err error) {
	f.once.Do(func() {
		f.parent.mutex.Lock()
		if err != nil {
			f.parent.failed++
		} else {
			f.parent.succeeded++
		}
		f.parent.mutex.Unlock()

		if f.bar != nil {
			if err != nil {
				f.bar.Set("prefix", "failed "+f.name+": ")
			}
			f.bar.Finish()
		}
	})
}

// formatBytes formats byte count as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
