package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"catbox/catbox"
	"catbox/internal"
	"catbox/store"
	"catbox/utils"
)

var (
	uploadAlbum     string
	uploadJobs      int
	uploadRateLimit string
	uploadRecursive bool
	uploadNoHistory bool
	historyLimit    int
)

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Upload and list files",
}

var fileUploadCmd = &cobra.Command{
	Use:   "upload <PATH>...",
	Short: "Upload files to your account",
	Long: `Upload one or more files. Up to --jobs uploads run at once and each result
is printed as "path: url" as soon as it finishes.

Examples:
  catbox file upload a.png b.png
  catbox file upload -j 8 -r 2M --recursive ./shots
  catbox file upload --album abc123 clip.mp4`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cmd.Flags().Changed("jobs") {
			config.Concurrency = uploadJobs
		}
		if cmd.Flags().Changed("rate-limit") {
			config.RateLimit = uploadRateLimit
		}
		if err := config.ValidateConfig(); err != nil {
			return reportError(err)
		}

		bytesPerSecond, err := utils.ParseRateLimit(config.RateLimit)
		if err != nil {
			return reportError(internal.NewValidationErrorWithValue("rate_limit", "invalid format", config.RateLimit).
				WithSuggestion("Use formats like 1M (1 MB/s), 500K (500 KB/s), or 1024 (1024 bytes/s)"))
		}

		paths, err := utils.NewFileOperations().CollectFiles(args, uploadRecursive)
		if err != nil {
			return err
		}

		endpoints := catbox.DefaultEndpoints()
		var album catbox.Album
		if uploadAlbum != "" {
			if album, err = endpoints.Normalize(uploadAlbum); err != nil {
				return reportError(err)
			}
		}

		session, err := login(ctx, config)
		if err != nil {
			return err
		}

		internal.LogInfo("Uploading %d file(s) with concurrency %d", len(paths), config.Concurrency)

		pool := utils.NewProgressPool(config.QuietMode)
		if err := pool.Start(); err != nil {
			internal.LogWarn("Progress display unavailable: %v", err)
		}

		uploader := catbox.NewUploader(session,
			catbox.WithConcurrency(config.Concurrency),
			catbox.WithProgressSink(pool),
			catbox.WithRateLimiter(utils.NewByteRateLimiter(bytesPerSecond)),
			catbox.WithLogger(internal.GetLogger()),
		)

		var outcomes []catbox.Outcome
		var firstErr error
		for outcome := range uploader.Stream(ctx, paths) {
			printOutcome(cmd.OutOrStdout(), cmd.ErrOrStderr(), outcome)
			if outcome.Err != nil && firstErr == nil {
				firstErr = outcome.Err
			}
			outcomes = append(outcomes, outcome)
		}
		pool.Stop()

		if !uploadNoHistory {
			if err := recordHistory(context.WithoutCancel(ctx), outcomes); err != nil {
				internal.LogWarn("Failed to record upload history: %v", err)
			}
		}

		if uploadAlbum != "" {
			if err := addOutcomesToAlbum(ctx, session, album, outcomes); err != nil && firstErr == nil {
				firstErr = err
			}
		}

		if firstErr != nil {
			return reportError(firstErr)
		}
		return nil
	},
}

var fileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the files owned by your account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		session, err := login(ctx, config)
		if err != nil {
			return err
		}

		files, err := catbox.NewResolver(catbox.DefaultEndpoints(), nil).ListOwnedFiles(ctx, session)
		if err != nil {
			return reportError(err)
		}

		for i, file := range files {
			fmt.Fprintf(cmd.OutOrStdout(), "File %d: %s\n", i+1, file)
		}
		return nil
	},
}

var fileHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently recorded uploads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := openHistory()
		if err != nil {
			return err
		}
		defer history.Close()

		entries, err := history.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, entry := range entries {
			result := entry.URL
			if entry.Error != "" {
				result = "failed: " + entry.Error
			}
			fmt.Fprintf(out, "%s  %s: %s\n", entry.UploadedAt.Local().Format(time.DateTime), entry.Path, result)
		}
		return nil
	},
}

func printOutcome(out, errOut io.Writer, outcome catbox.Outcome) {
	if outcome.Err != nil {
		fmt.Fprintf(errOut, "%s: %v\n", outcome.Path, outcome.Err)
		return
	}
	fmt.Fprintf(out, "%s: %s\n", outcome.Path, outcome.URL)
}

// openHistory opens the configured ledger, or the default one
func openHistory() (*store.History, error) {
	path := config.HistoryDB
	if path == "" {
		var err error
		if path, err = store.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}

// recordHistory writes one ledger row per outcome under a fresh batch ID
func recordHistory(ctx context.Context, outcomes []catbox.Outcome) error {
	history, err := openHistory()
	if err != nil {
		return err
	}
	defer history.Close()

	batch := store.NewBatchID()
	now := time.Now()
	for _, outcome := range outcomes {
		entry := internal.HistoryEntry{
			BatchID:    batch,
			Path:       outcome.Path,
			URL:        outcome.URL,
			UploadedAt: now,
		}
		if outcome.Err != nil {
			entry.Error = outcome.Err.Error()
		}
		if err := history.Record(ctx, entry); err != nil {
			return err
		}
	}

	internal.LogDebug("Recorded %d upload(s) in batch %s", len(outcomes), batch)
	return nil
}

// addOutcomesToAlbum adds every successful upload to album and returns the first failure
func addOutcomesToAlbum(ctx context.Context, session *catbox.Session, album catbox.Album, outcomes []catbox.Outcome) error {
	endpoints := session.Endpoints()
	resolver := catbox.NewResolver(endpoints, nil)

	var firstErr error
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			continue
		}
		slug, err := endpoints.ExtractSlug(outcome.URL)
		if err == nil {
			err = resolver.AddToAlbum(ctx, session, album, slug)
		}
		if err != nil {
			internal.LogError("Failed to add %s to %s: %v", outcome.Path, album, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func init() {
	fileUploadCmd.Flags().StringVar(&uploadAlbum, "album", "", "Album URL or short code to add the uploads to")
	fileUploadCmd.Flags().IntVarP(&uploadJobs, "jobs", "j", catbox.DefaultConcurrency, "Parallel uploads (1-32) (env: CATBOX_CONCURRENCY)")
	fileUploadCmd.Flags().StringVarP(&uploadRateLimit, "rate-limit", "r", "", "Upload bandwidth limit (e.g., 5M for 5MB/s) (env: CATBOX_RATE_LIMIT)")
	fileUploadCmd.Flags().BoolVar(&uploadRecursive, "recursive", false, "Upload directory contents recursively")
	fileUploadCmd.Flags().BoolVar(&uploadNoHistory, "no-history", false, "Do not record this batch in the upload history")

	fileHistoryCmd.Flags().IntVar(&historyLimit, "limit", store.DefaultLimit, "Number of entries to show")

	fileCmd.AddCommand(fileUploadCmd, fileListCmd, fileHistoryCmd)
}
