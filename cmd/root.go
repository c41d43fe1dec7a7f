package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"catbox/catbox"
	"catbox/internal"
	"catbox/utils"
)

var (
	configPath string
	proxyURL   string
	timeout    int
	quiet      bool
	debug      bool
	logLevel   string
	logFile    string
	config     *internal.Config
)

var rootCmd = &cobra.Command{
	Use:     "catbox",
	Short:   "Upload files and manage albums on catbox.moe",
	Version: "v1.0.0",
	Long: `catbox is a command-line client for catbox.moe. It logs into your account,
uploads files concurrently, lists your files and albums, and adds uploads to albums.

Examples:
  catbox config save --username neko --password hunter2
  catbox file upload -j 8 -r 2M ./shots/*.png
  catbox file upload --album abc123 clip.mp4
  catbox album fetch-files --short abc123
  catbox album list

Environment Variables:
  CATBOX_USERNAME       Account username
  CATBOX_PASSWORD       Account password
  CATBOX_CONCURRENCY    Parallel uploads (1-32)
  CATBOX_TIMEOUT        HTTP timeout in seconds
  CATBOX_PROXY          Proxy URL
  CATBOX_RATE_LIMIT     Upload rate limit (e.g., 5M)
  CATBOX_HISTORY_DB     Upload history database path`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfiguration(cmd); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		if err := internal.InitLogger(config); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		internal.LogDebug("Configuration loaded: concurrency=%d, timeout=%d, debug=%v, quiet=%v",
			config.Concurrency, config.Timeout, config.EnableDebug, config.QuietMode)
		return nil
	},
}

// resolveConfigPath returns --config or the default location
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return internal.DefaultConfigPath()
}

// loadConfiguration layers defaults, the config file, the environment and CLI flags
func loadConfiguration(cmd *cobra.Command) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	config, err = internal.LoadConfig(path)
	if err != nil {
		return err
	}
	config.LoadFromEnv()

	flags := cmd.Flags()
	if flags.Changed("proxy") {
		config.Proxy = proxyURL
	}
	if flags.Changed("timeout") {
		config.Timeout = timeout
	}

	if debug {
		config.EnableDebug = true
		config.LogLevel = "debug"
	}
	if quiet {
		config.QuietMode = true
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if logFile != "" {
		config.LogFile = logFile
	}

	return config.ValidateConfig()
}

// newHTTPClient builds the client every command shares
func newHTTPClient() (*http.Client, error) {
	return utils.NewHTTPClient(&utils.HTTPClientConfig{
		Timeout:   time.Duration(config.Timeout) * time.Second,
		ProxyURL:  config.Proxy,
		UserAgent: config.UserAgent,
		Logger:    internal.GetLogger(),
	})
}

// login authenticates with the credentials from source
func login(ctx context.Context, source internal.CredentialSource) (*catbox.Session, error) {
	creds, err := source.Credentials()
	if err != nil {
		return nil, reportError(err)
	}

	client, err := newHTTPClient()
	if err != nil {
		return nil, reportError(err)
	}

	internal.LogInfo("Logging in as %s", creds.Username)
	session, err := catbox.Login(ctx, client, creds, catbox.DefaultEndpoints())
	if err != nil {
		return nil, reportError(err)
	}
	return session, nil
}

// reportError logs typed failures at their severity and passes err through
func reportError(err error) error {
	var ce *internal.CatboxError
	if errors.As(err, &ce) {
		internal.LogCatboxError(ce)
		return err
	}
	var ve *internal.ValidationError
	if errors.As(err, &ve) {
		internal.LogValidationError(ve)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/catbox-cli/config.toml)")
	rootCmd.PersistentFlags().StringVar(&proxyURL, "proxy", "", "HTTP/SOCKS proxy URL (env: CATBOX_PROXY)")
	rootCmd.PersistentFlags().IntVar(&timeout, "timeout", 0, "HTTP timeout in seconds (env: CATBOX_TIMEOUT)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress bar output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging with file and line information (env: CATBOX_DEBUG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (debug, info, warn, error) (env: CATBOX_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr (env: CATBOX_LOG_FILE)")

	rootCmd.AddCommand(fileCmd, albumCmd, configCmd)
}

// Execute runs the command tree until completion or SIGINT/SIGTERM
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer internal.CloseLogger()
	return rootCmd.ExecuteContext(ctx)
}
