package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"spotload/internal/config"
	"spotload/internal/docker"
	"spotload/internal/logger"
	"spotload/internal/pipeline"
	"spotload/internal/progress"
	"spotload/internal/spotify"
	"spotload/internal/tagger"
	"spotload/internal/transcode"
	"spotload/internal/web"
	"spotload/internal/youtube"
	"spotload/pkg/models"
)

var rootCmd = &cobra.Command{
	Use:   "spotload <link> [quality] [folder]",
	Short: "Download Spotify tracks, albums, playlists and artists as MP3",
	Long: `Spotload resolves a Spotify link with the Spotify Web API, finds each track on YouTube
and saves it as MP3. Albums, playlists and artists get their own folder.

Quality is one of 128, 192 or 320 (default 320). A trailing existing directory is
used as the download folder.`,
	Args:          cobra.MinimumNArgs(1),
	RunE:          runLink,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var searchCmd = &cobra.Command{
	Use:   "search <query...> [quality] [folder]",
	Short: "Search Spotify and download the best matching track",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var listCmd = &cobra.Command{
	Use:   "list <file> [quality] [folder]",
	Short: "Download every link in a file, one per line",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runList,
}

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve the download API over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runWeb,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(webCmd)

	// Global flags
	rootCmd.PersistentFlags().String("spotify-id", "", "Spotify API client ID")
	rootCmd.PersistentFlags().String("spotify-secret", "", "Spotify API client secret")
	rootCmd.PersistentFlags().String("credentials", "", "KEY=VALUE credentials file (default ./credentials.txt when present)")
	rootCmd.PersistentFlags().String("download-dir", "", "Base download folder")
	rootCmd.PersistentFlags().String("transcoder", "", "Where ffmpeg runs: local or docker")
	rootCmd.PersistentFlags().String("bar", string(progress.BarGradient), "Progress bar style: gradient or moon")
	rootCmd.PersistentFlags().Bool("open", false, "Open the download folder when done")
	rootCmd.PersistentFlags().Bool("install-ytdlp", false, "Download a yt-dlp binary if none is installed")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode for detailed logging")

	// Web command flags
	webCmd.Flags().String("host", web.DefaultHost, "Interface to serve the API on")
	webCmd.Flags().Int("port", 8080, "Port to serve the API on")
}

func loadAndValidateConfig(cmd *cobra.Command) (*models.Config, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	logger.SetDebugMode(debug)

	logger.Debug("Loading configuration...")

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var flags config.Flags
	flags.SpotifyID, _ = cmd.Flags().GetString("spotify-id")
	flags.SpotifySecret, _ = cmd.Flags().GetString("spotify-secret")
	flags.CredentialsFile, _ = cmd.Flags().GetString("credentials")
	flags.DownloadDir, _ = cmd.Flags().GetString("download-dir")
	flags.Transcoder, _ = cmd.Flags().GetString("transcoder")

	if err := config.MergeWithFlags(cfg, flags); err != nil {
		return nil, err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	cfg.DownloadDir, err = config.ExpandHome(cfg.DownloadDir)
	if err != nil {
		return nil, err
	}

	logger.Debug("Configuration loaded - download dir: %s, transcoder: %s", cfg.DownloadDir, cfg.Transcoder)
	return cfg, nil
}

// app holds everything one command needs.
type app struct {
	cfg      *models.Config
	pipeline *pipeline.Pipeline
	reporter pipeline.Reporter
	tracker  *web.Tracker
	closers  []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			logger.Warn("Cleanup failed: %v", err)
		}
	}
}

func newApp(ctx context.Context, cmd *cobra.Command, withTracker bool) (*app, error) {
	cfg, err := loadAndValidateConfig(cmd)
	if err != nil {
		return nil, err
	}

	barFlag, _ := cmd.Flags().GetString("bar")
	bar, err := progress.ParseBarStyle(barFlag)
	if err != nil {
		return nil, err
	}

	if install, _ := cmd.Flags().GetBool("install-ytdlp"); install {
		if err := youtube.Install(ctx); err != nil {
			return nil, err
		}
	}

	a := &app{cfg: cfg}

	var converter transcode.Converter = transcode.FFmpeg{}
	if cfg.Transcoder == config.TranscoderDocker {
		manager, err := docker.NewManager(cfg.FFmpegImage)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, manager.Close)
		converter = manager
	}

	a.reporter = progress.NewTerminal(os.Stdout, bar)
	if withTracker {
		a.tracker = web.NewTracker(a.reporter)
		a.reporter = a.tracker
	}

	opts := pipeline.Options{DefaultDir: cfg.DownloadDir}
	if cfg.TagFiles {
		opts.Tagger = tagger.New()
	}

	fs := afero.NewOsFs()
	a.pipeline = pipeline.New(
		spotify.NewClient(cfg.SpotifyID, cfg.SpotifySecret),
		youtube.NewClient(youtube.Options{Verbose: cfg.VerboseFetch}),
		transcode.NewNormalizer(fs, converter),
		a.reporter,
		opts,
	)
	return a, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// positional splits args into the input and its trailing quality and folder.
func positional(args []string, fallbackQuality string) (rest []string, quality, folder string) {
	rest, quality, folder = splitTrailing(afero.NewOsFs(), args)
	if quality == "" {
		quality = fallbackQuality
	}
	return rest, quality, folder
}

func finish(cmd *cobra.Command, dest string) {
	if open, _ := cmd.Flags().GetBool("open"); open && dest != "" {
		if err := openFolder(dest); err != nil {
			logger.Warn("Failed to open %s: %v", dest, err)
		}
	}
}

// reportedError is an error the reporter has already shown to the user.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// reportFailure shows err through the reporter. An unsupported link is a
// message, not a failure, so the command still exits 0.
func reportFailure(reporter pipeline.Reporter, input string, err error) error {
	reporter.LinkFailed(input, err)
	if errors.Is(err, pipeline.ErrUnsupportedLink) {
		return nil
	}
	return reportedError{err: err}
}

func runLink(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	rest, quality, folder := positional(args, a.cfg.Quality)
	if len(rest) != 1 {
		return fmt.Errorf("expected one link, got %q", strings.Join(rest, " "))
	}

	res, err := a.pipeline.RunWithSummary(ctx, rest[0], folder, quality)
	if err != nil {
		return reportFailure(a.reporter, rest[0], err)
	}
	finish(cmd, res.Destination)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	rest, quality, folder := positional(args, a.cfg.Quality)
	query := strings.Join(rest, " ")

	res, err := a.pipeline.RunSearch(ctx, query, folder, quality)
	if err != nil {
		return reportFailure(a.reporter, "search: "+query, err)
	}
	finish(cmd, res.Destination)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	rest, quality, folder := positional(args, a.cfg.Quality)
	if len(rest) != 1 {
		return fmt.Errorf("expected one list file, got %q", strings.Join(rest, " "))
	}

	if err := a.pipeline.RunList(ctx, rest[0], folder, quality); err != nil {
		return err
	}

	dest := folder
	if dest == "" {
		dest = a.cfg.DownloadDir
	}
	finish(cmd, dest)
	return nil
}

func runWeb(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}

	host, _ := cmd.Flags().GetString("host")

	server := web.NewServer(a.pipeline, a.tracker, web.ServerConfig{
		Host:    host,
		Port:    port,
		BaseDir: a.cfg.DownloadDir,
		Quality: a.cfg.Quality,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received interrupt signal, shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("error during shutdown: %w", err)
		}
		logger.Info("Server shut down gracefully")
		return nil

	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var reported reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
