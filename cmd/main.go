package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"s3up/internal/compare"
	"s3up/internal/config"
	"s3up/internal/history"
	"s3up/internal/logger"
	"s3up/internal/metrics"
	"s3up/internal/progress"
	"s3up/internal/stats"
	"s3up/internal/storage"
	"s3up/internal/uploader"
	"s3up/internal/walker"
	"s3up/internal/worker"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "s3up PATH",
	Short: "Upload files to S3 with smart comparison and pre-signed URLs",
	Long: `A smart S3 uploader that skips files already present with identical
content and generates time-limited pre-signed URLs for everything that
ends up on S3. Supports directory uploads with extension filtering and
concurrent transfers. Configure via .env with AWS credentials.`,
	Args: cobra.ExactArgs(1),
	RunE: run,
	Example: `  s3up ./video.mp4                    # Upload single file
  s3up .                              # Upload all mp4/mov files in current directory
  s3up ./videos -e mp4,mov,avi        # Upload with custom extensions
  s3up ./video.mp4 --url-only         # Generate pre-signed URL only`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (optional YAML)")

	rootCmd.Flags().Bool("url-only", false, "Only generate pre-signed URLs, don't upload")
	rootCmd.Flags().StringSliceP("extensions", "e", []string{"mp4", "mov"}, "Allowed file extensions (comma-separated)")
	rootCmd.Flags().IntP("max-concurrent", "c", 4, "Maximum number of concurrent uploads")
	rootCmd.Flags().Bool("dry-run", false, "Show what would be uploaded without uploading")
	rootCmd.Flags().Int("url-expiry-hours", config.DefaultURLExpiryHours, "Pre-signed URL expiration in hours (capped at 168)")
	rootCmd.Flags().Bool("flatten", false, "Flatten directory structure (remove subdirectories)")
	rootCmd.Flags().String("prefix", "", "Custom key prefix (overrides S3_TARGET_PATH for this run)")
	rootCmd.Flags().String("content-type", "", "Override Content-Type for uploaded files")
	rootCmd.Flags().String("metadata", "", "Custom metadata (key=value pairs, comma-separated)")
	rootCmd.Flags().String("tags", "", "Object tags (key=value pairs, comma-separated)")
	rootCmd.Flags().String("history", "", "Record per-file outcomes in a SQLite journal at this path")
	rootCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :8080)")
	rootCmd.Flags().String("log-level", "", "Log level (debug/info/warn/error)")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	files, err := walker.Collect(args[0], cfg.Upload.Extensions)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("No files found with extensions: %s\n", strings.Join(cfg.Upload.Extensions, ", "))
		return nil
	}

	client, err := storage.NewMinIOClient(storage.Config{
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		Profile:   cfg.S3.Profile,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Secure:    cfg.S3.Secure,
	})
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}

	app := &app{
		cfg:    cfg,
		log:    log,
		client: client,
		base:   args[0],
		files:  files,
	}
	return app.run(cmd.Context())
}

type app struct {
	cfg    *config.Config
	log    *zap.Logger
	client storage.Client
	base   string
	files  []string
}

func (a *app) run(ctx context.Context) error {
	cfg := a.cfg

	mode := worker.ModeUpload
	switch {
	case cfg.Upload.DryRun:
		mode = worker.ModeDryRun
		fmt.Println("🔍 DRY RUN MODE - No files will be uploaded")
	case cfg.Upload.URLOnly:
		mode = worker.ModeURLOnly
		fmt.Printf("🔗 Generating pre-signed URLs (%d workers)...\n", cfg.Upload.MaxConcurrent)
	default:
		fmt.Printf("⚡ Uploading with %d workers...\n", cfg.Upload.MaxConcurrent)
	}
	fmt.Printf("📦 Target: s3://%s/%s\n", cfg.S3.Bucket, cfg.KeyPrefix())

	st := stats.New()
	collector := metrics.New()
	if cfg.Upload.MetricsAddr != "" {
		go func() {
			if err := collector.StartServer(cfg.Upload.MetricsAddr); err != nil {
				a.log.Error("Failed to start metrics server", zap.Error(err))
			}
		}()
	}

	var journal history.Store
	if cfg.Upload.History != "" {
		store, err := history.NewSQLiteStore(cfg.Upload.History)
		if err != nil {
			return fmt.Errorf("failed to open history journal: %w", err)
		}
		defer store.Close()
		journal = store
	}

	// One bar per worker; a no-op sink when there is no terminal or
	// nothing transfers.
	var renderer *progress.Renderer
	newSink := func() progress.Sink { return progress.Nop{} }
	if mode == worker.ModeUpload && progress.IsTerminalSupported() {
		renderer = progress.NewRenderer(os.Stdout, 200*time.Millisecond)
		newSink = func() progress.Sink { return renderer.Bar() }
	}

	processor := worker.NewProcessor(worker.ProcessorConfig{
		Mode:       mode,
		Client:     a.client,
		Bucket:     cfg.S3.Bucket,
		Comparator: compare.New(a.client, cfg.S3.Bucket, a.log),
		Uploader: uploader.New(a.client, cfg.S3.Bucket, uploader.Config{
			ContentType: cfg.Upload.ContentType,
			Metadata:    cfg.Upload.Metadata,
			Tags:        cfg.Upload.Tags,
		}, a.log),
		BasePath:  a.base,
		Flatten:   cfg.Upload.Flatten,
		KeyPrefix: cfg.KeyPrefix(),
		URLExpiry: time.Duration(cfg.Upload.URLExpiryHours) * time.Hour,
		Stats:     st,
		Metrics:   collector,
		History:   journal,
		Logger:    a.log,
	})

	jobs := make(chan worker.Job, cfg.Upload.MaxConcurrent*2)
	results := make(chan worker.Result, cfg.Upload.MaxConcurrent*2)

	pool := worker.NewPool(cfg.Upload.MaxConcurrent, processor, newSink, a.log)
	go pool.Run(ctx, jobs, results)

	if renderer != nil {
		renderer.Start()
	}

	go func() {
		defer close(jobs)
		for _, f := range a.files {
			select {
			case jobs <- worker.Job{Path: f}:
			case <-ctx.Done():
				return
			}
		}
	}()

	collected := worker.Collect(results)

	if renderer != nil {
		renderer.Stop()
	}

	fmt.Println()
	printResults(collected, cfg.S3.Bucket)

	fmt.Println()
	if mode == worker.ModeURLOnly {
		fmt.Println(st.URLSummary())
	} else if mode == worker.ModeUpload {
		fmt.Println(strings.Repeat("═", 70))
		fmt.Println(st.UploadSummary())
	}

	return nil
}

func printResults(results []worker.Result, bucket string) {
	for _, r := range results {
		switch r.Kind {
		case worker.Uploaded:
			fmt.Printf("✓ %s (%s)\n", r.Name, humanize.IBytes(uint64(r.Size)))
			fmt.Printf("  🔗 %s\n", r.URL)
		case worker.Skipped:
			fmt.Printf("↻ %s (skipped - identical, %s)\n", r.Name, humanize.IBytes(uint64(r.Size)))
			fmt.Printf("  🔗 %s\n", r.URL)
		case worker.Failed:
			fmt.Printf("✗ %s - %s\n", r.Name, r.Err)
		case worker.URLGenerated:
			fmt.Printf("✓ %s\n", r.Name)
			fmt.Printf("  🔗 %s\n", r.URL)
		case worker.NotFound:
			fmt.Printf("⚠ %s (not found on S3)\n", r.Name)
		case worker.WouldUpload:
			fmt.Printf("  WOULD UPLOAD %s → s3://%s/%s (%s)\n", r.Name, bucket, r.Key, humanize.IBytes(uint64(r.Size)))
		case worker.WouldUpdate:
			fmt.Printf("  WOULD UPDATE %s → s3://%s/%s (%s)\n", r.Name, bucket, r.Key, humanize.IBytes(uint64(r.Size)))
		case worker.WouldSkip:
			fmt.Printf("  WOULD SKIP %s (%s)\n", r.Name, humanize.IBytes(uint64(r.Size)))
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
