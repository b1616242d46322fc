package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/smugsync/smugsync/internal/config"
	"github.com/smugsync/smugsync/internal/engine"
	"github.com/smugsync/smugsync/internal/localfs"
	"github.com/smugsync/smugsync/internal/model"
	"github.com/smugsync/smugsync/internal/policy"
	"github.com/smugsync/smugsync/internal/smugmug"
)

// syncFlags mirrors the config surface; only flags the user actually
// set override the config files.
type syncFlags struct {
	sync              string
	baseDir           string
	account           string
	consumerKey       string
	consumerSecret    string
	accessToken       string
	accessTokenSecret string

	macPhotosLibraryLocation string

	forceRefresh bool
	dryRun       bool
	testUpload   bool

	logLevel string
}

func newSyncCmd() *cobra.Command {
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one reconciliation of the local tree against the service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			applyFlagOverrides(cmd, cfg, &flags)

			if err := config.Validate(cfg); err != nil {
				return err
			}

			logger := buildLogger(cfg.LogLevel)
			slog.SetDefault(logger)

			return runSync(cmd.Context(), cfg, logger)
		},
	}

	bindSyncFlags(cmd, &flags)

	return cmd
}

func bindSyncFlags(cmd *cobra.Command, flags *syncFlags) {
	cmd.Flags().StringVar(&flags.sync, "sync", "",
		"sync preset ("+strings.Join(policy.PresetNames(), ", ")+")")
	cmd.Flags().StringVar(&flags.baseDir, "base_dir", "", "root of the local photo tree")
	cmd.Flags().StringVar(&flags.account, "account", "", "service account nickname")
	cmd.Flags().StringVar(&flags.consumerKey, "consumer_key", "", "OAuth1 consumer key")
	cmd.Flags().StringVar(&flags.consumerSecret, "consumer_secret", "", "OAuth1 consumer secret")
	cmd.Flags().StringVar(&flags.accessToken, "access_token", "", "OAuth1 access token")
	cmd.Flags().StringVar(&flags.accessTokenSecret, "access_token_secret", "", "OAuth1 access token secret")
	cmd.Flags().StringVar(&flags.macPhotosLibraryLocation, "mac_photos_library_location", "",
		"path of the Photos library (reserved for the ingestion tools)")
	cmd.Flags().BoolVar(&flags.forceRefresh, "force_refresh", false, "ignore sync state and compare every album deeply")
	cmd.Flags().BoolVar(&flags.dryRun, "dry_run", false, "log intended changes without making any")
	cmd.Flags().BoolVar(&flags.testUpload, "test_upload", false, "redirect all traffic under the account's Test folder")
	cmd.Flags().StringVar(&flags.logLevel, "log_level", "", "log level (debug, info, warn, error)")
}

// applyFlagOverrides copies explicitly set flags onto the file-loaded
// config. CLI always wins over the config files.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, flags *syncFlags) {
	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}

	set("sync", func() { cfg.Sync = flags.sync })
	set("base_dir", func() { cfg.BaseDir = flags.baseDir })
	set("account", func() { cfg.Account = flags.account })
	set("consumer_key", func() { cfg.ConsumerKey = flags.consumerKey })
	set("consumer_secret", func() { cfg.ConsumerSecret = flags.consumerSecret })
	set("access_token", func() { cfg.AccessToken = flags.accessToken })
	set("access_token_secret", func() { cfg.AccessTokenSecret = flags.accessTokenSecret })
	set("mac_photos_library_location", func() { cfg.MacPhotosLibraryLocation = flags.macPhotosLibraryLocation })
	set("force_refresh", func() { cfg.ForceRefresh = flags.forceRefresh })
	set("dry_run", func() { cfg.DryRun = flags.dryRun })
	set("test_upload", func() { cfg.TestUpload = flags.testUpload })
	set("log_level", func() { cfg.LogLevel = flags.logLevel })
}

// runSync is the main flow: connect, scan both sides concurrently,
// reconcile, print the summary.
func runSync(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	action, err := cfg.Action()
	if err != nil {
		return err
	}

	if cfg.Sync == "optimize" {
		// The duplicate-cleanup optimizers are separate tools; the preset
		// only validates configuration here.
		logger.Info("optimize preset performs no reconciliation")
		return nil
	}

	client := smugmug.NewClient(smugmug.Credentials{
		ConsumerKey:       cfg.ConsumerKey,
		ConsumerSecret:    cfg.ConsumerSecret,
		AccessToken:       cfg.AccessToken,
		AccessTokenSecret: cfg.AccessTokenSecret,
	}, logger)

	conn := smugmug.NewConnection(client, cfg.Account, cfg.TestUpload, logger)
	if err := conn.Connect(ctx); err != nil {
		return err
	}

	var diskRoot, onlineRoot *model.RootFolder

	g, scanCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		diskRoot, err = localfs.NewScanner(logger).Scan(scanCtx, cfg.BaseDir)

		return err
	})
	g.Go(func() error {
		var err error
		onlineRoot, err = smugmug.ScanRemote(scanCtx, conn, logger)

		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("scan complete",
		slog.String("disk", diskRoot.Stats.String()),
		slog.String("online", onlineRoot.Stats.String()),
	)

	eng := engine.New(conn, engine.Options{
		Action:       action,
		DryRun:       cfg.DryRun,
		ForceRefresh: cfg.ForceRefresh,
		Logger:       logger,
	})

	runErr := eng.Synchronize(ctx, diskRoot, onlineRoot)

	printSummary(eng, cfg.DryRun)

	return runErr
}

// summaryKinds fixes the display order of the per-kind event counters.
var summaryKinds = []engine.Kind{
	engine.UploadFolder,
	engine.UploadAlbum,
	engine.DeleteFolderOnline,
	engine.DeleteAlbumOnline,
	engine.DownloadFolder,
	engine.DownloadAlbum,
	engine.DeleteFolderDisk,
	engine.DeleteAlbumDisk,
	engine.SyncAlbums,
}

func printSummary(eng *engine.Engine, dryRun bool) {
	d := eng.Dispatcher()
	t := eng.Transfers()

	fmt.Printf("Events: %d submitted, %d processed\n", d.Submitted(), d.Processed())

	counts := d.Counts()
	for _, kind := range summaryKinds {
		if n := counts[kind]; n > 0 {
			fmt.Printf("  %-22s %d\n", kind, n)
		}
	}

	fmt.Printf("Uploaded %d images (%s), downloaded %d images (%s)",
		t.UploadedImages(), humanize.Bytes(uint64(t.UploadedBytes())),
		t.DownloadedImages(), humanize.Bytes(uint64(t.DownloadedBytes())),
	)

	if n := t.DeletedImages(); n > 0 {
		fmt.Printf(", deleted %d images", n)
	}

	fmt.Println()

	if dryRun {
		fmt.Println("Dry run: no changes were made.")
	}
}
