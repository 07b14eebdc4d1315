package arg

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	"github.com/vladimiradmaev/therapy-overrides/internal/logger"
	"github.com/vladimiradmaev/therapy-overrides/internal/repository"
	"github.com/vladimiradmaev/therapy-overrides/internal/services"
	"github.com/vladimiradmaev/therapy-overrides/internal/state"
)

// options are the persistent flags shared by every command.
type options struct {
	dbPath   string
	userID   int64
	now      string
	timeZone string
	window   time.Duration
	verbose  bool

	basal       string
	sensitivity string
	carbRatio   string
	target      string
}

// app is one opened store plus the service working on it.
type app struct {
	db      *sql.DB
	store   *repository.SQLiteHistoryRepository
	anchors *state.Manager
	service *services.OverrideService
	userID  int64
	now     time.Time
}

// NewRootCommand builds the overridectl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "overridectl",
		Short: "overridectl inspects and edits stored override histories",
		Long: `overridectl works directly on the SQLite override store.
It records and cancels overrides, resolves the effective therapy settings
and replays anchored sync the way a client would see it.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.dbPath, "db", "data/overrides.db", "Path to the SQLite override store")
	flags.Int64VarP(&opts.userID, "user", "u", 1, "Telegram ID of the history owner")
	flags.StringVar(&opts.now, "now", "", "Current time (RFC3339), defaults to the wall clock")
	flags.StringVar(&opts.timeZone, "tz", "UTC", "IANA time zone of the schedules")
	flags.DurationVar(&opts.window, "window", 10*time.Hour, "Relevant time window of the history")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")
	flags.StringVar(&opts.basal, "basal", "", "Basal schedule, e.g. \"00:00=0.8,12:00=1.2\"")
	flags.StringVar(&opts.sensitivity, "sensitivity", "", "Insulin sensitivity schedule")
	flags.StringVar(&opts.carbRatio, "carb-ratio", "", "Carb ratio schedule")
	flags.StringVar(&opts.target, "target", "", "Target range schedule, e.g. \"00:00=100-120\"")

	rootCmd.AddCommand(
		newRecordCmd(opts),
		newCancelCmd(opts),
		newResolveCmd(opts),
		newSyncCmd(opts),
		newEventsCmd(opts),
		newUsersCmd(opts),
	)
	return rootCmd
}

func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp opens the store for the duration of run.
func withApp(cmd *cobra.Command, opts *options, run func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()

	now := time.Now()
	if opts.now != "" {
		parsed, err := time.Parse(time.RFC3339, opts.now)
		if err != nil {
			return fmt.Errorf("invalid --now (use RFC3339): %w", err)
		}
		now = parsed
	}

	schedules, err := opts.schedules()
	if err != nil {
		return err
	}

	level := logger.LevelWarn
	if opts.verbose {
		level = logger.LevelDebug
	}
	log := logger.New(cmd.ErrOrStderr(), logger.Config{Level: level, Format: "text"})

	db, err := database.OpenSQLite(ctx, opts.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	store := repository.NewSQLiteHistoryRepository(db)
	anchors := state.NewManager()
	service := services.NewOverrideService(store, nil, anchors, schedules, services.OverrideServiceConfig{
		RelevantTimeWindow: opts.window,
		Logger:             log,
		Now:                func() time.Time { return now },
	})

	return run(ctx, &app{
		db:      db,
		store:   store,
		anchors: anchors,
		service: service,
		userID:  opts.userID,
		now:     now,
	})
}
