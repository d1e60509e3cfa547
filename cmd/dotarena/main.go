// Command dotarena runs the dot arena simulation headless, serving its state
// and a frame stream over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/talgya/dotarena/internal/api"
	"github.com/talgya/dotarena/internal/config"
	"github.com/talgya/dotarena/internal/dots"
	"github.com/talgya/dotarena/internal/engine"
	"github.com/talgya/dotarena/internal/persistence"
	"github.com/talgya/dotarena/internal/physics"
)

func main() {
	var (
		interval = flag.Duration("tick", engine.DefaultInterval, "fixed simulation step")
		port     = flag.Int("port", 8080, "HTTP API port (0 disables the API)")
		export   = flag.Bool("export", false, "record per-stage timings to SQLite")
		dataDir  = flag.String("data", "data", "directory for timing exports")
		duration = flag.Duration("duration", 0, "stop after this much wall time (0 = until signalled)")
		workers  = flag.Int("workers", 1, "parallel workers per stage")
		player   = flag.Bool("player", false, "spawn a manual dot driven over the stream")
		frameInt = flag.Duration("frame-interval", 50*time.Millisecond, "stream frame interval")
	)
	flag.Parse()

	setupLogging()

	if err := run(runOptions{
		interval: *interval,
		port:     *port,
		export:   *export,
		dataDir:  *dataDir,
		duration: *duration,
		workers:  *workers,
		player:   *player,
		frameInt: *frameInt,
	}); err != nil {
		slog.Error("dotarena failed", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	interval time.Duration
	port     int
	export   bool
	dataDir  string
	duration time.Duration
	workers  int
	player   bool
	frameInt time.Duration
}

// setupLogging picks a text handler on a terminal and JSON otherwise.
func setupLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("DOTARENA_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func run(o runOptions) error {
	slog.Info("dotarena starting")

	// ── Tables ────────────────────────────────────────────────────────
	settings, err := config.FromEnv(config.Default())
	if err != nil {
		return err
	}
	tables, err := config.Build(settings)
	if err != nil {
		return err
	}
	slog.Info("tables built",
		"levels", tables.Ladder.Len(),
		"max_dots", tables.Game.MaxDots,
		"fire_rate", tables.Game.FireRate,
		"seed", settings.Seed,
	)

	// ── Timing export ─────────────────────────────────────────────────
	var (
		db       *persistence.DB
		dbPath   string
		recorder *engine.TimingRecorder
	)
	if o.export {
		if err := os.MkdirAll(o.dataDir, 0755); err != nil {
			return err
		}
		dbPath = persistence.DefaultPath(o.dataDir, time.Now())
		db, err = persistence.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("timing export opened", "path", dbPath)
	}

	// ── Simulation ────────────────────────────────────────────────────
	world := physics.NewWorld(settings.ArenaHalfWidth, settings.ArenaHalfDepth, physics.DefaultCellSize)
	opts := engine.Options{
		Workers: o.workers,
		Physics: world,
		Sites:   world,
	}
	if db != nil {
		recorder = engine.NewTimingRecorder(db, 50)
		opts.Observer = recorder
	}
	sim := engine.NewSimulation(tables, opts)

	runID := ""
	if db != nil {
		runID, err = db.StartRun(settings, sim.Stages())
		if err != nil {
			return err
		}
		slog.Info("timing run started", "run", runID)
	}

	if o.player {
		sim.SpawnPlayer(dots.Vec3{}, dots.TeamBlue, 0)
	}

	eng := engine.NewEngine()
	eng.Interval = o.interval
	dt := o.interval.Seconds()
	eng.OnTick = func(uint64) error { return sim.Advance(dt) }
	eng.OnSummary = func(tick uint64) {
		st := sim.Status()
		slog.Info("summary",
			"tick", humanize.Comma(int64(tick)),
			"sim_time", time.Duration(st.Elapsed*float64(time.Second)).Round(time.Millisecond),
			"alive", st.Alive,
			"slots", st.Slots,
			"spawned", humanize.Comma(int64(st.Totals.Spawned)),
			"removed", humanize.Comma(int64(st.Totals.Removed)),
			"shots", humanize.Comma(int64(st.Totals.Shots)),
		)
	}

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if o.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.duration)
		defer cancel()
	}

	if o.port > 0 {
		srv := &api.Server{
			Sim:           sim,
			Eng:           eng,
			Port:          o.port,
			AdminKey:      os.Getenv("DOTARENA_ADMIN_KEY"),
			RunID:         runID,
			FrameInterval: o.frameInt,
		}
		if env := os.Getenv("DOTARENA_CORS_ORIGINS"); env != "" {
			srv.Origins = strings.Split(env, ",")
		}
		srv.Start(ctx)
	}

	runErr := eng.Run(ctx)

	// ── Shutdown ──────────────────────────────────────────────────────
	st := sim.Status()
	if err := sim.CheckInvariants(); err != nil {
		slog.Warn("pool invariants violated at shutdown", "error", err)
	}

	if recorder != nil {
		if err := recorder.Flush(); err != nil {
			runErr = errors.Join(runErr, err)
		}
		if n, err := db.TickCount(runID); err == nil {
			size := ""
			if fi, err := os.Stat(dbPath); err == nil {
				size = humanize.Bytes(uint64(fi.Size()))
			}
			slog.Info("timing export written", "path", dbPath, "ticks", humanize.Comma(int64(n)), "size", size)
		}
	}

	slog.Info("dotarena stopped",
		"ticks", humanize.Comma(int64(st.Totals.Ticks)),
		"alive", st.Alive,
		"spawned", humanize.Comma(int64(st.Totals.Spawned)),
		"removed", humanize.Comma(int64(st.Totals.Removed)),
		"dropped", st.Totals.Dropped,
		"blocked", st.Totals.Blocked,
	)
	return runErr
}
