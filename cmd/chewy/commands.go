package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"golang.org/x/crypto/bcrypt"

	"github.com/sandeepkv93/chewy/internal/api"
	"github.com/sandeepkv93/chewy/internal/calsync"
	"github.com/sandeepkv93/chewy/internal/config"
	"github.com/sandeepkv93/chewy/internal/scheduler"
	"github.com/sandeepkv93/chewy/internal/service"
	"github.com/sandeepkv93/chewy/internal/storage"
	"github.com/sandeepkv93/chewy/internal/update"
	"github.com/sandeepkv93/chewy/internal/views"
)

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	loc     *time.Location
	repo    *storage.SQLiteRepository
	planner *service.Planner
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	base := config.Default()
	if path := ctx.GlobalString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		base = loaded
	}
	return config.FromEnv(base), nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// setup opens and migrates the database and wires the planner.
func setup(ctx *cli.Context) (*app, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	cal, err := cfg.WorkCalendar()
	if err != nil {
		return nil, err
	}
	recOpts, err := cfg.RecurrenceOptions()
	if err != nil {
		return nil, err
	}

	repo, err := storage.OpenSQLite(cfg.DB.Driver, cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := storage.MigrateUp(repo.DB()); err != nil {
		_ = repo.Close()
		return nil, err
	}

	syncer := calsync.NewSyncer(afero.NewOsFs(), cfg.Calendar.Dir, repo, calsync.Options{
		Location: loc,
		Marker:   cfg.Calendar.ManagedMarker,
		Logger:   logger.With(slog.String("component", "calsync")),
	})
	engine := scheduler.NewEngine(cal, recOpts, logger.With(slog.String("component", "scheduler")))
	planner := service.NewPlanner(repo, engine, service.Options{
		Syncer:         syncer,
		SyncOnGenerate: cfg.Calendar.SyncOnGenerate,
		WindowDays:     cfg.WindowDays,
		Logger:         logger,
	})
	return &app{cfg: cfg, logger: logger, loc: loc, repo: repo, planner: planner}, nil
}

// window resolves --from/--to against the planner's defaults.
func (a *app) window(ctx *cli.Context) (time.Time, time.Time, error) {
	from, to := a.planner.DefaultWindow()
	if raw := ctx.String("from"); raw != "" {
		start, err := calsync.ParseTimestamp(raw, a.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
		}
		from, to = a.planner.WindowFrom(start)
	}
	if raw := ctx.String("to"); raw != "" {
		end, err := calsync.ParseTimestamp(raw, a.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
		}
		to = end
	}
	return from, to, nil
}

func serve(ctx *cli.Context) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.repo.Close()

	handler := api.New(api.Deps{
		Planner: a.planner,
		Repo:    a.repo,
		Auth: api.NewAuthenticator(api.AuthOptions{
			Secret:    a.cfg.Auth.JWTSecret,
			AdminUser: a.cfg.Auth.AdminUser,
			AdminPass: a.cfg.Auth.AdminPass,
		}),
		CORSOrigins: a.cfg.Server.CORSOrigins,
		Location:    a.loc,
		Logger:      a.logger,
	})
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", slog.String("addr", srv.Addr), slog.Bool("auth", a.cfg.Auth.JWTSecret != ""))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCtx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func migrate(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	repo, err := storage.OpenSQLite(cfg.DB.Driver, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer repo.Close()
	if ctx.Bool("down") {
		if err := storage.MigrateDown(repo.DB()); err != nil {
			return err
		}
		fmt.Println("migrations reverted")
		return nil
	}
	if err := storage.MigrateUp(repo.DB()); err != nil {
		return err
	}
	applied, err := storage.AppliedMigrations(repo.DB())
	if err != nil {
		return err
	}
	fmt.Printf("migrations applied: %s\n", strings.Join(applied, ", "))
	return nil
}

func syncCalendar(ctx *cli.Context) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.repo.Close()

	res, err := a.planner.Sync(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("synced %d event(s) from %d file(s), removed %d\n", res.EventsSynced, len(res.FilesProcessed), res.EventsDeleted)
	return nil
}

func generate(ctx *cli.Context) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.repo.Close()

	from, to, err := a.window(ctx)
	if err != nil {
		return err
	}
	bg := context.Background()
	res, err := a.planner.Generate(bg, from, to)
	if err != nil {
		return err
	}
	entries, err := a.planner.Schedule(bg, from, to)
	if err != nil {
		return err
	}
	if ctx.Bool("markdown") {
		fmt.Print(views.RenderMarkdown(views.ScheduleMarkdown(from, to, entries, &res, a.loc)))
		return nil
	}
	fmt.Print(views.ScheduleText(entries, a.loc))
	fmt.Printf("%d scheduled, %d unplaced, %d missed, %d forced\n",
		len(res.Placements), len(res.Unplaced), len(res.Missed), len(res.Diagnostics))
	for _, id := range res.Unplaced {
		fmt.Printf("unplaced: %s\n", id)
	}
	return nil
}

func agenda(ctx *cli.Context) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.repo.Close()

	from, to, err := a.window(ctx)
	if err != nil {
		return err
	}
	program := tea.NewProgram(update.NewModel(context.Background(), a.planner, from, to, a.loc), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("agenda failed: %w", err)
	}
	return nil
}

func hashPassword(ctx *cli.Context) error {
	pass := ctx.Args().First()
	if pass == "" {
		return cli.NewExitError("password required", 2)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Println(string(hash))
	return nil
}
