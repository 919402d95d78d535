package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/config"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	appHTTP "github.com/cmlabs-hris/presence-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/presence-backend-go/internal/repository/memory"
	"github.com/cmlabs-hris/presence-backend-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/presence-backend-go/internal/service/attendance"
	"github.com/go-chi/httplog/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}

	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "development")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "presence-backend"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("Error loading timezone: ", err)
	}
	clk := clock.New(loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		attendanceRepo attendance.AttendanceRepository
		breakRepo      attendance.BreakRepository
		userRepo       user.UserRepository
		transactor     attendance.Transactor
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			log.Fatal("Error connecting to database: ", err)
		}
		defer db.Close()

		attendanceRepo = postgresql.NewAttendanceRepository(db, loc)
		breakRepo = postgresql.NewBreakRepository(db, loc)
		userRepo = postgresql.NewUserRepository(db)
		transactor = postgresql.NewTransactor(db)
	case config.DriverMemory:
		store := memory.NewStore()
		for _, entry := range cfg.Database.SeedUsers {
			u, err := user.ParseSeed(entry)
			if err != nil {
				log.Fatal("Error seeding users: ", err)
			}
			store.AddUser(u)
		}
		slog.Warn("Using in-memory storage, data is lost on restart", "seed_users", len(cfg.Database.SeedUsers))

		attendanceRepo = store.Attendances()
		breakRepo = store.Breaks()
		userRepo = store.Users()
		transactor = store
	default:
		log.Fatal("Unsupported database driver: ", cfg.Database.Driver)
	}

	hub := sse.NewHub()
	ledger := attendanceService.NewAttendanceService(attendanceRepo, breakRepo, transactor, clk, hub)
	overview := attendanceService.NewOverviewService(ledger, userRepo, clk, cfg.App.OverviewConcurrency)

	scheduler := cron.NewScheduler(ctx)
	if cfg.Cron.Enabled {
		attendanceJobs := cron.NewAttendanceJobs(breakRepo, clk, cfg.Cron.StaleBreakInterval)
		if err := attendanceJobs.RegisterJobs(scheduler); err != nil {
			log.Fatal("Error registering cron jobs: ", err)
		}
		scheduler.Start()
	}

	attendanceHandler := appHTTP.NewAttendanceHandler(ledger, overview, hub, loc, cfg.Cron.StreamKeepAlive)
	router := appHTTP.NewRouter(logger, cfg.App.AllowedOrigins, attendanceHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Cancelling the base context ends open event streams on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr, "timezone", loc.String(), "driver", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...", "open_streams", hub.TotalSubscribers())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
	scheduler.Stop()
}
