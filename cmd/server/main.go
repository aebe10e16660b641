package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"studysphere/internal/adapters/gateway"
	"studysphere/internal/app"
	"studysphere/internal/app/orch"
	"studysphere/internal/config"
	"studysphere/internal/domain"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	clock := clockwork.NewRealClock()
	hub := gateway.NewHub(cfg.MaxRooms)

	portals := make(map[domain.RoomID]domain.RoomKind)
	if cfg.GeneralPortal != "" {
		id := domain.RoomID(cfg.GeneralPortal)
		portals[id] = domain.KindGeneral
		hub.EnsurePortal(id, domain.RoomName(cfg.GeneralPortal), domain.KindGeneral)
	}
	if cfg.FocusPortal != "" {
		id := domain.RoomID(cfg.FocusPortal)
		portals[id] = domain.KindFocus
		hub.EnsurePortal(id, domain.RoomName(cfg.FocusPortal), domain.KindFocus)
	}
	if len(portals) == 0 {
		log.Warn().Msg("no portal rooms configured, room creation will never trigger")
	}

	reg := app.NewRegistry()
	// Re-derive sequence counters from whatever rooms the platform still
	// reports, so numbers never collide after a restart.
	reg.SeedSequences(domain.KindGeneral, hub.RoomNames(domain.KindGeneral))
	reg.SeedSequences(domain.KindFocus, hub.RoomNames(domain.KindFocus))

	goals := app.NewGoals(clock)
	stats := app.NewStats(goals, hub, clock)
	tracker := app.NewTracker(reg, stats, clock)
	lifecycle := app.NewLifecycle(reg, hub, clock, app.LifecycleOptions{
		Portals: portals,
		Prefixes: map[domain.RoomKind]string{
			domain.KindGeneral: cfg.GeneralPrefix,
			domain.KindFocus:   cfg.FocusPrefix,
		},
		Grace: cfg.EmptyRoomGrace,
	})
	pomodoro := app.NewPomodoro(hub, clock, cfg.WorkDuration, cfg.BreakDuration)

	o := orch.New(reg, lifecycle, tracker, stats, goals, pomodoro)
	hub.Bind(o)

	sweeper, err := app.StartSweeper(ctx, lifecycle, cfg.SweepInterval)
	if err != nil {
		log.Error().Err(err).Msg("failed to start sweeper")
	} else {
		defer func() { _ = sweeper.Shutdown() }()
	}

	limiter := gateway.NewCreateRateLimiter(clock, cfg.CreateLimit, cfg.CreateWindow)
	ctl := gateway.NewController(hub, o, portals, limiter, cfg)

	r := gateway.SetupRouter(ctx, cfg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("StudySphere server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
