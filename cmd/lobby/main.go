package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/arcade/lobby/internal/api"
	"github.com/arcade/lobby/internal/config"
	"github.com/arcade/lobby/internal/eventloop"
	"github.com/arcade/lobby/internal/fanout"
	"github.com/arcade/lobby/internal/lifecycle"
	"github.com/arcade/lobby/internal/messaging"
	"github.com/arcade/lobby/internal/presence"
	"github.com/arcade/lobby/internal/protocol"
	"github.com/arcade/lobby/internal/ratelimit"
	"github.com/arcade/lobby/internal/session"
	"github.com/arcade/lobby/internal/social"
	"github.com/arcade/lobby/internal/store"
	"github.com/arcade/lobby/internal/store/memory"
	"github.com/arcade/lobby/internal/store/postgres"
	"github.com/arcade/lobby/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := config.SetupLogging(cfg.LogLevel, cfg.LogFormat, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	// --- Event loop ---
	loop := eventloop.New(cfg.EventQueueSize)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go loop.Run(loopCtx)

	var (
		socialOpts    []social.Option
		lifecycleOpts []lifecycle.Option
		sessions      ws.SessionStore
	)

	// --- Redis ---
	if cfg.RedisAddr != "" {
		sessionStore, err := session.NewStore(cfg.RedisAddr, cfg.ServerName)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer sessionStore.Close()
		sessions = sessionStore
		lifecycleOpts = append(lifecycleOpts, lifecycle.WithSessionMirror(sessionStore))

		if cfg.InviteCooldown > 0 {
			limiter := ratelimit.NewLimiter(sessionStore.Client())
			socialOpts = append(socialOpts, social.WithThrottle(
				ratelimit.NewGate(limiter, ratelimit.InviteRule(cfg.InviteCooldown)),
			))
		}
	} else if cfg.InviteCooldown > 0 {
		log.Warn().Msg("INVITE_COOLDOWN needs REDIS_ADDR, cooldown disabled")
	}

	// --- NATS ---
	var natsClient *messaging.NATSClient
	if cfg.NATSURL != "" {
		natsConfig := messaging.DefaultNATSConfig()
		natsConfig.URL = cfg.NATSURL
		natsConfig.Name = "lobby-" + cfg.ServerName
		natsClient, err = messaging.NewNATSClient(natsConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer natsClient.Close()
		lifecycleOpts = append(lifecycleOpts, lifecycle.WithPresencePublisher(natsClient))
	}

	// --- Transport and domain ---
	wsConfig := ws.DefaultServerConfig()
	wsConfig.ListenAddr = cfg.ListenAddr
	wsConfig.WorkerPoolSize = cfg.WorkerPoolSize
	wsConfig.MaxConnections = cfg.MaxConnections
	wsConfig.ReadTimeout = cfg.ReadTimeout
	wsConfig.WriteTimeout = cfg.WriteTimeout
	wsConfig.SendBuffer = cfg.SendBuffer
	if cfg.TLS() {
		wsConfig.CertFile = cfg.SSLCertPath
		wsConfig.KeyFile = cfg.SSLKeyPath
	}

	dispatcher := ws.NewMessageDispatcher()
	server := ws.NewServer(wsConfig, sessions, dispatcher.Dispatch)

	reg := presence.NewRegistry()
	bcast := fanout.New(reg, server)
	coord := social.New(st, bcast, loop, socialOpts...)
	lc := lifecycle.New(presence.NewTracker(reg), st, bcast, loop, lifecycleOpts...)

	registerHandlers(dispatcher, lc, coord)
	server.SetOnConnect(func(c *ws.Connection) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lc.Connect(ctx, c.ID); err != nil {
			log.Warn().Str("conn", c.ID).Err(err).Msg("initial snapshot failed")
		}
	})
	server.SetOnDisconnect(func(handle string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lc.Disconnect(ctx, handle); err != nil {
			log.Warn().Str("conn", handle).Err(err).Msg("disconnect failed")
		}
	})
	server.SetOnlineCounter(lc.OnlineUsers)

	rest := api.New(st, coord, api.WithStaticDir(cfg.StaticDir))
	server.Handle("/", rest.Router())

	if natsClient != nil {
		err := natsClient.SubscribeTournament(func(u protocol.TournamentUpdate) {
			if err := coord.NotifyTournament(ctx, u.Message, u.Status); err != nil {
				log.Warn().Err(err).Msg("tournament notice dropped")
			}
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to subscribe to tournament notices")
		}
	}

	if cfg.SweepInterval > 0 {
		lc.StartSweeper(ctx, cfg.SweepInterval, server.IsOpen)
	}

	log.Info().
		Str("listen_addr", cfg.ListenAddr).
		Str("store", cfg.StoreDriver).
		Bool("redis", cfg.RedisAddr != "").
		Bool("nats", cfg.NATSURL != "").
		Bool("tls", cfg.TLS()).
		Dur("invite_cooldown", cfg.InviteCooldown).
		Str("server_name", cfg.ServerName).
		Msg("lobby starting")

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	}

	// Connections close while the loop still runs, so presence is cleared.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	stopLoop()
	log.Info().Msg("lobby stopped")
}

// openStore opens the configured driver, migrating and seeding as asked.
func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	var st store.Store
	switch cfg.StoreDriver {
	case config.DriverMemory:
		st = memory.New()
	default:
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := postgres.Migrate(pg.DB()); err != nil {
				pg.Close()
				return nil, err
			}
		}
		st = pg
	}

	if cfg.SeedUsers {
		if err := store.Seed(ctx, st); err != nil {
			st.Close()
			return nil, fmt.Errorf("seed users: %w", err)
		}
	}
	return st, nil
}
