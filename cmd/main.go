package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sawariz0r/3d-voice-room/config"
	"github.com/sawariz0r/3d-voice-room/internal/assistant"
	"github.com/sawariz0r/3d-voice-room/internal/idgen"
	"github.com/sawariz0r/3d-voice-room/internal/moderation"
	"github.com/sawariz0r/3d-voice-room/internal/postgres"
	"github.com/sawariz0r/3d-voice-room/internal/security"
	"github.com/sawariz0r/3d-voice-room/internal/service"
	grpcx "github.com/sawariz0r/3d-voice-room/internal/transport/grpc"
	httpx "github.com/sawariz0r/3d-voice-room/internal/transport/http"
	"github.com/sawariz0r/3d-voice-room/internal/transport/ws"
	"github.com/sawariz0r/3d-voice-room/pkg/logger"

	"google.golang.org/grpc"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		Level:     logger.ParseLevel(cfg.Logging.Level),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting voxstage",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	errCh := make(chan error, 4)

	// --- journal (optional) ---
	var (
		journal     *service.Journal
		history     httpx.HistoryReader
		journalDone = make(chan struct{})
	)
	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			ApplicationName: cfg.Logging.Service,
		})
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()

		repo := postgres.NewJournalRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("postgres schema: %v", err)
		}
		history = repo
		journal = service.NewJournal(repo, cfg.Journal.Buffer, cfg.Journal.BatchSize, cfg.Journal.FlushEvery)
		go func() {
			defer close(journalDone)
			if err := journal.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("journal stopped", "err", err)
			}
		}()
	} else {
		slog.Warn("postgres.dsn is empty, room journal disabled")
		close(journalDone)
	}

	// --- services ---
	rooms := service.NewRoomRegistry(idgen.NewRoomID, journal)
	hub := ws.NewHub()
	roles := service.NewRoleEngine(rooms, hub, service.NewPlacer(uint64(time.Now().UnixNano())), journal)

	moderator, err := moderation.NewModerator(cfg.Chat.BannedWords, cfg.CensorRune())
	if err != nil {
		log.Fatalf("moderation: %v", err)
	}
	var asst assistant.Assistant
	if cfg.Assistant.Enabled {
		asst = assistant.Unavailable{}
	}
	chat := service.NewChatService(rooms, hub, moderator, asst, service.ChatOptions{
		MaxLength:      cfg.Chat.MaxLength,
		ReplyTimeout:   cfg.Assistant.Timeout,
		ReplyDelay:     cfg.Assistant.Delay,
		DetectLanguage: cfg.Chat.DetectLanguage,
	})
	signals := service.NewSignalRelay(hub)

	if cfg.Rooms.IdleTTL > 0 {
		go rooms.RunSweeper(ctx, cfg.Rooms.SweepInterval, cfg.Rooms.IdleTTL)
	}

	// --- auth (optional) ---
	var verifier *security.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier, err = security.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Leeway)
		if err != nil {
			log.Fatalf("auth: %v", err)
		}
	}

	// --- WS ---
	wsOpts := ws.Options{
		PingEvery:      cfg.WS.PingEvery,
		SendBuffer:     cfg.WS.SendBuffer,
		ReadLimit:      cfg.WS.ReadLimit,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}
	deps := httpx.Deps{AllowedOrigins: cfg.HTTP.AllowedOrigins}
	if verifier != nil {
		wsOpts.Verifier = verifier
		deps.Verifier = verifier
	}
	wsServer := ws.NewServer(hub, ws.Services{
		Rooms:   rooms,
		Roles:   roles,
		Chat:    chat,
		Signals: signals,
	}, wsOpts)

	// --- HTTP ---
	deps.Handler = httpx.NewHandler(rooms, history)
	deps.WS = wsServer.HandleWS
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpx.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- gRPC (optional) ---
	var grpcServer *grpc.Server
	if cfg.GRPC.Addr != "" {
		var grpcVerifier grpcx.TokenVerifier
		if verifier != nil {
			grpcVerifier = verifier
		}
		gs, healthSrv := grpcx.New(grpcx.NewServer(rooms), grpcVerifier)
		grpcServer = gs
		defer healthSrv.Shutdown()

		go func() {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				errCh <- err
				return
			}
			slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
			if err := gs.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := wsServer.Shutdown(ctxShutdown); err != nil {
		slog.Warn("ws shutdown", "err", err)
	}
	_ = httpSrv.Shutdown(ctxShutdown)
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	chat.Stop()
	stop()
	<-journalDone
	slog.Info("stopped", "journal_dropped", journal.Dropped())
}
