package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matchdown/matchdown-server-go/internal/config"
	"github.com/matchdown/matchdown-server-go/internal/game"
	"github.com/matchdown/matchdown-server-go/internal/repository"
	"github.com/matchdown/matchdown-server-go/internal/room"
	"github.com/matchdown/matchdown-server-go/internal/state"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting matchdown server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	db, err := repository.NewDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	stats := db.Stats()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()),
	)

	gameStates := repository.NewGameStateRepository(db)
	if err := gameStates.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to prepare schema", zap.Error(err))
	}

	store := state.NewStore(logger)
	seals := game.NewSealEngine(logger)
	engine := game.NewEngine(game.Rules{
		TurnTimeout:      cfg.Game.TurnTimeout,
		SelectionTimeout: cfg.Game.SelectionTimeout,
		RoundsPerGame:    cfg.Game.RoundsPerGame,
	}, seals, logger)

	manager := room.NewManager(engine, seals, store, gameStates, room.NewScheduler(), cfg.Game.ReconnectGrace, logger)
	manager.SetNotificationHandler(func(n room.Notification) {
		logger.Debug("game event",
			zap.String("type", n.Type),
			zap.String("room_id", n.RoomID),
			zap.Any("data", n.Data),
		)
	})
	logger.Info("room manager initialized",
		zap.Duration("turn_timeout", cfg.Game.TurnTimeout),
		zap.Duration("selection_timeout", cfg.Game.SelectionTimeout),
		zap.Duration("reconnect_grace", cfg.Game.ReconnectGrace),
	)

	if err := manager.Hydrate(ctx); err != nil {
		logger.Fatal("failed to restore persisted games", zap.Error(err))
	}

	activeGames, activePlayers := store.Stats()
	logger.Info("matchdown server initialized",
		zap.String("version", version),
		zap.Int("active_games", activeGames),
		zap.Int("active_players", activePlayers),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()
	manager.Shutdown()

	logger.Info("matchdown server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
