package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/teamnova/groupware-approval/internal/application/dispatcher"
	"github.com/teamnova/groupware-approval/internal/application/service"
	"github.com/teamnova/groupware-approval/internal/application/workflow"
	"github.com/teamnova/groupware-approval/internal/config"
	"github.com/teamnova/groupware-approval/internal/infrastructure/external/directory"
	"github.com/teamnova/groupware-approval/internal/infrastructure/notify"
	"github.com/teamnova/groupware-approval/internal/infrastructure/persistence/repository"
	"github.com/teamnova/groupware-approval/internal/infrastructure/persistence/sqlite"
	"github.com/teamnova/groupware-approval/internal/infrastructure/storage"
	httpserver "github.com/teamnova/groupware-approval/internal/interfaces/http"
	"github.com/teamnova/groupware-approval/pkg/database"
	"github.com/teamnova/groupware-approval/pkg/utils"
)

func main() {
	// Local .env overrides are optional
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting approval workflow service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Database and migrations
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	txManager := sqlite.NewDB(db.DB, logger)

	// Repositories
	docRepo := repository.NewDocumentRepository(db.DB, logger)
	lineRepo := repository.NewLineRepository(db.DB, logger)
	actionRepo := repository.NewActionRepository(db.DB, logger)
	presetRepo := repository.NewPresetRepository(db.DB, logger)
	attachmentRepo := repository.NewAttachmentRepository(db.DB, logger)

	kvLogger := &sugaredLogger{sugar: logger.Sugar()}

	// Event dispatcher with webhook notification delivery
	eventDispatcher := dispatcher.NewDispatcher(dispatcher.WithLogger(kvLogger))
	defer eventDispatcher.Close()

	notifier := notify.NewWebhookNotifier(notify.Config{
		WebhookURL: cfg.Notify.WebhookURL,
		Timeout:    cfg.Notify.Timeout,
	}, logger)
	notifier.RegisterHandlers(eventDispatcher)

	// External directory
	directoryClient := directory.NewClient(directory.Config{
		BaseURL: cfg.Directory.BaseURL,
		Timeout: cfg.Directory.Timeout,
	}, logger)

	// Attachment content storage
	if err := os.MkdirAll(cfg.Storage.AttachmentDir, 0755); err != nil {
		logger.Fatal("Failed to create attachment directory", zap.Error(err))
	}
	blobStore := storage.NewLocalBlobStore(cfg.Storage.AttachmentDir, logger)

	// Workflow engine and services
	engine := workflow.NewEngine(
		docRepo,
		lineRepo,
		actionRepo,
		txManager,
		kvLogger,
		workflow.WithDispatcher(eventDispatcher),
	)

	documentService := service.NewDocumentService(
		docRepo, lineRepo, actionRepo, attachmentRepo, blobStore,
		directoryClient, txManager, kvLogger,
	)
	presetService := service.NewPresetService(
		presetRepo, docRepo, lineRepo,
		directoryClient, txManager, kvLogger,
	)
	exportService := service.NewExportService(docRepo, kvLogger)

	// HTTP server
	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			ArchiveLimit: cfg.Archive.DefaultLimit,
		},
		documentService,
		presetService,
		exportService,
		engine,
		kvLogger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// sugaredLogger adapts zap's sugared logger to the key/value Logger interfaces
// used by the application layer
type sugaredLogger struct {
	sugar *zap.SugaredLogger
}

func (l *sugaredLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *sugaredLogger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}
