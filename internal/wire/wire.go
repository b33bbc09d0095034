// Package wire provides dependency injection for the efiling application.
// It creates singleton services with lazy initialization.
package wire

import (
	"context"
	"database/sql"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-logr/logr"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	cliadapter "github.com/example/efiling/internal/adapters/cli"
	"github.com/example/efiling/internal/adapters/filesystem"
	"github.com/example/efiling/internal/adapters/mongo"
	"github.com/example/efiling/internal/adapters/sqlite"
	"github.com/example/efiling/internal/adapters/staging"
	"github.com/example/efiling/internal/app"
	"github.com/example/efiling/internal/config"
	"github.com/example/efiling/internal/db"
	"github.com/example/efiling/internal/idgen"
	"github.com/example/efiling/internal/logging"
	"github.com/example/efiling/internal/metrics"
	"github.com/example/efiling/internal/ports/primary"
	"github.com/example/efiling/internal/ports/secondary"
)

// HomeEnv names the directory holding .efiling/. Defaults to the working directory.
const HomeEnv = "EFILING_HOME"

var (
	cfg    *config.Config
	logger logr.Logger

	database    *sql.DB
	stagingDB   *gorm.DB
	mongoClient *mongodriver.Client

	submissionService primary.SubmissionService
	lifecycleService  primary.LifecycleService
	orchestrator      primary.Orchestrator
	notifications     *sqlite.NotificationOutbox
	conversions       *sqlite.ConversionOutbox
	convertedFiles    *filesystem.ConvertedFileStore

	once sync.Once
)

// HomeDir returns the directory the configuration is loaded from.
func HomeDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// Logger returns the root logger.
func Logger() logr.Logger {
	once.Do(initServices)
	return logger
}

// SubmissionService returns the singleton SubmissionService instance.
func SubmissionService() primary.SubmissionService {
	once.Do(initServices)
	return submissionService
}

// LifecycleService returns the singleton LifecycleService instance.
func LifecycleService() primary.LifecycleService {
	once.Do(initServices)
	return lifecycleService
}

// Orchestrator returns the singleton Orchestrator instance.
func Orchestrator() primary.Orchestrator {
	once.Do(initServices)
	return orchestrator
}

// NotificationOutbox returns the outbox notifications are recorded in.
func NotificationOutbox() *sqlite.NotificationOutbox {
	once.Do(initServices)
	return notifications
}

// ConversionOutbox returns the outbox conversion requests are recorded in.
func ConversionOutbox() *sqlite.ConversionOutbox {
	once.Do(initServices)
	return conversions
}

// ConvertedFiles returns the store converted images are read from.
func ConvertedFiles() *filesystem.ConvertedFileStore {
	once.Do(initServices)
	return convertedFiles
}

// Database returns the lifecycle sqlite database.
func Database() *sql.DB {
	once.Do(initServices)
	return database
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	bootstrap, _ := logging.New("info", false)

	var err error
	cfg, err = config.LoadConfig(HomeDir())
	if err != nil {
		logging.Fatal(bootstrap, err, "failed to load configuration")
	}

	logger, err = logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		logging.Fatal(bootstrap, err, "failed to initialize logger")
	}
	metrics.Register()

	// History and the outboxes always live in sqlite.
	database, err = db.Open(cfg.Store.SQLitePath)
	if err != nil {
		logging.Fatal(logger, err, "failed to initialize database", "path", cfg.Store.SQLitePath)
	}

	clock := idgen.SystemClock{}
	history := sqlite.NewStatusHistoryRepository(database)
	notifications = sqlite.NewNotificationOutbox(database, clock)
	conversions = sqlite.NewConversionOutbox(database, clock)

	repo := submissionRepository()

	stagingDB, err = staging.Open(cfg.Staging.Dialect, cfg.Staging.DSN, logger.WithName("staging"))
	if err != nil {
		logging.Fatal(logger, err, "failed to open staging database", "dialect", cfg.Staging.Dialect)
	}
	if err := staging.Migrate(context.Background(), stagingDB); err != nil {
		logging.Fatal(logger, err, "failed to migrate staging schema")
	}
	gateway := staging.NewGateway(stagingDB, cfg.Staging.AttachmentTypeID)

	batchPrefix, err := idgen.NewRandomStringPattern(cfg.Loader.BatchNamePattern, cfg.Loader.BatchNameAlphabet, nil)
	if err != nil {
		logging.Fatal(logger, err, "invalid batch name pattern")
	}
	namer, err := idgen.NewBatchNamer(batchPrefix, cfg.Loader.BatchSuffixWidth)
	if err != nil {
		logging.Fatal(logger, err, "invalid batch name settings")
	}
	barcodePattern, err := idgen.NewRandomStringPattern(cfg.Loader.BarcodePattern, cfg.Loader.BarcodeAlphabet, nil)
	if err != nil {
		logging.Fatal(logger, err, "invalid barcode pattern")
	}

	convertedFiles, err = filesystem.NewConvertedFileStore(cfg.Loader.ConvertedFilesDir)
	if err != nil {
		logging.Fatal(logger, err, "failed to open converted file store")
	}

	loader := app.NewFesLoaderService(app.StagingDAOs{
		Batches:         gateway.Batches,
		Envelopes:       gateway.Envelopes,
		Images:          gateway.Images,
		CoveringLetters: gateway.CoveringLetters,
		Forms:           gateway.Forms,
	}, namer, clock)

	// Create effect executor with the outbox as sender
	executor := app.NewEffectExecutor(notifications)

	// Create services (primary ports implementation)
	submissionService = app.NewSubmissionService(repo, history, executor, clock, cfg.Notifications.InternalRecipient)
	lifecycleService = app.NewLifecycleService(repo, history, executor, clock, app.LifecycleOptions{
		DelayedThreshold:  cfg.Lifecycle.DelayedSubmissionThreshold.Duration,
		MaxUpdateAttempts: cfg.Lifecycle.MaxUpdateAttempts,
		InternalRecipient: cfg.Notifications.InternalRecipient,
		SupportRecipient:  cfg.Notifications.SupportRecipient,
		BusinessRecipient: cfg.Notifications.BusinessRecipient,
	})
	orchestrator = app.NewOrchestrator(app.OrchestratorDeps{
		Repo:       repo,
		History:    history,
		Converter:  conversions,
		Files:      convertedFiles,
		Loader:     loader,
		Barcodes:   idgen.NewPatternBarcodeGenerator(barcodePattern),
		Clock:      clock,
		SweepLimit: cfg.Lifecycle.SweepLimit,
	})
}

// submissionRepository selects the submission store named by the configuration.
func submissionRepository() secondary.SubmissionRepository {
	if cfg.Store.Driver != config.DriverMongo {
		return sqlite.NewSubmissionRepository(database)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	mongoClient, err = mongo.Connect(ctx, cfg.Store.MongoURI)
	if err != nil {
		logging.Fatal(logger, err, "failed to connect to mongo")
	}
	repo := mongo.NewSubmissionRepository(mongoClient.Database(cfg.Store.MongoDatabase))
	if err := repo.EnsureIndexes(ctx); err != nil {
		logging.Fatal(logger, err, "failed to create mongo indexes")
	}
	return repo
}

// Close releases the database handles opened by initServices. It is a no-op
// when no service was ever requested.
func Close() {
	if database == nil {
		return
	}
	if mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Error(err, "failed to disconnect from mongo")
		}
	}
	if stagingDB != nil {
		if sqlDB, err := stagingDB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	database.Close()
}

// SubmissionAdapter returns a new SubmissionAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func SubmissionAdapter() *cliadapter.SubmissionAdapter {
	return SubmissionAdapterWithOutput(os.Stdout)
}

// SubmissionAdapterWithOutput returns a new SubmissionAdapter writing to the given output.
func SubmissionAdapterWithOutput(out io.Writer) *cliadapter.SubmissionAdapter {
	once.Do(initServices)
	return cliadapter.NewSubmissionAdapter(submissionService, lifecycleService, out)
}

// SweepAdapter returns a new SweepAdapter writing to stdout.
func SweepAdapter() *cliadapter.SweepAdapter {
	return SweepAdapterWithOutput(os.Stdout)
}

// SweepAdapterWithOutput returns a new SweepAdapter writing to the given output.
func SweepAdapterWithOutput(out io.Writer) *cliadapter.SweepAdapter {
	once.Do(initServices)
	return cliadapter.NewSweepAdapter(orchestrator, lifecycleService, out)
}
