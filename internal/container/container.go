// Package container provides dependency injection.
package container

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/costlens/backend/internal/analytics"
	"github.com/costlens/backend/internal/config"
	"github.com/costlens/backend/internal/jobs"
	"github.com/costlens/backend/internal/model"
	"github.com/costlens/backend/internal/normalizer"
	"github.com/costlens/backend/internal/provider"
	"github.com/costlens/backend/internal/provider/aws"
	"github.com/costlens/backend/internal/repository"
)

// syncWindowDays is how far back the cost sync job pulls on each run.
const syncWindowDays = 30

// Container holds all application dependencies.
type Container struct {
	cfg              *config.Config
	logger           *slog.Logger
	db               *sql.DB
	providerRegistry *provider.Registry
	scheduler        *jobs.Scheduler
	engine           *analytics.Engine
	validate         *validator.Validate

	costRepo    repository.CostRepository
	anomalyRepo repository.AnomalyRepository
	budgetRepo  repository.BudgetRepository
}

// New creates a new dependency container.
func New(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		cfg:      cfg,
		logger:   logger,
		validate: validator.New(),
	}

	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	c.db = db
	logger.Info("database connected", "host", cfg.Database.Host, "database", cfg.Database.Name)

	costRepo := repository.NewPostgresCostRepository(db)
	if err := costRepo.EnsureTable(ctx); err != nil {
		return nil, err
	}
	anomalyRepo := repository.NewPostgresAnomalyRepository(db)
	if err := anomalyRepo.EnsureTable(ctx); err != nil {
		return nil, err
	}
	budgetRepo := repository.NewPostgresBudgetRepository(db)
	if err := budgetRepo.EnsureTable(ctx); err != nil {
		return nil, err
	}
	c.costRepo = costRepo
	c.anomalyRepo = anomalyRepo
	c.budgetRepo = budgetRepo

	c.engine = analytics.NewEngine(cfg.Analytics, logger)

	c.providerRegistry = provider.NewRegistry()
	if cfg.AWS.Enabled {
		awsProvider, err := aws.NewProvider(cfg.AWS, logger)
		if err != nil {
			logger.Warn("failed to initialize AWS provider", "error", err)
		} else {
			c.providerRegistry.Register(awsProvider)
			logger.Info("AWS provider registered", "region", cfg.AWS.Region)
		}
	}

	c.scheduler = jobs.NewScheduler(logger)

	return c, nil
}

// Start registers and starts background jobs.
func (c *Container) Start(ctx context.Context) error {
	if err := c.scheduler.Register("cost-sync", c.cfg.Jobs.CostSyncSchedule, c.costSyncJob); err != nil {
		return err
	}
	if err := c.scheduler.Register("anomaly-detect", c.cfg.Jobs.AnomalyDetectSchedule, c.anomalyDetectJob); err != nil {
		return err
	}
	c.scheduler.Start()
	return nil
}

// Stop gracefully stops all components.
func (c *Container) Stop(ctx context.Context) error {
	c.logger.Info("stopping container components")

	if c.scheduler != nil {
		c.scheduler.Stop()
	}
	if c.providerRegistry != nil {
		c.providerRegistry.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
	return nil
}

// Accessors

func (c *Container) Config() *config.Config                          { return c.cfg }
func (c *Container) Logger() *slog.Logger                            { return c.logger }
func (c *Container) DB() *sql.DB                                     { return c.db }
func (c *Container) ProviderRegistry() *provider.Registry            { return c.providerRegistry }
func (c *Container) Engine() *analytics.Engine                       { return c.engine }
func (c *Container) Validator() *validator.Validate                  { return c.validate }
func (c *Container) CostRepository() repository.CostRepository       { return c.costRepo }
func (c *Container) AnomalyRepository() repository.AnomalyRepository { return c.anomalyRepo }
func (c *Container) BudgetRepository() repository.BudgetRepository   { return c.budgetRepo }

// Background job implementations

func (c *Container) costSyncJob(ctx context.Context) error {
	providers := c.providerRegistry.All()
	if len(providers) == 0 {
		c.logger.Info("no providers registered, skipping cost sync")
		return nil
	}

	end := time.Now().UTC()
	window := model.DateRange{Start: end.AddDate(0, 0, -syncWindowDays), End: end}

	for _, p := range providers {
		rows, err := p.FetchCosts(ctx, window)
		if err != nil {
			c.logger.Error("cost sync fetch failed", "provider", p.Name(), "error", err)
			continue
		}

		result := normalizer.NormalizeBatch(rows)
		if result.ErrorCount > 0 {
			c.logger.Warn("cost sync rows skipped",
				"provider", p.Name(), "errors", result.ErrorCount)
		}
		if len(result.Records) == 0 {
			continue
		}
		if err := c.costRepo.CreateBatch(ctx, result.Records); err != nil {
			c.logger.Error("cost sync store failed", "provider", p.Name(), "error", err)
			continue
		}
		c.logger.Info("cost sync completed",
			"provider", p.Name(), "records", result.SuccessCount)
	}
	return nil
}

func (c *Container) anomalyDetectJob(ctx context.Context) error {
	records, err := c.costRepo.List(ctx, model.CostFilter{})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	detected := c.engine.DetectAnomalies(records, model.DetectionRequest{})
	stored, err := c.anomalyRepo.UpsertBatch(ctx, detected)
	if err != nil {
		return err
	}
	c.logger.Info("scheduled anomaly detection finished",
		"detected", len(detected), "stored", stored)
	return nil
}
