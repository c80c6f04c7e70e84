package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskboard/internal/config"
	"taskboard/internal/database"
	"taskboard/internal/job"
	"taskboard/internal/metrics"
	"taskboard/internal/repository"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQL migrations to postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.Database.Driver != "postgres" {
				return fmt.Errorf("migrate needs DB_DRIVER=postgres, got %q", cfg.Database.Driver)
			}
			return database.Migrate(cfg.Database.MigrationURL(), logger)
		},
	}
}

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Run the position density audit once and repair what it finds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := open(cfg)
			if err != nil {
				return err
			}
			defer database.Close(db, logger)

			store := repository.NewOrderedStore(db, cfg.Database.LockTimeout)
			job.NewDensityJob(store, metrics.New(logger), logger).Run()
			logger.Info("Density audit finished", zap.String("driver", cfg.Database.Driver))
			return nil
		},
	}
}

func open(cfg *config.Config) (*gorm.DB, error) {
	return database.New(database.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN(),
		MaxOpenConns: 1,
	})
}
