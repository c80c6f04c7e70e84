package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/internal/logging"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "taskboardctl",
		Short:         "Operator tools for the taskboard service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newTokenCmd(), newMigrateCmd(), newAuditCmd())
	return cmd
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
