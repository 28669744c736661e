package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kirychukyurii/rundeck-bridge/internal/cache"
	"github.com/kirychukyurii/rundeck-bridge/internal/config"
	"github.com/kirychukyurii/rundeck-bridge/internal/logger"
	"github.com/kirychukyurii/rundeck-bridge/internal/model"
	"github.com/kirychukyurii/rundeck-bridge/internal/repository"
	"github.com/kirychukyurii/rundeck-bridge/internal/service"
)

// app holds what the commands share. It is filled once before the first
// command runs; fields set beforehand are kept.
type app struct {
	configPath string
	envFile    string
	project    string

	cfg    *config.Config
	logger *slog.Logger
	svc    service.JobService
	fs     afero.Fs
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "rundeck-bridge",
		Short: "Manage Rundeck jobs and executions",
		Long: heredoc.Doc(`
			rundeck-bridge talks to the Rundeck REST API: it lists, runs and imports jobs,
			follows executions and estimates their progress, and exports its own commands
			as Rundeck script jobs.

			Settings come from the YAML file given with --config, overridden by
			RUNDECK_BRIDGE_* environment variables (RUNDECK_BRIDGE_RUNDECK__TOKEN sets
			rundeck.token). A .env file is loaded first when present.
		`),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to configuration file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "path to a .env file")
	root.PersistentFlags().StringVarP(&a.project, "project", "p", "", "Rundeck project, overrides rundeck.project")

	root.AddCommand(
		newServeCommand(a),
		newJobsCommand(a),
		newRunCommand(a),
		newExecutionCommand(a),
		newImportCommand(a),
		newExportCommand(a),
	)

	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if a.fs == nil {
		a.fs = afero.NewOsFs()
	}

	if a.cfg == nil {
		cfg, err := config.Load(a.configPath, a.envFile)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	if a.logger == nil {
		// the server logs to stdout like any service, commands keep stdout for their output
		out := os.Stderr
		if cmd.Name() == "serve" {
			out = os.Stdout
		}
		a.logger = logger.NewWithWriter(out, logger.ParseLevel(a.cfg.Log.Level))
	}

	if a.svc == nil {
		repo, err := repository.NewRundeckRepository(a.cfg.Rundeck, a.logger)
		if err != nil {
			return fmt.Errorf("failed to create rundeck repository: %w", err)
		}
		a.svc = service.NewJobService(repo, cache.New[*model.RecordSet](a.cfg.Cache.TTL), a.cfg.Service.MaxConcurrent, a.logger)
	}

	return nil
}

// service returns the job service for the --project flag, if given
func (a *app) service() service.JobService {
	if a.project != "" {
		return a.svc.ForProject(a.project)
	}
	return a.svc
}
