package main

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/kirychukyurii/rundeck-bridge/internal/model"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		rawArgs []string
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "run <job-id>",
		Short: "Run a job",
		Long: heredoc.Doc(`
			Run a job and print the id of the started execution.

			Job options are passed with --arg name=value, repeated as needed. They are
			sent in the order given.
		`),
		Example: "rundeck-bridge run 741078394 --arg target=crm --arg env=prod --watch",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobArgs, err := parseJobArguments(rawArgs)
			if err != nil {
				return err
			}

			executions, err := a.service().RunJob(cmd.Context(), args[0], jobArgs)
			if err != nil {
				return err
			}

			ids := executions.Keys()
			if len(ids) == 0 {
				return fmt.Errorf("rundeck started no execution for job %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), ids[0])

			if !watch {
				return nil
			}
			return a.watchExecution(cmd, ids[0])
		},
	}
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "job option as name=value")
	cmd.Flags().BoolVar(&watch, "watch", false, "follow the execution until it ends")

	return cmd
}

func parseJobArguments(raw []string) ([]model.JobArgument, error) {
	args := make([]model.JobArgument, 0, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid job argument %q, expected name=value", kv)
		}
		args = append(args, model.JobArgument{Name: name, Value: value})
	}
	return args, nil
}
