package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kirychukyurii/rundeck-bridge/internal/model"
	"github.com/kirychukyurii/rundeck-bridge/internal/watcher"
)

const progressBarWidth = 30

func newExecutionCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution",
		Short: "Follow job executions",
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an execution with its progress estimates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			executions, err := a.service().ExecutionProgress(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetBorder(false)
			table.SetHeader([]string{"ID", "Job", "Status", "Started", "Ended", "% Duration", "% Output"})
			executions.Each(func(id string, execution model.Record) bool {
				table.Append([]string{
					id,
					execution.Nested(model.KeyJob).Text(model.KeyName),
					execution.Text(model.KeyStatus),
					execution.Text(model.KeyDateStarted),
					execution.Text(model.KeyDateEnded),
					percent(execution[model.KeyPercentOnAverageDuration]),
					percent(execution[model.KeyPercentOnOutputAnalysis]),
				})
				return true
			})
			table.Render()

			executions.Each(func(id string, execution model.Record) bool {
				if tail := execution.Text(model.KeyTail); tail != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", tail)
				}
				return true
			})
			return nil
		},
	}

	var lines int
	output := &cobra.Command{
		Use:   "output <id>",
		Short: "Print the log output of an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.service().ExecutionOutput(cmd.Context(), args[0], lines)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	output.Flags().IntVarP(&lines, "lines", "n", 0, "only print the last n lines")

	watch := &cobra.Command{
		Use:   "watch <id>",
		Short: "Follow an execution with a progress bar until it ends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watchExecution(cmd, args[0])
		},
	}

	cmd.AddCommand(show, output, watch)
	return cmd
}

// watchExecution draws a progress bar on stderr and prints the final status
func (a *app) watchExecution(cmd *cobra.Command, executionID string) error {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetWidth(progressBarWidth),
		progressbar.OptionSetDescription("execution "+executionID),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	w := watcher.New(a.cfg.Watch, a.service(), a.logger)
	final, err := w.Watch(cmd.Context(), executionID, func(s watcher.Snapshot) {
		_ = bar.Set(progressOf(s.Execution))
	})
	_ = bar.Finish()
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	status := final.Execution.Text(model.KeyStatus)
	fmt.Fprintln(cmd.OutOrStdout(), status)
	if status != "succeeded" {
		return fmt.Errorf("execution %s ended with status %s", executionID, status)
	}
	return nil
}

// progressOf prefers what the job reports about itself over the duration estimate
func progressOf(execution model.Record) int {
	if p, ok := execution[model.KeyPercentOnOutputAnalysis].(int); ok && p > 0 {
		return p
	}
	p, _ := execution[model.KeyPercentOnAverageDuration].(int)
	return p
}

func percent(v any) string {
	if p, ok := v.(int); ok {
		return strconv.Itoa(p)
	}
	return ""
}
