package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kirychukyurii/rundeck-bridge/internal/adapter"
	"github.com/kirychukyurii/rundeck-bridge/internal/model"
	"github.com/kirychukyurii/rundeck-bridge/internal/repository"
)

func newImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Import job list documents into the project",
		Long: heredoc.Doc(`
			Import one or more <joblist> XML documents. Jobs with the same name are
			updated and uuids in the documents are dropped.
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make(map[string]*repository.ImportResult, len(args))
			for _, path := range args {
				doc, err := afero.ReadFile(a.fs, path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}

				result, err := a.service().ImportJobList(cmd.Context(), string(doc))
				if err != nil {
					return fmt.Errorf("failed to import %s: %w", path, err)
				}
				results[path] = result
			}

			return writeImportTable(cmd.OutOrStdout(), args, results)
		},
	}
}

func newExportCommand(a *app) *cobra.Command {
	var (
		outDir   string
		doImport bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Turn the commands of this tool into Rundeck jobs",
		Long: heredoc.Doc(`
			Build a Rundeck script job for every runnable rundeck-bridge command. Each job
			runs the command as adapter.user from adapter.app_path through adapter.console,
			with job options for its arguments and flags.

			Without --out the job list is printed. With --out every job is written to its
			own file. With --import the jobs are imported into the project.
		`),
		Example: "rundeck-bridge export --out jobs/ --import",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := a.service()

			jobs := adapter.NewBuilder(a.cfg.Adapter).BuildTree(cmd.Root())
			for _, job := range jobs {
				job.Project = svc.Project()
			}

			if outDir != "" {
				if err := writeJobFiles(a.fs, outDir, jobs); err != nil {
					return err
				}
			}

			if doImport {
				result, err := svc.ImportJobs(cmd.Context(), jobs...)
				if err != nil {
					return err
				}
				return writeImportTable(cmd.OutOrStdout(), []string{svc.Project()}, map[string]*repository.ImportResult{svc.Project(): result})
			}

			if outDir == "" {
				doc, err := model.JobList(jobs...)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), doc)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directory to write one job file per command")
	cmd.Flags().BoolVar(&doImport, "import", false, "import the jobs into the project")

	return cmd
}

// writeJobFiles writes every job as its own job list document, named after the job
func writeJobFiles(fs afero.Fs, dir string, jobs []*model.RundeckJob) error {
	if err := fs.MkdirAll(dir, os.FileMode(0o755)); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	for _, job := range jobs {
		doc, err := job.XML(true)
		if err != nil {
			return fmt.Errorf("failed to serialize job %q: %w", job.Name, err)
		}

		path := filepath.Join(dir, jobFileName(job.Name))
		if err := afero.WriteFile(fs, path, []byte(doc), os.FileMode(0o644)); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

func jobFileName(name string) string {
	return strings.NewReplacer(" ", "-", "/", "-", ":", "-").Replace(name) + ".xml"
}

func writeImportTable(w io.Writer, order []string, results map[string]*repository.ImportResult) error {
	table := tablewriter.NewWriter(w)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Source", "Succeeded", "Failed", "Skipped"})

	var failures []string
	for _, source := range order {
		result := results[source]
		table.Append([]string{
			source,
			strconv.Itoa(result.Succeeded),
			strconv.Itoa(result.Failed),
			strconv.Itoa(result.Skipped),
		})
		for _, e := range result.Errors {
			failures = append(failures, source+": "+e)
		}
	}
	table.Render()

	if len(failures) > 0 {
		return fmt.Errorf("some jobs failed to import:\n%s", strings.Join(failures, "\n"))
	}
	return nil
}
