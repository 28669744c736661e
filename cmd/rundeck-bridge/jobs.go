package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/kirychukyurii/rundeck-bridge/internal/model"
)

func newJobsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the jobs of a project",
	}

	var tree bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List the jobs of the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := a.service()

			jobs, err := svc.ListJobs(cmd.Context())
			if err != nil {
				return err
			}

			if tree {
				fmt.Fprint(cmd.OutOrStdout(), jobTree(svc.Project(), jobs))
				return nil
			}
			writeJobTable(cmd.OutOrStdout(), jobs)
			return nil
		},
	}
	list.Flags().BoolVar(&tree, "tree", false, "group jobs into a tree")

	id := &cobra.Command{
		Use:   "id <name>",
		Short: "Print the id of the first job with the given name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, found, err := a.service().JobIDByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("job %q not found", args[0])
			}

			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.AddCommand(list, id)
	return cmd
}

func writeJobTable(w io.Writer, jobs *model.RecordSet) {
	table := tablewriter.NewWriter(w)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"ID", "Group", "Name", "Description"})

	jobs.Each(func(id string, job model.Record) bool {
		table.Append([]string{
			id,
			job.Text(model.KeyGroup),
			job.Text(model.KeyName),
			job.Text("description"),
		})
		return true
	})
	table.Render()
}

// jobTree nests jobs under their slash-separated groups
func jobTree(project string, jobs *model.RecordSet) string {
	tree := treeprint.New()
	root := tree.AddBranch(project)
	branches := map[string]treeprint.Tree{"": root}

	var branchFor func(group string) treeprint.Tree
	branchFor = func(group string) treeprint.Tree {
		if b, ok := branches[group]; ok {
			return b
		}
		parent, name := "", group
		if i := strings.LastIndex(group, "/"); i >= 0 {
			parent, name = group[:i], group[i+1:]
		}
		b := branchFor(parent).AddBranch(name)
		branches[group] = b
		return b
	}

	jobs.Each(func(id string, job model.Record) bool {
		group := strings.Trim(job.Text(model.KeyGroup), "/")
		branchFor(group).AddNode(fmt.Sprintf("%s (%s)", job.Text(model.KeyName), id))
		return true
	})

	return tree.String()
}
