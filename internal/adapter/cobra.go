package adapter

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kirychukyurii/rundeck-bridge/internal/model"
)

// FromCobra describes a cobra command. Positional arguments come from the Use line,
// <name> being required and [name] optional. Local visible flags become options:
// bool flags are switches, flags with a NoOptDefVal take an optional value and
// all other flags require one.
func FromCobra(cmd *cobra.Command) model.Command {
	def := &model.CommandDefinition{
		CommandName:        commandPath(cmd),
		CommandDescription: cmd.Short,
		Args:               useArguments(cmd.Use),
	}

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		def.Opts = append(def.Opts, flagOption(f))
	})

	return def
}

// BuildTree builds a job for every runnable command of a cobra tree, root included
func (b *Builder) BuildTree(root *cobra.Command) []*model.RundeckJob {
	var jobs []*model.RundeckJob

	var walk func(cmd *cobra.Command)
	walk = func(cmd *cobra.Command) {
		if cmd.Runnable() && (cmd == root || cmd.IsAvailableCommand()) {
			jobs = append(jobs, b.Build(FromCobra(cmd)))
		}
		for _, child := range cmd.Commands() {
			if child.Name() == "completion" {
				continue
			}
			walk(child)
		}
	}
	walk(root)

	return jobs
}

// commandPath is the command line below the root binary, e.g. "jobs list"
func commandPath(cmd *cobra.Command) string {
	if !cmd.HasParent() {
		return cmd.Name()
	}
	return strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name()+" ")
}

func useArguments(use string) []model.Argument {
	fields := strings.Fields(use)
	if len(fields) < 2 {
		return nil
	}

	var args []model.Argument
	for _, field := range fields[1:] {
		field = strings.TrimSuffix(field, "...")

		var required bool
		switch {
		case strings.HasPrefix(field, "<") && strings.HasSuffix(field, ">"):
			required = true
		case strings.HasPrefix(field, "[") && strings.HasSuffix(field, "]"):
		default:
			continue
		}

		name := field[1 : len(field)-1]
		if name == "" || name == "flags" {
			continue
		}
		args = append(args, model.Argument{Name: name, Required: required})
	}

	return args
}

func flagOption(f *pflag.Flag) model.CommandOption {
	opt := model.CommandOption{
		Name:        f.Name,
		Description: f.Usage,
	}

	switch {
	case f.Value.Type() == "bool":
		// a non-empty default would always pass the switch
	case f.NoOptDefVal != "":
		opt.AcceptsValue = true
		opt.Default = flagDefault(f)
	default:
		opt.AcceptsValue = true
		opt.ValueRequired = true
		opt.Default = flagDefault(f)
	}

	return opt
}

func flagDefault(f *pflag.Flag) string {
	if f.DefValue == "[]" {
		return ""
	}
	return f.DefValue
}
