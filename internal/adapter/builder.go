// Package adapter turns console command descriptors into Rundeck script jobs
// that run the command on the application host.
package adapter

import (
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"

	"github.com/kirychukyurii/rundeck-bridge/internal/config"
	"github.com/kirychukyurii/rundeck-bridge/internal/model"
)

// DefaultConsole is the launcher used when the builder does not set one
const DefaultConsole = "php console"

// commandArgument is the implicit first argument naming the command itself
const commandArgument = "command"

// envOption is appended to every job so runs can pick the application environment
var envOption = model.CommandOption{
	Name:         "env",
	Description:  "Symfony env",
	AcceptsValue: true,
}

// defaultOptions are the options every console command inherits from the framework
var defaultOptions = map[string]struct{}{
	"help":              {},
	"quiet":             {},
	"verbose":           {},
	"version":           {},
	"ansi":              {},
	"no-ansi":           {},
	"no-interaction":    {},
	"no-debug":          {},
	"process-isolation": {},
	"shell":             {},
}

// Builder builds jobs that run commands as User from AppPath
type Builder struct {
	User                  string
	AppPath               string
	Console               string // launcher, DefaultConsole when empty
	Group                 string
	IncludeDefaultOptions bool
}

// NewBuilder creates a builder from adapter configuration
func NewBuilder(cfg config.AdapterConfig) *Builder {
	return &Builder{
		User:                  cfg.User,
		AppPath:               cfg.AppPath,
		Console:               cfg.Console,
		Group:                 cfg.Group,
		IncludeDefaultOptions: cfg.IncludeDefaultOptions,
	}
}

// JobID returns the job id derived from a command name: its CRC32 in decimal.
// Distinct names with the same checksum share an id.
func JobID(commandName string) string {
	return strconv.FormatUint(uint64(crc32.ChecksumIEEE([]byte(commandName))), 10)
}

// Build returns the job running cmd. Project is left for the caller to set.
//
// Positional arguments are always passed, possibly empty. Options requiring a value
// are passed the same way, while optional-value options and switches are only added
// to the command line when the run supplies a non-empty value for them.
//
// Build panics when an option requires a value it does not accept.
func (b *Builder) Build(cmd model.Command) *model.RundeckJob {
	console := b.Console
	if console == "" {
		console = DefaultConsole
	}

	job := &model.RundeckJob{
		ID:          JobID(cmd.Name()),
		Name:        cmd.Name(),
		Description: cmd.Description(),
		Group:       b.Group,
	}

	var setup, line strings.Builder
	fmt.Fprintf(&line, "cd %s\ncmd_string=\"sudo -u %s %s %s", b.AppPath, b.User, console, cmd.Name())

	for _, arg := range cmd.Arguments() {
		if arg.Name == commandArgument {
			continue
		}

		option := optionFromArgument(arg)
		job.AddOption(option)
		line.WriteString(" " + quote(option.BashPlaceholder()))
	}

	options := append(append([]model.CommandOption(nil), cmd.Options()...), envOption)
	for _, opt := range options {
		if _, isDefault := defaultOptions[opt.Name]; isDefault && !b.IncludeDefaultOptions {
			continue
		}
		if opt.ValueRequired && !opt.AcceptsValue {
			panic(fmt.Sprintf("adapter: option %q of %q requires a value it does not accept", opt.Name, cmd.Name()))
		}

		option := optionFromOption(opt)
		job.AddOption(option)
		placeholder := option.BashPlaceholder()

		if opt.ValueRequired {
			line.WriteString(" --" + opt.Name + " " + quote(placeholder))
			continue
		}

		value := ""
		if opt.AcceptsValue {
			value = quote(placeholder)
		}

		variable := optionVariable(opt.Name)
		fmt.Fprintf(&setup, "\n%[1]s=''\nif [ \"%[2]s\" != '' ]; then\n    %[1]s=\"--%[3]s %[4]s\"\nfi\necho $%[1]s\n",
			variable, placeholder, opt.Name, value)
		line.WriteString(" $" + variable)
	}

	job.ScriptContent = setup.String() + "\n" + line.String() + "\"\n" +
		"echo $cmd_string\n" +
		"eval $cmd_string\n" +
		"ret_code=$?\n" +
		"echo $ret_code\n" +
		"exit $ret_code"

	return job
}

func optionFromArgument(arg model.Argument) *model.JobOption {
	return &model.JobOption{
		Name:         arg.Name,
		Description:  arg.Description,
		DefaultValue: arg.Default,
		Required:     arg.Required,
	}
}

func optionFromOption(opt model.CommandOption) *model.JobOption {
	return &model.JobOption{
		Name:         opt.Name,
		Description:  opt.Description,
		DefaultValue: opt.Default,
		Required:     opt.ValueRequired,
	}
}

// quote escapes a placeholder for use inside the double-quoted cmd_string
func quote(placeholder string) string {
	return `\"\` + placeholder + `\"`
}

// optionVariable names the shell variable holding an optional flag: opt_ plus the
// ASCII letters of the option name
func optionVariable(name string) string {
	var b strings.Builder
	b.WriteString("opt_")
	for i := 0; i < len(name); i++ {
		if c := name[i]; ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			b.WriteByte(c)
		}
	}
	return b.String()
}
