package model

// Command describes a command-line command that can be exposed as a Rundeck job
type Command interface {
	Name() string
	Description() string
	Arguments() []Argument
	Options() []CommandOption
}

// Argument represents a positional argument of a command
type Argument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Default     string `json:"default,omitempty"`
	Required    bool   `json:"required"`
}

// CommandOption represents a named option of a command
type CommandOption struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Default       string `json:"default,omitempty"`
	ValueRequired bool   `json:"value_required"`
	AcceptsValue  bool   `json:"accepts_value"` // false for plain switches
}

// CommandDefinition is a static Command
type CommandDefinition struct {
	CommandName        string          `json:"name"`
	CommandDescription string          `json:"description,omitempty"`
	Args               []Argument      `json:"arguments,omitempty"`
	Opts               []CommandOption `json:"options,omitempty"`
}

func (d *CommandDefinition) Name() string             { return d.CommandName }
func (d *CommandDefinition) Description() string      { return d.CommandDescription }
func (d *CommandDefinition) Arguments() []Argument    { return d.Args }
func (d *CommandDefinition) Options() []CommandOption { return d.Opts }

// JobArgument is a single name/value pair passed to a job run.
// Runs take a slice so the argument string keeps the caller's order.
type JobArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
