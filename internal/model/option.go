package model

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// JobOption represents a single parameter of a Rundeck job
type JobOption struct {
	Name           string   `json:"name"`
	Regex          string   `json:"regex,omitempty"`
	Description    string   `json:"description,omitempty"`
	DefaultValue   string   `json:"default_value,omitempty"`
	AllowedValues  []string `json:"allowed_values,omitempty"`
	EnforcedValues bool     `json:"enforced_values,omitempty"`
	Required       bool     `json:"required,omitempty"`
	MultiValued    bool     `json:"multi_valued,omitempty"` // comma-delimited list of values
	JSONURL        string   `json:"json_url,omitempty"`     // not written to the job XML
}

// BashPlaceholder returns the shell variable reference Rundeck exports for this option
// at run time, e.g. "log-level" becomes "$RD_OPTION_LOG_LEVEL".
// Every byte outside [A-Za-z0-9] becomes "_", so distinct names that differ
// only in such characters collide.
func (o *JobOption) BashPlaceholder() string {
	b := []byte(o.Name)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
			b[i] = c - ('a' - 'A')
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			b[i] = '_'
		}
	}
	return "$RD_OPTION_" + string(b)
}

// XML returns the <option> fragment used inside a job definition.
// Optional attributes are emitted only when set; values are not escaped.
func (o *JobOption) XML() string {
	var b strings.Builder

	b.WriteString("<option name='" + o.Name + "'")
	if o.DefaultValue != "" {
		b.WriteString(" value='" + o.DefaultValue + "'")
	}
	if o.Regex != "" {
		b.WriteString(" regex='" + o.Regex + "'")
	}
	if o.Required {
		b.WriteString(" required='true'")
	}
	if len(o.AllowedValues) > 0 {
		b.WriteString(" values='" + strings.Join(o.AllowedValues, ",") + "'")
	}
	if o.EnforcedValues {
		b.WriteString(" enforcedvalues='true'")
	}
	if o.MultiValued {
		b.WriteString(" multivalued='true' delimiter=','")
	}
	b.WriteString("><description>" + o.Description + "</description></option>")

	return b.String()
}

// Validate checks the option can be serialized
func (o *JobOption) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.Name, validation.Required),
	)
}
