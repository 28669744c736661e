package model

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// xmlDeclaration prefixes every canonicalized job document
const xmlDeclaration = `<?xml version="1.0"?>` + "\n"

// RundeckJob represents a Rundeck job definition: one script step plus its options.
// ID is written both as the job id and as its uuid.
type RundeckJob struct {
	ID                 string       `json:"id"`
	Project            string       `json:"project"`
	Name               string       `json:"name"`
	Description        string       `json:"description,omitempty"`
	Group              string       `json:"group,omitempty"`
	ScriptContent      string       `json:"script_content"`
	MultipleExecutions bool         `json:"multiple_executions"`
	Options            []*JobOption `json:"options,omitempty"`
}

// AddOption appends an option; option order is kept in the generated XML
func (j *RundeckJob) AddOption(option *JobOption) {
	j.Options = append(j.Options, option)
}

// XML returns the job definition as a pretty-printed document.
// When asJobList is true the <job> element is wrapped in a <joblist> root,
// which is the shape the import endpoint expects.
func (j *RundeckJob) XML(asJobList bool) (string, error) {
	body := j.element()
	if asJobList {
		body = "<joblist>" + body + "</joblist>"
	}

	return canonicalize(body)
}

// JobList returns a single <joblist> document holding all given jobs
func JobList(jobs ...*RundeckJob) (string, error) {
	var b strings.Builder

	b.WriteString("<joblist>")
	for _, job := range jobs {
		b.WriteString(job.element())
	}
	b.WriteString("</joblist>")

	return canonicalize(b.String())
}

// element renders the raw <job> element. Script and description go into CDATA
// sections; a literal "]]>" in either breaks the document.
func (j *RundeckJob) element() string {
	multipleExecutions := "false"
	if j.MultipleExecutions {
		multipleExecutions = "true"
	}

	var b strings.Builder
	b.WriteString("<job>")
	b.WriteString("<id>" + j.ID + "</id>")
	b.WriteString("<loglevel>INFO</loglevel>")
	b.WriteString("<multipleExecutions>" + multipleExecutions + "</multipleExecutions>")
	b.WriteString("<sequence keepgoing='false' strategy='node-first'>")
	b.WriteString("<command><scriptargs /><script><![CDATA[" + j.ScriptContent + "]]></script></command>")
	b.WriteString("</sequence>")
	b.WriteString("<description><![CDATA[" + j.Description + "]]></description>")
	b.WriteString("<name>" + j.Name + "</name>")
	b.WriteString("<context>")
	b.WriteString("<project>" + j.Project + "</project>")
	b.WriteString("<options>")
	for _, option := range j.Options {
		b.WriteString(option.XML())
	}
	b.WriteString("</options>")
	b.WriteString("</context>")
	b.WriteString("<uuid>" + j.ID + "</uuid>")
	b.WriteString("<group>" + j.Group + "</group>")
	b.WriteString("</job>")

	return b.String()
}

// canonicalize parses the document and writes it back with 2-space indentation
func canonicalize(raw string) (string, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true

	if err := doc.ReadFromString(raw); err != nil {
		return "", fmt.Errorf("failed to parse job document: %w", err)
	}
	if doc.Root() == nil {
		return "", fmt.Errorf("job document has no root element")
	}

	doc.Indent(2)

	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("failed to write job document: %w", err)
	}

	return xmlDeclaration + out, nil
}

// Validate checks the job and its options before serialization
func (j *RundeckJob) Validate() error {
	return validation.ValidateStruct(j,
		validation.Field(&j.ID, validation.Required),
		validation.Field(&j.Name, validation.Required),
		validation.Field(&j.Options, validation.By(uniqueOptionNames)),
	)
}

func uniqueOptionNames(value any) error {
	options, ok := value.([]*JobOption)
	if !ok {
		return fmt.Errorf("can't convert value to job options")
	}

	seen := make(map[string]bool, len(options))
	for _, option := range options {
		if option == nil {
			return fmt.Errorf("nil option")
		}
		if err := option.Validate(); err != nil {
			return err
		}
		if seen[option.Name] {
			return fmt.Errorf("duplicate option %q", option.Name)
		}
		seen[option.Name] = true
	}

	return nil
}
