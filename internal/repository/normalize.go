package repository

import (
	"strconv"

	"github.com/kirychukyurii/rundeck-bridge/internal/model"
	"github.com/kirychukyurii/rundeck-bridge/internal/xmltree"
)

// ImportResult summarizes a job import
type ImportResult struct {
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	Jobs      []model.Record `json:"jobs,omitempty"`   // imported jobs
	Errors    []string       `json:"errors,omitempty"` // one entry per failed job
	Raw       any            `json:"raw,omitempty"`
}

// ParseJob flattens a job element: child fields and attributes share one level,
// attributes win on collision
func ParseJob(el *xmltree.Element) model.Record {
	record := make(model.Record, len(el.Children)+len(el.Attributes))
	for _, tag := range el.Tags() {
		record[tag] = fieldValue(el, tag)
	}
	for k, v := range el.Attributes {
		record[k] = v
	}
	return record
}

// ParseJobs returns the jobs of a job list response keyed by id
func ParseJobs(root *xmltree.Element) *model.RecordSet {
	jobs := model.NewRecordSet()
	for _, el := range container(root, "jobs").All("job") {
		job := ParseJob(el)
		jobs.Put(job.Text(model.KeyID), job)
	}
	return jobs
}

// ParseExecutions returns the executions of a response keyed by id,
// each carrying its flattened job under "job"
func ParseExecutions(root *xmltree.Element) *model.RecordSet {
	executions := model.NewRecordSet()
	for _, el := range container(root, "executions").All("execution") {
		execution := make(model.Record, len(el.Children)+len(el.Attributes))
		for _, tag := range el.Tags() {
			if tag == model.KeyJob {
				continue
			}
			execution[tag] = fieldValue(el, tag)
		}
		for k, v := range el.Attributes {
			execution[k] = v
		}
		if job := el.First(model.KeyJob); job != nil {
			execution[model.KeyJob] = ParseJob(job)
		}
		executions.Put(el.Attributes[model.KeyID], execution)
	}
	return executions
}

// ParseImportResult summarizes the succeeded, failed and skipped sections of an import response
func ParseImportResult(doc *Document) *ImportResult {
	result := &ImportResult{Raw: doc.Value()}
	if doc.XML == nil {
		return result
	}

	succeeded := container(doc.XML, "succeeded")
	for _, el := range succeeded.All("job") {
		result.Jobs = append(result.Jobs, ParseJob(el))
	}
	result.Succeeded = sectionCount(succeeded)

	failed := container(doc.XML, "failed")
	for _, el := range failed.All("job") {
		job := ParseJob(el)
		result.Errors = append(result.Errors, job.Text(model.KeyName)+": "+job.Text("error"))
	}
	result.Failed = sectionCount(failed)

	result.Skipped = sectionCount(container(doc.XML, "skipped"))

	return result
}

// container returns root when it already is the wanted element, otherwise its first such child.
// Older API versions wrap payloads in <result>, newer ones do not.
func container(root *xmltree.Element, tag string) *xmltree.Element {
	if root == nil {
		return nil
	}
	if root.Tag == tag {
		return root
	}
	return root.First(tag)
}

func sectionCount(el *xmltree.Element) int {
	if el == nil {
		return 0
	}
	if n, err := strconv.Atoi(el.Attributes["count"]); err == nil {
		return n
	}
	return len(el.All("job"))
}

// fieldValue collapses a single text child to a string and keeps anything else as a list
func fieldValue(el *xmltree.Element, tag string) any {
	children := el.All(tag)
	if len(children) == 1 && children[0].IsText() {
		return children[0].Text
	}
	return el.ListValue(tag)
}
