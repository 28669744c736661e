package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirychukyurii/rundeck-bridge/internal/config"
	"github.com/kirychukyurii/rundeck-bridge/internal/model"
	"github.com/kirychukyurii/rundeck-bridge/internal/xmltree"
)

// DefaultUserAgent is sent when the configuration does not set one
const DefaultUserAgent = "rundeck-bridge/1.0"

// Accept is the response format requested from Rundeck
type Accept string

const (
	AcceptText Accept = "text/plain"
	AcceptXML  Accept = "text/xml"
	AcceptJSON Accept = "application/json"
)

// forcePost turns a request into a form POST when the endpoint takes
// all of its parameters from the query string
var forcePost = url.Values{"0": {"x"}}

// RundeckRepository defines the interface for Rundeck API operations
type RundeckRepository interface {
	Project() string
	WithProject(project string) RundeckRepository
	FetchRaw(ctx context.Context, accept Accept, path string, query, form url.Values) (string, error)
	FetchTree(ctx context.Context, accept Accept, path string, query, form url.Values) (*Document, error)
	GetSystemInfo(ctx context.Context) (string, error)
	GetProjects(ctx context.Context) (any, error)
	GetJobs(ctx context.Context) (*model.RecordSet, error)
	GetJobIDByName(ctx context.Context, name string) (string, bool, error)
	RunJob(ctx context.Context, jobID string, args []model.JobArgument) (*model.RecordSet, error)
	GetExecution(ctx context.Context, executionID string) (*model.RecordSet, error)
	GetExecutionOutput(ctx context.Context, executionID string, params url.Values) (string, error)
	GetExecutionWithProgress(ctx context.Context, executionID string) (*model.RecordSet, error)
	ImportJobs(ctx context.Context, jobListXML string) (*ImportResult, error)
}

// Document is a parsed response body: an XML tree or a decoded JSON value
type Document struct {
	XML  *xmltree.Element
	JSON any
}

// Value returns the nested map shape of an XML body or the decoded JSON value
func (d *Document) Value() any {
	if d.XML != nil {
		return d.XML.Map()
	}
	return d.JSON
}

// Option configures a Client
type Option func(*Client)

// WithClock replaces the clock used for progress estimation
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// Client implements RundeckRepository. It holds no per-call state, so one
// value can be shared by concurrent callers.
type Client struct {
	baseURL   string
	token     string
	project   string
	userAgent string
	http      HTTPClient
	logger    *slog.Logger
	now       func() time.Time
}

// NewRundeckRepository creates a Rundeck client from configuration
func NewRundeckRepository(cfg config.RundeckConfig, logger *slog.Logger) (RundeckRepository, error) {
	httpClient, err := newHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	logger.Info("rundeck client initialized",
		slog.String("url", cfg.URL),
		slog.String("project", cfg.Project),
		slog.Duration("connect_timeout", cfg.ConnectTimeout),
		slog.Duration("timeout", cfg.Timeout),
	)

	return NewClient(cfg.URL, cfg.Token, cfg.Project, httpClient, logger, WithUserAgent(cfg.UserAgent)), nil
}

// NewClient creates a Rundeck client over an arbitrary transport
func NewClient(baseURL, token, project string, httpClient HTTPClient, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		project:   project,
		userAgent: DefaultUserAgent,
		http:      httpClient,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Project returns the project jobs are listed from and imported into
func (c *Client) Project() string {
	return c.project
}

// WithProject returns a copy of the client bound to another project
func (c *Client) WithProject(project string) RundeckRepository {
	clone := *c
	clone.project = project
	return &clone
}

// FetchRaw performs a request and returns the raw body.
// A non-empty form makes it a urlencoded POST, otherwise it is a GET.
func (c *Client) FetchRaw(ctx context.Context, accept Accept, path string, query, form url.Values) (string, error) {
	body, _, err := c.fetch(ctx, accept, path, query, form)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchTree performs a request and parses the body as XML, falling back to JSON
func (c *Client) FetchTree(ctx context.Context, accept Accept, path string, query, form url.Values) (*Document, error) {
	body, root, err := c.fetch(ctx, accept, path, query, form)
	if err != nil {
		return nil, err
	}

	if root != nil {
		return &Document{XML: root}, nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err == nil && decoded != nil {
		return &Document{JSON: decoded}, nil
	}

	return nil, &ParseError{Path: path, Body: string(body)}
}

// fetch returns the body and, when the body is XML, its parsed root
func (c *Client) fetch(ctx context.Context, accept Accept, path string, query, form url.Values) ([]byte, *xmltree.Element, error) {
	endpoint := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	method := http.MethodGet
	var reqBody io.Reader
	if len(form) > 0 {
		method = http.MethodPost
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build request for %s: %w", path, err)
	}

	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("X-Rundeck-Auth-Token", c.token)
	req.Header.Set("Accept", string(accept))
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, &TransportError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &TransportError{Path: path, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("rundeck api request",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("accept", string(accept)),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(body)),
		slog.Duration("took", time.Since(start)),
	)

	root, err := xmltree.Parse(body)
	if err != nil {
		return body, nil, nil
	}

	if _, failed := root.Attributes["error"]; failed {
		message := ""
		if msg := root.First("error").First("message"); msg != nil {
			message = msg.Text
		}
		return nil, nil, &APIError{Path: path, Message: message}
	}

	return body, root, nil
}

// fetchXML requests an XML document and rejects any other body
func (c *Client) fetchXML(ctx context.Context, path string, query, form url.Values) (*xmltree.Element, error) {
	doc, err := c.FetchTree(ctx, AcceptXML, path, query, form)
	if err != nil {
		return nil, err
	}
	if doc.XML == nil {
		return nil, &ParseError{Path: path, Reason: "expected an XML document"}
	}
	return doc.XML, nil
}

// GetSystemInfo returns the raw system info document
func (c *Client) GetSystemInfo(ctx context.Context) (string, error) {
	return c.FetchRaw(ctx, AcceptText, "/api/1/system/info", nil, nil)
}

// GetProjects returns the decoded project list
func (c *Client) GetProjects(ctx context.Context) (any, error) {
	doc, err := c.FetchTree(ctx, AcceptJSON, "/api/1/projects", nil, nil)
	if err != nil {
		return nil, err
	}
	return doc.Value(), nil
}

// GetJobs returns the jobs of the current project keyed by job id
func (c *Client) GetJobs(ctx context.Context) (*model.RecordSet, error) {
	root, err := c.fetchXML(ctx, "/api/2/project/"+url.PathEscape(c.project)+"/jobs", nil, nil)
	if err != nil {
		return nil, err
	}
	return ParseJobs(root), nil
}

// GetJobIDByName returns the id of the first job named name.
// found is false when no job matches.
func (c *Client) GetJobIDByName(ctx context.Context, name string) (string, bool, error) {
	jobs, err := c.GetJobs(ctx)
	if err != nil {
		return "", false, err
	}

	id, found := FindJobByName(jobs, name)
	return id, found, nil
}

// FindJobByName scans jobs in order for the first record whose name matches
func FindJobByName(jobs *model.RecordSet, name string) (string, bool) {
	var (
		match string
		found bool
	)
	jobs.Each(func(id string, job model.Record) bool {
		if job.Text(model.KeyName) == name {
			match, found = id, true
			return false
		}
		return true
	})
	return match, found
}

// RunJob triggers a job run and returns the started execution
func (c *Client) RunJob(ctx context.Context, jobID string, args []model.JobArgument) (*model.RecordSet, error) {
	query := url.Values{"argString": {EncodeArgString(args)}}

	root, err := c.fetchXML(ctx, "/api/1/job/"+url.PathEscape(jobID)+"/run", query, forcePost)
	if err != nil {
		return nil, err
	}

	executions := ParseExecutions(root)

	c.logger.Info("job run requested",
		slog.String("job_id", jobID),
		slog.Int("arguments", len(args)),
		slog.Any("executions", executions.Keys()),
	)

	return executions, nil
}

// EncodeArgString builds the argString of a run request: -name "value" per argument,
// with embedded double quotes doubled
func EncodeArgString(args []model.JobArgument) string {
	var b strings.Builder
	for _, arg := range args {
		b.WriteString("-" + arg.Name + " \"" + strings.ReplaceAll(arg.Value, `"`, `""`) + "\" ")
	}
	return b.String()
}

// GetExecution returns the execution keyed by its id
func (c *Client) GetExecution(ctx context.Context, executionID string) (*model.RecordSet, error) {
	root, err := c.fetchXML(ctx, "/api/1/execution/"+url.PathEscape(executionID), nil, nil)
	if err != nil {
		return nil, err
	}
	return ParseExecutions(root), nil
}

// GetExecutionOutput returns the plain-text log output of an execution.
// params are passed through, e.g. lastlines.
func (c *Client) GetExecutionOutput(ctx context.Context, executionID string, params url.Values) (string, error) {
	return c.FetchRaw(ctx, AcceptText, "/api/5/execution/"+url.PathEscape(executionID)+"/output", params, nil)
}

// ImportJobs imports a <joblist> document into the current project,
// updating jobs with the same name and dropping uuids from the document
func (c *Client) ImportJobs(ctx context.Context, jobListXML string) (*ImportResult, error) {
	query := url.Values{
		"dupeOption": {"update"},
		"uuidOption": {"remove"},
		"project":    {c.project},
		"xmlBatch":   {jobListXML},
	}

	doc, err := c.FetchTree(ctx, AcceptXML, "/api/14/jobs/import", query, forcePost)
	if err != nil {
		return nil, err
	}

	result := ParseImportResult(doc)

	c.logger.Info("jobs imported",
		slog.String("project", c.project),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped),
	)

	return result, nil
}
