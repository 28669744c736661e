package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/kirychukyurii/rundeck-bridge/internal/cache"
	"github.com/kirychukyurii/rundeck-bridge/internal/concurrent"
	"github.com/kirychukyurii/rundeck-bridge/internal/model"
	"github.com/kirychukyurii/rundeck-bridge/internal/repository"
)

// JobService defines the interface for job and execution operations
type JobService interface {
	Project() string
	ForProject(project string) JobService
	SystemInfo(ctx context.Context) (string, error)
	Projects(ctx context.Context) (any, error)
	ListJobs(ctx context.Context) (*model.RecordSet, error)
	JobIDByName(ctx context.Context, name string) (string, bool, error)
	RunJob(ctx context.Context, jobID string, args []model.JobArgument) (*model.RecordSet, error)
	Execution(ctx context.Context, executionID string) (*model.RecordSet, error)
	ExecutionOutput(ctx context.Context, executionID string, lastLines int) (string, error)
	ExecutionProgress(ctx context.Context, executionID string) (*model.RecordSet, error)
	ExecutionsProgress(ctx context.Context, executionIDs []string) (*model.RecordSet, error)
	ImportJobs(ctx context.Context, jobs ...*model.RundeckJob) (*repository.ImportResult, error)
	ImportJobList(ctx context.Context, jobListXML string) (*repository.ImportResult, error)
}

// jobService implements JobService interface
type jobService struct {
	repo          repository.RundeckRepository
	jobs          cache.Cache[*model.RecordSet]
	maxConcurrent int
	logger        *slog.Logger
}

// NewJobService creates a new job service. Listings are cached per project.
func NewJobService(
	repo repository.RundeckRepository,
	jobs cache.Cache[*model.RecordSet],
	maxConcurrent int,
	logger *slog.Logger,
) JobService {
	return &jobService{
		repo:          repo,
		jobs:          jobs,
		maxConcurrent: maxConcurrent,
		logger:        logger,
	}
}

// Project returns the project the service works on
func (s *jobService) Project() string {
	return s.repo.Project()
}

// ForProject returns a service bound to another project sharing the same cache
func (s *jobService) ForProject(project string) JobService {
	clone := *s
	clone.repo = s.repo.WithProject(project)
	return &clone
}

// SystemInfo returns the raw system info document
func (s *jobService) SystemInfo(ctx context.Context) (string, error) {
	info, err := s.repo.GetSystemInfo(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get system info: %w", err)
	}
	return info, nil
}

// Projects returns the decoded project list
func (s *jobService) Projects(ctx context.Context) (any, error) {
	projects, err := s.repo.GetProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func jobsCacheKey(project string) string {
	return project + ":jobs"
}

// ListJobs returns the jobs of the project keyed by id
func (s *jobService) ListJobs(ctx context.Context) (*model.RecordSet, error) {
	cacheKey := jobsCacheKey(s.repo.Project())

	if jobs, ok := s.jobs.Get(cacheKey); ok {
		s.logger.Debug("jobs retrieved from cache",
			slog.String("project", s.repo.Project()),
			slog.Int("count", jobs.Len()),
		)
		return jobs, nil
	}

	jobs, err := s.repo.GetJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	s.jobs.Set(cacheKey, jobs)

	return jobs, nil
}

// JobIDByName returns the id of the first job with the given name
func (s *jobService) JobIDByName(ctx context.Context, name string) (string, bool, error) {
	jobs, err := s.ListJobs(ctx)
	if err != nil {
		return "", false, err
	}

	id, found := repository.FindJobByName(jobs, name)
	return id, found, nil
}

// RunJob starts a job run
func (s *jobService) RunJob(ctx context.Context, jobID string, args []model.JobArgument) (*model.RecordSet, error) {
	executions, err := s.repo.RunJob(ctx, jobID, args)
	if err != nil {
		return nil, fmt.Errorf("failed to run job %s: %w", jobID, err)
	}
	return executions, nil
}

// Execution returns an execution without progress estimates
func (s *jobService) Execution(ctx context.Context, executionID string) (*model.RecordSet, error) {
	executions, err := s.repo.GetExecution(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get execution %s: %w", executionID, err)
	}
	return executions, nil
}

// ExecutionOutput returns the execution log; lastLines > 0 limits it to the tail
func (s *jobService) ExecutionOutput(ctx context.Context, executionID string, lastLines int) (string, error) {
	var params url.Values
	if lastLines > 0 {
		params = url.Values{"lastlines": {strconv.Itoa(lastLines)}}
	}

	output, err := s.repo.GetExecutionOutput(ctx, executionID, params)
	if err != nil {
		return "", fmt.Errorf("failed to get output of execution %s: %w", executionID, err)
	}
	return output, nil
}

// ExecutionProgress returns an execution with its progress estimates and output tail
func (s *jobService) ExecutionProgress(ctx context.Context, executionID string) (*model.RecordSet, error) {
	executions, err := s.repo.GetExecutionWithProgress(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress of execution %s: %w", executionID, err)
	}
	return executions, nil
}

// ExecutionsProgress fetches the progress of several executions in parallel.
// Executions that could be fetched are returned in input order along with the
// joined errors of the others.
func (s *jobService) ExecutionsProgress(ctx context.Context, executionIDs []string) (*model.RecordSet, error) {
	results := concurrent.MapWithLimit(ctx, executionIDs, s.ExecutionProgress, s.maxConcurrent)

	sets, errs := concurrent.Collect(results)

	merged := model.NewRecordSet()
	for _, set := range sets {
		set.Each(func(id string, execution model.Record) bool {
			merged.Put(id, execution)
			return true
		})
	}

	if len(errs) > 0 {
		s.logger.Warn("some executions could not be fetched",
			slog.Int("requested", len(executionIDs)),
			slog.Int("failed", len(errs)),
		)
		return merged, errors.Join(errs...)
	}

	return merged, nil
}

// ImportJobs validates the jobs, serializes them as one job list and imports it.
// Jobs without a project are imported into the service project.
func (s *jobService) ImportJobs(ctx context.Context, jobs ...*model.RundeckJob) (*repository.ImportResult, error) {
	if len(jobs) == 0 {
		return &repository.ImportResult{}, nil
	}

	for _, job := range jobs {
		if job.Project == "" {
			job.Project = s.repo.Project()
		}
		if err := job.Validate(); err != nil {
			return nil, fmt.Errorf("invalid job %q: %w", job.Name, err)
		}
	}

	doc, err := model.JobList(jobs...)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize jobs: %w", err)
	}

	return s.ImportJobList(ctx, doc)
}

// ImportJobList imports a <joblist> document and drops the cached listing
func (s *jobService) ImportJobList(ctx context.Context, jobListXML string) (*repository.ImportResult, error) {
	result, err := s.repo.ImportJobs(ctx, jobListXML)
	if err != nil {
		return nil, fmt.Errorf("failed to import jobs: %w", err)
	}

	s.jobs.Delete(jobsCacheKey(s.repo.Project()))

	if result.Failed > 0 {
		s.logger.Warn("some jobs failed to import",
			slog.String("project", s.repo.Project()),
			slog.Int("failed", result.Failed),
			slog.Any("errors", result.Errors),
		)
	}

	return result, nil
}
