package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/church-latin/internal/formatter"
	"github.com/julianstephens/church-latin/internal/models"
	"github.com/julianstephens/church-latin/internal/seeder"
	"github.com/julianstephens/church-latin/internal/shared"
	"github.com/urfave/cli/v3"
)

// Seed runs the named seeders in dependency order and prints a summary.
//
// Returns an error wrapping [shared.ErrSeedFailed] when any seeder reported an error, so the
// process exits non-zero.
func (r *Runner) Seed(ctx context.Context, cmd *cli.Command) error {
	names := cmd.Args().Slice()
	if len(names) == 0 {
		return fmt.Errorf("%w: seeder name (modules, lessons, quizzes or all)", shared.ErrMissingArgument)
	}

	var reportFormat formatter.Format
	if f := cmd.String("format"); f != "" {
		parsed, err := formatter.ParseFormat(f)
		if err != nil {
			return err
		}
		reportFormat = parsed
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	backend, err := r.client(cmd)
	if err != nil {
		return err
	}

	seeders, err := seeder.Build(names, r.fixturePath(config, cmd.String("data-dir")), backend, r.logger)
	if err != nil {
		return err
	}

	opts := seeder.Options{
		Reset:   cmd.Bool("reset"),
		DryRun:  cmd.Bool("dry-run"),
		Verbose: cmd.Bool("verbose"),
	}
	if opts.Reset && !opts.DryRun {
		r.logger.Warn("reset requested: existing records will be deleted", "seeders", len(seeders))
	}

	results, runErr := seeder.RunAll(ctx, seeders, opts)

	if !cmd.Bool("no-history") {
		r.recordRuns(cmd, results)
	}

	if path := cmd.String("report"); path != "" {
		written, err := formatter.WriteReport(results, path, reportFormat)
		if err != nil {
			return err
		}
		r.logger.Info("report written", "path", written)
	}

	if cmd.Bool("json") {
		if err := r.writeJSON(results, true); err != nil {
			return err
		}
	} else {
		if err := r.writePlain("%s\n", formatter.Summary(results)); err != nil {
			return err
		}
		if list := formatter.ErrorList(results); list != "" {
			if err := r.writePlain("%s", list); err != nil {
				return err
			}
		}
	}

	if errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if n := seeder.ErrorCount(results); n > 0 || runErr != nil {
		return fmt.Errorf("%w: %d %s", shared.ErrSeedFailed, n, shared.Pluralize(n, "error"))
	}
	return nil
}

// recordRuns stores each result in the history database. Failures are logged, never returned.
func (r *Runner) recordRuns(cmd *cli.Command, results []*seeder.Result) {
	repo, err := r.history(cmd)
	if err != nil {
		r.logger.Warn("run history unavailable", "error", err)
		return
	}

	for _, result := range results {
		run := runFromResult(result)
		if err := repo.Create(run); err != nil {
			r.logger.Warn("failed to record seed run", "seeder", result.Seeder, "error", err)
			continue
		}
		r.logger.Debug("recorded seed run", "seeder", run.Seeder, "id", run.ID, "sequence", run.Sequence)
	}
}

func runFromResult(result *seeder.Result) *models.SeedRun {
	run := &models.SeedRun{
		Seeder:     result.Seeder,
		Collection: result.Collection,
		Added:      result.Added,
		Updated:    result.Updated,
		Skipped:    result.Skipped,
		DryRun:     result.DryRun,
		Reset:      result.Reset,
		Elapsed:    result.Elapsed,
		StartedAt:  result.StartedAt,
		Errors:     make([]models.SeedRunError, 0, len(result.Errors)),
	}
	for _, e := range result.Errors {
		run.Errors = append(run.Errors, models.SeedRunError{Record: e.Record, Message: e.Message})
	}
	return run
}

// checker is implemented by seeders that can validate their fixture offline.
type checker interface {
	Check() (*seeder.CheckResult, error)
}

// Validate checks fixtures without contacting the backend. Defaults to every seeder.
func (r *Runner) Validate(ctx context.Context, cmd *cli.Command) error {
	names := cmd.Args().Slice()
	if len(names) == 0 {
		names = []string{"all"}
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	seeders, err := seeder.Build(names, r.fixturePath(config, cmd.String("data-dir")), nil, r.logger)
	if err != nil {
		return err
	}

	checks := make([]*seeder.CheckResult, 0, len(seeders))
	invalid := 0
	for _, s := range seeders {
		c, ok := s.(checker)
		if !ok {
			continue
		}
		result, _ := c.Check()
		checks = append(checks, result)
		invalid += len(result.Errors)
	}

	if cmd.Bool("json") {
		if err := r.writeJSON(checks, true); err != nil {
			return err
		}
	} else if err := r.writePlain("%s", formatter.ChecksToText(checks)); err != nil {
		return err
	}

	if invalid > 0 {
		return fmt.Errorf("%w: %d invalid %s", shared.ErrValidation, invalid, shared.Pluralize(invalid, "record"))
	}
	return nil
}

// CollectionStatus is the record count of one collection.
type CollectionStatus struct {
	Seeder     string `json:"seeder"`
	Collection string `json:"collection"`
	Records    int    `json:"records"`
	Error      string `json:"error,omitempty"`
}

// Status checks backend health and counts the records of each seeded collection.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	backend, err := r.client(cmd)
	if err != nil {
		return err
	}

	if err := backend.Health(ctx); err != nil {
		return fmt.Errorf("backend unhealthy: %w", err)
	}

	statuses := []CollectionStatus{}
	failed := 0
	for _, def := range seeder.Definitions() {
		status := CollectionStatus{Seeder: def.Name, Collection: def.Collection}
		count, err := backend.Count(ctx, def.Collection)
		if err != nil {
			status.Error = err.Error()
			failed++
		}
		status.Records = count
		statuses = append(statuses, status)
	}

	if cmd.Bool("json") {
		if err := r.writeJSON(statuses, true); err != nil {
			return err
		}
	} else {
		r.writePlain("Backend: healthy\n")
		for _, s := range statuses {
			if s.Error != "" {
				r.writePlain("  %-8s error: %s\n", s.Collection, s.Error)
				continue
			}
			r.writePlain("  %-8s %d %s\n", s.Collection, s.Records, shared.Pluralize(s.Records, "record"))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d %s could not be counted", shared.ErrAPIRequest, failed, shared.Pluralize(failed, "collection"))
	}
	return nil
}

// History lists recent runs, or shows one run with its errors when --id is given.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.history(cmd)
	if err != nil {
		return err
	}

	if id := cmd.String("id"); id != "" {
		run, err := repo.Get(id)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(run, true)
		}
		r.writePlain("%s", formatter.RunsToText([]*models.SeedRun{run}))
		for _, e := range run.Errors {
			r.writePlain("  - %s: %s\n", e.Record, e.Message)
		}
		return nil
	}

	limit := int(cmd.Int("limit"))
	if limit < 0 {
		return fmt.Errorf("%w: --limit must not be negative", shared.ErrInvalidFlag)
	}

	runs, err := repo.List(map[string]any{"seeder": cmd.String("seeder"), "limit": limit})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, true)
	}
	return r.writePlain("%s", formatter.RunsToText(runs))
}
