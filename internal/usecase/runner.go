package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"JobWatch/internal/domain"
	"JobWatch/internal/ports"
)

// Outcome describes a run request against a stored source.
type Outcome struct {
	Source domain.Source
	Ran    bool
	Reason string
	Report *domain.RunReport
}

// Runner resolves sources from the store and hands them to the pipeline.
type Runner struct {
	store    ports.SourceStore
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewRunner wires the store and the pipeline.
func NewRunner(store ports.SourceStore, pipeline *Pipeline, logger *slog.Logger) *Runner {
	return &Runner{store: store, pipeline: pipeline, logger: logger}
}

// RunByID runs the stored source with the given id. Inactive sources are skipped.
func (r *Runner) RunByID(ctx context.Context, id int64, opts RunOptions) (Outcome, error) {
	src, err := r.store.Get(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	return r.run(ctx, src, opts)
}

// RunByName runs the stored source with the given name.
func (r *Runner) RunByName(ctx context.Context, name string, opts RunOptions) (Outcome, error) {
	src, err := r.store.GetByName(ctx, name)
	if err != nil {
		return Outcome{}, err
	}
	return r.run(ctx, src, opts)
}

// RunAllActive runs every active source in turn. One failing source does not stop the others;
// the failures are joined.
func (r *Runner) RunAllActive(ctx context.Context, opts RunOptions) ([]Outcome, error) {
	sources, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	var (
		outcomes []Outcome
		errs     []error
	)
	for _, src := range sources {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if !src.Active {
			continue
		}
		out, err := r.run(ctx, src, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src.Name, err))
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, errors.Join(errs...)
}

func (r *Runner) run(ctx context.Context, src domain.Source, opts RunOptions) (Outcome, error) {
	out := Outcome{Source: src}
	if !src.Active {
		out.Reason = "source is inactive"
		r.info("skip inactive source", "source", src.Name)
		return out, nil
	}

	report, err := r.pipeline.Run(ctx, src, opts)
	out.Report = report
	out.Ran = report != nil
	return out, err
}

func (r *Runner) info(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}
