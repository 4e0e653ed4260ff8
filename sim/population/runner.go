// Package population runs many independent simulations concurrently: several
// subjects sharing one parameter vector, or one subject under many parameter
// vectors. Every job gets its own sim.Simulator, so no mutable state is shared
// between goroutines; the Equation and Subjects are shared read-only.
package population

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pharmsim/pharmsim/sim"
)

// Job is one simulation: a subject and a positional parameter vector.
type Job struct {
	Subject *sim.Subject
	Values  []float64
}

// Result is the outcome of one Job. Err holds numerical failures, which
// only affect their own job; configuration failures abort the whole batch.
type Result struct {
	RunID       string
	SubjectID   string
	Predictions *sim.Predictions
	Err         error
	Duration    time.Duration
}

// Runner fans jobs out over a bounded number of workers.
type Runner struct {
	Equation sim.Equation
	Config   sim.SimConfig
	Workers  int      // 0 = GOMAXPROCS
	Metrics  *Metrics // optional
}

// Run executes all jobs and returns results in job order, independent of
// scheduling. It stops dispatching when ctx is canceled or a job fails with
// a configuration error, and returns that error.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	if r.Equation == nil {
		return nil, errors.New("population: runner has no equation")
	}
	// fail fast on an unusable solver configuration
	if _, err := sim.NewSimulator(r.Equation, r.Config); err != nil {
		return nil, err
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range jobs {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				r.Metrics.observe(OutcomeCanceled, 0, 0)
				return err
			}
			res, err := r.runOne(jobs[i])
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (r *Runner) runOne(job Job) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	if job.Subject == nil {
		r.Metrics.observe(OutcomeConfig, 0, 0)
		return res, fmt.Errorf("population: run %s: nil subject", res.RunID)
	}
	res.SubjectID = job.Subject.ID
	log := logrus.WithFields(logrus.Fields{"run": res.RunID, "subject": job.Subject.ID})

	s, err := sim.NewSimulator(r.Equation, r.Config)
	if err != nil {
		r.Metrics.observe(OutcomeConfig, 0, 0)
		return res, err
	}

	start := time.Now()
	preds, err := s.Simulate(job.Subject, job.Values)
	res.Duration = time.Since(start)

	switch {
	case err == nil:
		res.Predictions = preds
		r.Metrics.observe(OutcomeOK, res.Duration.Seconds(), preds.Len())
		log.Debugf("completed with %d predictions in %v", preds.Len(), res.Duration)
		return res, nil
	case errors.Is(err, sim.ErrNumerical):
		res.Err = err
		r.Metrics.observe(OutcomeNumerical, res.Duration.Seconds(), 0)
		log.Warnf("numerical failure: %v", err)
		return res, nil
	default:
		r.Metrics.observe(OutcomeConfig, res.Duration.Seconds(), 0)
		return res, fmt.Errorf("population: run %s: %w", res.RunID, err)
	}
}

// SubjectsJobs pairs every subject with the same parameter vector.
func SubjectsJobs(subjects []*sim.Subject, values []float64) []Job {
	jobs := make([]Job, len(subjects))
	for i, s := range subjects {
		jobs[i] = Job{Subject: s, Values: values}
	}
	return jobs
}

// SweepJobs pairs one subject with each parameter vector.
func SweepJobs(subject *sim.Subject, vectors [][]float64) []Job {
	jobs := make([]Job, len(vectors))
	for i, v := range vectors {
		jobs[i] = Job{Subject: subject, Values: v}
	}
	return jobs
}
