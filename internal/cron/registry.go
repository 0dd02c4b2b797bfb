package cron

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// Job is one unit of periodic work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry pairs a job with its cadence.
type Entry struct {
	Job   Job
	Every time.Duration
}

func (e Entry) Name() string { return e.Job.Name() }

// Registry holds the worker's schedule in registration order.
type Registry struct {
	entries []Entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add schedules job every interval. A nil job is skipped so optional jobs
// can be registered unconditionally.
func (r *Registry) Add(job Job, every time.Duration) error {
	if job == nil {
		return nil
	}
	name := job.Name()
	if name == "" {
		return errors.New("cron: job name is required")
	}
	if every <= 0 {
		return fmt.Errorf("cron: job %q needs a positive interval", name)
	}
	if slices.ContainsFunc(r.entries, func(e Entry) bool { return e.Name() == name }) {
		return fmt.Errorf("cron: job %q registered twice", name)
	}
	r.entries = append(r.entries, Entry{Job: job, Every: every})
	return nil
}

func (r *Registry) Entries() []Entry {
	return slices.Clone(r.entries)
}

// Lookup finds an entry by job name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	i := slices.IndexFunc(r.entries, func(e Entry) bool { return e.Name() == name })
	if i < 0 {
		return Entry{}, false
	}
	return r.entries[i], true
}
