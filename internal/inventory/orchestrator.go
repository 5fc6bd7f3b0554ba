package inventory

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/vietdv277/bucketinv/internal/store"
	"github.com/vietdv277/bucketinv/pkg/provider"
	"github.com/vietdv277/bucketinv/pkg/types"
)

// SelectFunc narrows the buckets about to be listed, for example through an
// interactive picker
type SelectFunc func(ctx context.Context, buckets []types.Bucket) ([]types.Bucket, error)

// Options configures an Orchestrator
type Options struct {
	OutputDir      string
	Threshold      int
	PageSize       int
	MaxConcurrency int           // 0 launches every bucket at once
	BucketTimeout  time.Duration // 0 disables the per-bucket deadline
	Include        []string      // glob patterns; empty matches all
	Exclude        []string      // glob patterns
	Select         SelectFunc
	Logger         zerolog.Logger
}

// Summary aggregates the outcome of one orchestrator run
type Summary struct {
	RunID     string
	Completed []*Result
	Failed    []*Result
	Skipped   []string
}

// HasFailures reports whether any bucket ended failed
func (s *Summary) HasFailures() bool {
	return len(s.Failed) > 0
}

// FailedBuckets returns the names of failed buckets in order
func (s *Summary) FailedBuckets() []string {
	names := make([]string, 0, len(s.Failed))
	for _, r := range s.Failed {
		names = append(names, r.Bucket)
	}
	return names
}

// Orchestrator discovers buckets and runs one Driver per bucket that still
// needs listing
type Orchestrator struct {
	provider provider.StorageProvider
	stores   Stores
	opts     Options
	log      zerolog.Logger
	runID    string

	mu      sync.Mutex
	summary *Summary
}

// NewOrchestrator creates an Orchestrator writing to opts.OutputDir on fs
func NewOrchestrator(p provider.StorageProvider, fs afero.Fs, opts Options) *Orchestrator {
	manifests := store.NewManifestStore(fs, opts.OutputDir)
	runID := uuid.NewString()

	return &Orchestrator{
		provider: p,
		stores: Stores{
			Tracker:     store.NewTracker(fs, opts.OutputDir, manifests),
			Checkpoints: store.NewCheckpointStore(fs, opts.OutputDir),
			Manifests:   manifests,
			Chunks:      store.NewChunkWriter(fs, opts.OutputDir),
		},
		opts:  opts,
		log:   opts.Logger.With().Str("run_id", runID).Logger(),
		runID: runID,
	}
}

// Run lists every pending bucket concurrently and waits for all of them.
// Per-bucket failures are reported in the Summary; the returned error covers
// only bucket discovery and selection.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	o.summary = &Summary{RunID: o.runID}

	buckets, err := o.provider.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover buckets: %w", err)
	}

	pending := o.pending(o.filter(buckets))

	if o.opts.Select != nil && len(pending) > 0 {
		offered := pending
		if pending, err = o.opts.Select(ctx, offered); err != nil {
			return nil, fmt.Errorf("failed to select buckets: %w", err)
		}
		o.skipUnselected(offered, pending)
	}

	var sem *semaphore.Weighted
	if o.opts.MaxConcurrency > 0 {
		sem = semaphore.NewWeighted(int64(o.opts.MaxConcurrency))
	}

	var g errgroup.Group
	for _, b := range pending {
		name := b.Name
		o.log.Info().Str("bucket", name).Msg("create and start task")

		g.Go(func() error {
			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					// ctx is done, the driver records the failure without listing
					o.record(o.runBucket(ctx, name))
					return nil
				}
				defer sem.Release(1)
			}

			o.record(o.runBucket(ctx, name))
			return nil
		})
	}

	o.log.Info().Int("tasks", len(pending)).Msg("joining tasks")
	_ = g.Wait()

	o.sortSummary()
	o.log.Info().
		Int("completed", len(o.summary.Completed)).
		Int("failed", len(o.summary.Failed)).
		Int("skipped", len(o.summary.Skipped)).
		Msg("all tasks done")

	return o.summary, nil
}

// runBucket runs one Driver inside its own failure domain
func (o *Orchestrator) runBucket(ctx context.Context, bucket string) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Str("bucket", bucket).Interface("panic", r).Msg("task panicked")
			res = &Result{Bucket: bucket, State: StateFailed, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if o.opts.BucketTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.BucketTimeout)
		defer cancel()
	}

	d := NewDriver(bucket, o.provider, o.stores, DriverOptions{
		Threshold: o.opts.Threshold,
		PageSize:  o.opts.PageSize,
		RunID:     o.runID,
		Logger:    o.log,
	})
	res = d.Run(ctx)

	o.log.Info().Str("bucket", bucket).Stringer("state", res.State).Dur("elapsed", res.Duration).Msg("task done")
	return res
}

// filter applies the include and exclude patterns
func (o *Orchestrator) filter(buckets []types.Bucket) []types.Bucket {
	var out []types.Bucket
	for _, b := range buckets {
		if len(o.opts.Include) > 0 && !matchAny(o.opts.Include, b.Name) {
			continue
		}
		if matchAny(o.opts.Exclude, b.Name) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// pending drops buckets that are already processed. A bucket whose state
// cannot be read is recorded as failed without launching a task.
func (o *Orchestrator) pending(buckets []types.Bucket) []types.Bucket {
	var out []types.Bucket
	for _, b := range buckets {
		done, err := o.stores.Tracker.IsAlreadyProcessed(b.Name)
		if err != nil {
			o.log.Error().Err(err).Str("bucket", b.Name).Msg("cannot determine bucket state")
			o.record(&Result{Bucket: b.Name, State: StateFailed, Err: err})
			continue
		}
		if done {
			o.log.Debug().Str("bucket", b.Name).Msg("already processed, skipping")
			o.summary.Skipped = append(o.summary.Skipped, b.Name)
			continue
		}
		out = append(out, b)
	}
	return out
}

// skipUnselected reports the offered buckets left out of selected as skipped
func (o *Orchestrator) skipUnselected(offered, selected []types.Bucket) {
	keep := make(map[string]struct{}, len(selected))
	for _, b := range selected {
		keep[b.Name] = struct{}{}
	}
	for _, b := range offered {
		if _, ok := keep[b.Name]; !ok {
			o.log.Debug().Str("bucket", b.Name).Msg("not selected, skipping")
			o.summary.Skipped = append(o.summary.Skipped, b.Name)
		}
	}
}

func (o *Orchestrator) record(r *Result) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if r.State == StateCompleted {
		o.summary.Completed = append(o.summary.Completed, r)
		return
	}
	o.summary.Failed = append(o.summary.Failed, r)
}

func (o *Orchestrator) sortSummary() {
	byBucket := func(rs []*Result) {
		sort.Slice(rs, func(i, j int) bool { return rs[i].Bucket < rs[j].Bucket })
	}
	byBucket(o.summary.Completed)
	byBucket(o.summary.Failed)
	sort.Strings(o.summary.Skipped)
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := path.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
