// Package inventory drives resumable, chunked listings of object-storage
// buckets.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vietdv277/bucketinv/internal/store"
	"github.com/vietdv277/bucketinv/pkg/provider"
	"github.com/vietdv277/bucketinv/pkg/types"
)

// Default listing parameters
const (
	DefaultFlushThreshold = 500000
	DefaultPageSize       = 1000
)

var (
	// ErrMissingCheckpoint is returned when a bucket has chunks on disk but
	// no continuation token to resume from
	ErrMissingCheckpoint = errors.New("resumed bucket has no checkpoint")

	// ErrInconsistentState is returned when the manifest and the chunk files
	// on disk cannot be reconciled
	ErrInconsistentState = errors.New("manifest does not match chunks on disk")

	// ErrPageOverflow is returned when the provider returns more records
	// than requested
	ErrPageOverflow = errors.New("provider returned more records than requested")
)

// State is a Driver lifecycle state
type State int

const (
	StateInit State = iota
	StateListing
	StateFlushing
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateListing:
		return "listing"
	case StateFlushing:
		return "flushing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stores groups the on-disk collaborators of a Driver
type Stores struct {
	Tracker     *store.Tracker
	Checkpoints *store.CheckpointStore
	Manifests   *store.ManifestStore
	Chunks      *store.ChunkWriter
}

// Result is the terminal outcome of one bucket listing
type Result struct {
	Bucket   string
	State    State
	Chunks   int   // chunks written by this run
	Records  int64 // records captured by this run
	Err      error
	Duration time.Duration
}

// Driver lists one bucket end to end. A Driver is single use and not safe
// for concurrent use.
type Driver struct {
	bucket    string
	provider  provider.StorageProvider
	stores    Stores
	threshold int
	pageSize  int
	runID     string
	log       zerolog.Logger

	state       State
	initialized bool
	seq         int    // next chunk sequence to write
	cursor      string // token for the next page request
	committed   string // token durably paired with the last committed chunk
	buffer      []types.ObjectRecord
	total       int64 // records committed across all runs
	chunks      int
	records     int64
}

// DriverOptions configures a Driver
type DriverOptions struct {
	Threshold int
	PageSize  int
	RunID     string
	Logger    zerolog.Logger
}

// NewDriver creates a Driver for bucket
func NewDriver(bucket string, p provider.StorageProvider, stores Stores, opts DriverOptions) *Driver {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Driver{
		bucket:    bucket,
		provider:  p,
		stores:    stores,
		threshold: threshold,
		pageSize:  pageSize,
		runID:     opts.RunID,
		log:       opts.Logger.With().Str("bucket", bucket).Logger(),
		state:     StateInit,
	}
}

// State returns the current lifecycle state
func (d *Driver) State() State {
	return d.state
}

// Run lists the bucket until the provider reports the end of the listing or
// an error occurs. Errors are contained in the returned Result.
func (d *Driver) Run(ctx context.Context) *Result {
	start := time.Now()
	d.log.Info().Msg("starting listing")

	done, err := d.init()
	switch {
	case err != nil:
		d.fail(err)
	case done:
		d.state = StateCompleted
		d.log.Info().Msg("already completed")
	default:
		if err = d.list(ctx); err != nil {
			d.fail(err)
		}
	}

	return &Result{
		Bucket:   d.bucket,
		State:    d.state,
		Chunks:   d.chunks,
		Records:  d.records,
		Err:      err,
		Duration: time.Since(start),
	}
}

// init resolves the starting sequence and continuation token. done is true
// when the manifest already records the bucket as completed.
func (d *Driver) init() (done bool, err error) {
	d.state = StateInit

	next, err := d.stores.Tracker.NextSequence(d.bucket)
	if err != nil {
		return false, err
	}

	m, found, err := d.stores.Manifests.Load(d.bucket)
	if err != nil {
		return false, err
	}
	if found {
		if m.Status == store.StatusCompleted {
			return true, nil
		}
		if next, d.total, err = d.reconcile(m, next); err != nil {
			return false, err
		}
	}

	d.seq = next
	if d.seq > 0 {
		token, ok, err := d.stores.Checkpoints.Load(d.bucket)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, fmt.Errorf("%w: %d chunks on disk for %s", ErrMissingCheckpoint, d.seq, d.bucket)
		}
		d.cursor = token
		d.committed = token
		d.log.Info().Int("sequence", d.seq).Msg("resuming from checkpoint")
	}

	d.initialized = true
	return false, d.saveManifest(store.StatusInProgress, nil)
}

// reconcile returns the sequence to resume at and the records committed
// before it, removing chunks written after the last commit of an
// interrupted run
func (d *Driver) reconcile(m *store.Manifest, diskNext int) (int, int64, error) {
	switch {
	case diskNext == m.NextSequence:
		return diskNext, m.Records, nil
	case diskNext < m.NextSequence:
		return 0, 0, fmt.Errorf("%w: expected %d chunks, found %d", ErrInconsistentState, m.NextSequence, diskNext)
	}

	token, _, err := d.stores.Checkpoints.Load(d.bucket)
	if err != nil {
		return 0, 0, err
	}

	// checkpoint advanced after the chunk but before the manifest
	if token != m.Checkpoint {
		if diskNext != m.NextSequence+1 {
			return 0, 0, fmt.Errorf("%w: expected %d chunks, found %d", ErrInconsistentState, m.NextSequence+1, diskNext)
		}
		rows, err := d.stores.Chunks.Count(d.bucket, m.NextSequence)
		if err != nil {
			return 0, 0, err
		}
		d.log.Info().Int("sequence", m.NextSequence).Int("rows", rows).Msg("accepted chunk committed by checkpoint")
		return diskNext, m.Records + int64(rows), nil
	}

	for seq := m.NextSequence; seq < diskNext; seq++ {
		if err := d.stores.Chunks.Remove(d.bucket, seq); err != nil {
			return 0, 0, err
		}
		d.log.Warn().Int("sequence", seq).Msg("removed uncommitted chunk")
	}
	return m.NextSequence, m.Records, nil
}

// list requests pages until the end of the listing, flushing every
// threshold records
func (d *Driver) list(ctx context.Context) error {
	d.state = StateListing

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		want := d.threshold - len(d.buffer)
		if want > d.pageSize {
			want = d.pageSize
		}

		page, err := d.provider.ListPage(ctx, d.bucket, d.cursor, int32(want))
		if err != nil {
			return err
		}
		if len(page.Records) > want {
			return fmt.Errorf("%w: asked for %d, got %d", ErrPageOverflow, want, len(page.Records))
		}

		if !page.HasContents() {
			d.log.Debug().Bool("truncated", page.Truncated).Msg("no content in page")
		}
		d.buffer = append(d.buffer, page.Records...)
		if page.Truncated {
			d.cursor = page.NextToken
		}

		switch {
		case !page.Truncated:
			return d.finish()
		case len(d.buffer) == d.threshold:
			if err := d.flush(); err != nil {
				return err
			}
		}
	}
}

// flush writes the buffer as the next chunk and commits the cursor as its
// checkpoint
func (d *Driver) flush() error {
	d.state = StateFlushing

	if err := d.writeChunk(); err != nil {
		return err
	}
	if err := d.stores.Checkpoints.Save(d.bucket, d.cursor); err != nil {
		return err
	}
	d.commit()
	d.committed = d.cursor

	if err := d.saveManifest(store.StatusInProgress, nil); err != nil {
		return err
	}

	d.state = StateListing
	return nil
}

// finish writes the terminal chunk, which may be empty, and marks the
// bucket completed
func (d *Driver) finish() error {
	d.state = StateFlushing

	if err := d.writeChunk(); err != nil {
		return err
	}

	m := d.manifest(store.StatusCompleted, nil)
	m.NextSequence = d.seq + 1
	m.Records = d.total + int64(len(d.buffer))
	if err := d.stores.Manifests.Save(m); err != nil {
		return err
	}
	d.commit()

	if err := d.stores.Checkpoints.Clear(d.bucket); err != nil {
		d.log.Warn().Err(err).Msg("failed to clear checkpoint")
	}

	d.state = StateCompleted
	d.log.Info().
		Int("chunks", d.chunks).
		Int64("records", d.records).
		Int64("total", d.total).
		Msg("finished processing")
	return nil
}

func (d *Driver) writeChunk() error {
	path, err := d.stores.Chunks.Write(d.bucket, d.seq, d.buffer)
	if err != nil {
		return err
	}

	d.log.Info().
		Str("file", path).
		Int("sequence", d.seq).
		Int("rows", len(d.buffer)).
		Int64("entries", d.total+int64(len(d.buffer))).
		Msg("chunk written")
	return nil
}

// commit advances past the chunk just written and releases the buffer
func (d *Driver) commit() {
	n := int64(len(d.buffer))
	d.total += n
	d.records += n
	d.chunks++
	d.seq++
	d.buffer = d.buffer[:0]
}

// fail records the failure through best-effort side effects. Errors raised
// here are logged, never returned.
func (d *Driver) fail(cause error) {
	d.state = StateFailed
	d.log.Error().Err(cause).Int("sequence", d.seq).Msg("listing failed")

	if _, err := d.stores.Chunks.WriteException(d.bucket, d.seq, store.Failure{
		Err:        cause,
		LastToken:  d.cursor,
		OccurredAt: time.Now(),
	}); err != nil {
		d.log.Error().Err(err).Msg("failed to write exception artifact")
	}

	if d.committed != "" {
		d.log.Error().Str("token", d.committed).Msg("resume token")
		if err := d.stores.Checkpoints.Save(d.bucket, d.committed); err != nil {
			d.log.Error().Err(err).Msg("failed to persist resume token")
		}
	}

	// a failed init may not have a trustworthy view of the disk
	if d.initialized {
		if err := d.saveManifest(store.StatusFailed, cause); err != nil {
			d.log.Error().Err(err).Msg("failed to record failure in manifest")
		}
	}

	d.buffer = nil
}

func (d *Driver) saveManifest(status store.Status, cause error) error {
	return d.stores.Manifests.Save(d.manifest(status, cause))
}

func (d *Driver) manifest(status store.Status, cause error) *store.Manifest {
	m := &store.Manifest{
		Bucket:       d.bucket,
		Status:       status,
		NextSequence: d.seq,
		Records:      d.total,
		RunID:        d.runID,
	}
	if status != store.StatusCompleted {
		m.Checkpoint = d.committed
	}
	if cause != nil {
		m.Error = cause.Error()
	}
	return m
}
