// Package detect decides, on each tick, whether the rendered view should be
// left alone, patched incrementally, or rebuilt from scratch. The detector
// owns the single last-known snapshot; it is replaced wholesale on Apply and
// never mutated in place.
package detect

import (
	"time"

	"github.com/x2605/taskgrid/pkg/debug"
	"github.com/x2605/taskgrid/pkg/metrics"
	"github.com/x2605/taskgrid/pkg/snapshot"
)

// ChangeType is the recommended action for the coordinator.
type ChangeType string

const (
	// ChangeNone means nothing visible changed.
	ChangeNone ChangeType = "none"
	// ChangeIncremental means few enough records changed to patch them
	// individually.
	ChangeIncremental ChangeType = "incremental_update"
	// ChangeFullRefresh means the view must be rebuilt from scratch.
	ChangeFullRefresh ChangeType = "full_refresh"
)

// Reason explains a full-refresh recommendation.
type Reason string

const (
	// ReasonTimeout fires when no refresh happened within the configured
	// window, guarding against silent staleness when no change
	// notification arrived.
	ReasonTimeout Reason = "timeout"
	// ReasonSourceInvalid fires when the external container is gone or
	// yields no records.
	ReasonSourceInvalid Reason = "source_invalid"
	// ReasonExtensiveChanges fires when more records changed than
	// per-record patching is worth.
	ReasonExtensiveChanges Reason = "extensive_changes"
	// ReasonError fires when diffing itself failed; the failure is
	// absorbed here so it can never suppress a needed refresh.
	ReasonError Reason = "error"
)

// Config bounds the detector's patch-vs-rebuild decision.
type Config struct {
	// ForceRefreshAfter is the staleness window for the timeout rule.
	ForceRefreshAfter time.Duration
	// MaxChangedRecords is the most changed records worth patching
	// individually; above it the detector recommends a full rebuild.
	MaxChangedRecords int
}

// DefaultConfig returns the thresholds observed to work well in practice.
func DefaultConfig() Config {
	return Config{
		ForceRefreshAfter: 5 * time.Minute,
		MaxChangedRecords: 50,
	}
}

// Result is one detection outcome.
type Result struct {
	HasChanges         bool
	ChangeType         ChangeType
	ShouldForceRefresh bool
	Reason             Reason
	// Changes is set for incremental and extensive-change outcomes.
	Changes *snapshot.ChangeSet

	// fresh carries the snapshot captured during detection so Apply can
	// install it without touching the source again.
	fresh *snapshot.Snapshot
}

// Detector compares successive snapshots of the external source.
type Detector struct {
	extractor *snapshot.Extractor
	cfg       Config

	lastSnapshot *snapshot.Snapshot
	lastCapture  time.Time

	now func() time.Time // injectable for tests
}

// New creates a detector. The first Detect call treats every record as
// added; call Prime to seed the baseline snapshot instead.
func New(ex *snapshot.Extractor, cfg Config) *Detector {
	if cfg.ForceRefreshAfter <= 0 {
		cfg.ForceRefreshAfter = DefaultConfig().ForceRefreshAfter
	}
	if cfg.MaxChangedRecords <= 0 {
		cfg.MaxChangedRecords = DefaultConfig().MaxChangedRecords
	}
	return &Detector{
		extractor: ex,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Prime captures the baseline snapshot without producing a recommendation.
func (d *Detector) Prime() error {
	snap, err := d.extractor.Extract()
	if err != nil {
		return err
	}
	d.install(snap)
	return nil
}

// LastCapture returns when the baseline snapshot was taken.
func (d *Detector) LastCapture() time.Time { return d.lastCapture }

// Detect classifies the current external state against the baseline. The
// checks run in order and short-circuit:
//
//  1. staleness timeout (no source access)
//  2. container validity
//  3. snapshot diff
//  4. extensive-changes threshold
//  5. incremental vs none
//
// Any internal fault during 3-5 is absorbed into a full-refresh
// recommendation rather than propagated.
func (d *Detector) Detect() Result {
	defer metrics.Timer(metrics.DetectCycle)()

	if d.lastSnapshot != nil && d.now().Sub(d.lastCapture) > d.cfg.ForceRefreshAfter {
		debug.Log("detect: stale for %v, forcing refresh", d.now().Sub(d.lastCapture))
		return Result{HasChanges: true, ChangeType: ChangeFullRefresh, ShouldForceRefresh: true, Reason: ReasonTimeout}
	}

	if !d.extractor.Source().Valid() {
		// Best effort; Apply re-checks before re-capturing.
		if err := d.extractor.Source().Reacquire(); err != nil {
			debug.Log("detect: reacquire failed: %v", err)
		}
		return Result{HasChanges: true, ChangeType: ChangeFullRefresh, ShouldForceRefresh: true, Reason: ReasonSourceInvalid}
	}

	return d.diffStep()
}

// diffStep runs the fallible part of detection under a recover so a fault
// becomes a refresh recommendation instead of a silent miss.
func (d *Detector) diffStep() (res Result) {
	defer func() {
		if r := recover(); r != nil {
			debug.Log("detect: recovered panic during diff: %v", r)
			res = Result{HasChanges: true, ChangeType: ChangeFullRefresh, ShouldForceRefresh: true, Reason: ReasonError}
		}
	}()

	fresh, err := d.extractor.Extract()
	if err != nil {
		debug.Log("detect: extraction failed: %v", err)
		return Result{HasChanges: true, ChangeType: ChangeFullRefresh, ShouldForceRefresh: true, Reason: ReasonSourceInvalid}
	}
	if fresh.Len() == 0 && d.lastSnapshot != nil && d.lastSnapshot.Len() > 0 {
		// Container still attached but suddenly yields nothing; treat as
		// invalid rather than mass removal.
		return Result{HasChanges: true, ChangeType: ChangeFullRefresh, ShouldForceRefresh: true, Reason: ReasonSourceInvalid, fresh: &fresh}
	}

	var base snapshot.Snapshot
	if d.lastSnapshot != nil {
		base = *d.lastSnapshot
	}
	cs := snapshot.Diff(base, fresh)

	switch {
	case cs.Total() > d.cfg.MaxChangedRecords:
		return Result{HasChanges: true, ChangeType: ChangeFullRefresh, ShouldForceRefresh: true, Reason: ReasonExtensiveChanges, Changes: &cs, fresh: &fresh}
	case cs.HasChanges():
		return Result{HasChanges: true, ChangeType: ChangeIncremental, Changes: &cs, fresh: &fresh}
	default:
		return Result{ChangeType: ChangeNone, fresh: &fresh}
	}
}

// Apply installs the detection outcome. Full refreshes reacquire the
// container and re-capture the baseline in full; incremental updates reuse
// the snapshot captured during Detect, since the container is assumed
// unchanged.
func (d *Detector) Apply(res Result) error {
	switch {
	case res.ShouldForceRefresh:
		if err := d.extractor.Source().Reacquire(); err != nil {
			return err
		}
		snap, err := d.extractor.Extract()
		if err != nil {
			return err
		}
		d.install(snap)
	case res.ChangeType == ChangeIncremental:
		if res.fresh != nil {
			d.install(*res.fresh)
			return nil
		}
		snap, err := d.extractor.Extract()
		if err != nil {
			return err
		}
		d.install(snap)
	}
	return nil
}

func (d *Detector) install(snap snapshot.Snapshot) {
	d.lastSnapshot = &snap
	d.lastCapture = snap.CapturedAt
}
