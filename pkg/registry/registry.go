// Package registry loads schema documents into immutable snapshots of aspect
// search specifications.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sta4152/datahub/pkg/models"
	"github.com/sta4152/datahub/pkg/observability"
	"github.com/sta4152/datahub/pkg/storage"
)

var tracer = otel.Tracer("datahub/registry")

// Load triggers
const (
	TriggerStartup  = "startup"
	TriggerWatch    = "watch"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// ErrNoSnapshot is returned before the first successful load or restore
var ErrNoSnapshot = errors.New("registry has no snapshot")

// Options configures a Registry
type Options struct {
	Source      Source
	Cache       storage.SpecCache
	Store       storage.SpecStore
	Metrics     *observability.Metrics
	Logger      *observability.Logger
	Concurrency int
}

// Registry serves the latest successfully loaded snapshot. A failed load
// leaves the previous snapshot in place.
type Registry struct {
	source      Source
	cache       storage.SpecCache
	store       storage.SpecStore
	metrics     *observability.Metrics
	logger      *observability.Logger
	concurrency int

	loadMu sync.Mutex

	mu      sync.RWMutex
	current *storage.SnapshotRecord
}

// New creates a registry reading from opts.Source
func New(opts Options) (*Registry, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("registry source is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Registry{
		source:      opts.Source,
		cache:       opts.Cache,
		store:       opts.Store,
		metrics:     opts.Metrics,
		logger:      logger.WithField("component", "registry"),
		concurrency: opts.Concurrency,
	}, nil
}

// Load reads the source and swaps in a new snapshot. When the documents are
// unchanged the current snapshot is kept and returned.
func (r *Registry) Load(ctx context.Context, trigger string) (snapshot *storage.SnapshotRecord, err error) {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	ctx, span := tracer.Start(ctx, "registry.Load")
	start := time.Now()
	status := "success"
	defer func() {
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("registry.trigger", trigger), attribute.String("registry.status", status))
		span.End()
		if r.metrics != nil {
			r.metrics.RegistryLoadsTotal.WithLabelValues(trigger, status).Inc()
			r.metrics.RegistryLoadDuration.Observe(time.Since(start).Seconds())
		}
	}()

	logger := r.logger.WithField("trigger", trigger)
	ctx = observability.WithLogger(ctx, logger)

	docs, err := r.source.Documents(ctx)
	if err != nil {
		logger.WithError(err).Error("Failed to read schema source")
		return nil, err
	}
	logger.Debugf("Read %d schema documents from %s", len(docs), r.source)

	if current := r.Snapshot(); current != nil && current.Digest == Digest(docs) {
		status = "unchanged"
		logger.WithField("snapshot_id", current.ID).Debug("Schema documents unchanged")
		return current, nil
	}

	snapshot, err = BuildSnapshot(ctx, docs, BuildOptions{Cache: r.cache, Concurrency: r.concurrency})
	if err != nil {
		r.recordValidationFailure(err)
		logger.WithError(err).Error("Failed to build registry snapshot")
		return nil, err
	}

	if r.store != nil {
		if saveErr := r.store.SaveSnapshot(ctx, snapshot); saveErr != nil {
			logger.WithError(saveErr).WithField("snapshot_id", snapshot.ID).Warn("Failed to persist snapshot")
		}
	}

	r.swap(snapshot)
	for _, w := range snapshot.Warnings {
		logger.WithField("snapshot_id", snapshot.ID).Warn(w)
	}
	logger.WithFields(map[string]interface{}{
		"snapshot_id": snapshot.ID,
		"aspects":     len(snapshot.Aspects),
		"fields":      snapshot.FieldCount(),
		"documents":   len(docs),
	}).Info("Registry snapshot loaded")
	return snapshot, nil
}

// Restore installs the latest persisted snapshot when the registry has none
func (r *Registry) Restore(ctx context.Context) (bool, error) {
	if r.store == nil {
		return false, nil
	}
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	if r.Snapshot() != nil {
		return false, nil
	}
	snapshot, err := r.store.LoadLatest(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to restore snapshot: %w", err)
	}

	r.swap(snapshot)
	r.logger.WithFields(map[string]interface{}{
		"snapshot_id": snapshot.ID,
		"aspects":     len(snapshot.Aspects),
	}).Info("Registry snapshot restored")
	return true, nil
}

// Snapshot returns the current snapshot, or nil before the first load
func (r *Registry) Snapshot() *storage.SnapshotRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Aspect returns the aspect named name from the current snapshot
func (r *Registry) Aspect(name string) (*storage.AspectRecord, error) {
	snapshot := r.Snapshot()
	if snapshot == nil {
		return nil, ErrNoSnapshot
	}
	aspect, ok := snapshot.Aspect(name)
	if !ok {
		return nil, fmt.Errorf("aspect %s: %w", name, storage.ErrNotFound)
	}
	return aspect, nil
}

// Ready reports whether a snapshot is being served
func (r *Registry) Ready(ctx context.Context) error {
	if r.Snapshot() == nil {
		return ErrNoSnapshot
	}
	return nil
}

// Source returns the registry source
func (r *Registry) Source() Source { return r.source }

func (r *Registry) swap(snapshot *storage.SnapshotRecord) {
	r.mu.Lock()
	r.current = snapshot
	r.mu.Unlock()

	if r.metrics == nil {
		return
	}
	r.metrics.AspectsLoaded.Set(float64(len(snapshot.Aspects)))
	r.metrics.SearchableFieldsTotal.Reset()
	for _, a := range snapshot.Aspects {
		for _, f := range a.Fields {
			r.metrics.SearchableFieldsTotal.WithLabelValues(string(f.Annotation.FieldType)).Inc()
		}
	}
}

func (r *Registry) recordValidationFailure(err error) {
	if r.metrics == nil {
		return
	}
	if mve, ok := models.AsModelValidationError(err); ok {
		r.metrics.ValidationFailuresTotal.WithLabelValues(mve.Kind.String()).Inc()
	}
}
