package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/sta4152/datahub/pkg/models"
	"github.com/sta4152/datahub/pkg/observability"
	"github.com/sta4152/datahub/pkg/schema"
	"github.com/sta4152/datahub/pkg/storage"
)

var aspectBuilds, _ = otel.Meter("datahub/registry").Int64Counter(
	"datahub.registry.aspect_builds",
	metric.WithDescription("Aspect specs produced, by cache outcome"),
)

// BuildOptions tunes BuildSnapshot
type BuildOptions struct {
	// Cache, when set, holds aspect records keyed by schema and digest
	Cache storage.SpecCache
	// Concurrency bounds the aspects built at once; 0 uses GOMAXPROCS
	Concurrency int
}

// Digest returns a content digest of docs, which must be in a stable order
func Digest(docs []Document) string {
	h := sha256.New()
	for _, doc := range docs {
		fmt.Fprintf(h, "%s\x00%d\x00", doc.Name, len(doc.Content))
		h.Write(doc.Content)
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}

type aspectSource struct {
	record *schema.RecordSchema
	source string
}

// BuildSnapshot decodes docs and builds an aspect record for every record
// schema that declares an Aspect property. Aspects keep document order. When
// several aspects fail, the error of the first one is returned.
func BuildSnapshot(ctx context.Context, docs []Document, opts BuildOptions) (*storage.SnapshotRecord, error) {
	decoder := schema.NewDecoder()
	for _, doc := range docs {
		if err := decoder.Add(doc.Name, doc.Content); err != nil {
			return nil, err
		}
	}
	defs, err := decoder.DecodeAll()
	if err != nil {
		return nil, err
	}

	var aspects []aspectSource
	for _, def := range defs {
		record, ok := def.Schema.(*schema.RecordSchema)
		if !ok || !models.IsAspect(record) {
			continue
		}
		aspects = append(aspects, aspectSource{record: record, source: def.Source})
	}

	digest := Digest(docs)
	records := make([]*storage.AspectRecord, len(aspects))
	errs := make([]error, len(aspects))

	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, a := range aspects {
		i, a := i, a
		g.Go(func() error {
			records[i], errs[i] = buildAspect(ctx, a, digest, opts.Cache)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	snapshot := &storage.SnapshotRecord{
		ID:       uuid.NewString(),
		Digest:   digest,
		LoadedAt: time.Now().UTC(),
		Aspects:  make([]storage.AspectRecord, 0, len(records)),
	}
	declared := make(map[string]string, len(records))
	for _, rec := range records {
		if prev, ok := declared[rec.Name]; ok {
			return nil, fmt.Errorf("aspect %s is declared by both %s and %s", rec.Name, prev, rec.SchemaName)
		}
		declared[rec.Name] = rec.SchemaName
		snapshot.Aspects = append(snapshot.Aspects, *rec)
		for _, w := range rec.Warnings {
			snapshot.Warnings = append(snapshot.Warnings, rec.Name+": "+w)
		}
	}
	return snapshot, nil
}

func buildAspect(ctx context.Context, a aspectSource, digest string, cache storage.SpecCache) (*storage.AspectRecord, error) {
	key := a.record.FullName() + "@" + digest
	if cache != nil {
		rec, err := cache.Get(ctx, key)
		if err == nil {
			aspectBuilds.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cached", true)))
			return rec, nil
		}
		if !errors.Is(err, storage.ErrCacheMiss) {
			observability.FromContext(ctx).WithError(err).WithField("key", key).Warn("Spec cache read failed")
		}
	}

	spec, err := models.BuildAspectSpec(a.record)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.source, err)
	}
	rec := storage.NewAspectRecord(spec, a.source)
	observability.FromContext(ctx).Debugf("Built aspect %s with %d searchable fields", rec.Name, len(rec.Fields))
	aspectBuilds.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cached", false)))

	if cache != nil {
		if err := cache.Set(ctx, key, rec); err != nil {
			observability.FromContext(ctx).WithError(err).WithField("key", key).Warn("Spec cache write failed")
		}
	}
	return rec, nil
}
