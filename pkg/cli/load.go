package cli

import (
	"context"
	"fmt"

	"github.com/sta4152/datahub/pkg/registry"
	"github.com/sta4152/datahub/pkg/storage"
)

// buildDir reads every schema document under dir and builds a snapshot
func buildDir(ctx context.Context, dir string) (*storage.SnapshotRecord, error) {
	docs, err := registry.NewDirSource(dir).Documents(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no schema documents found in %s", dir)
	}
	return registry.BuildSnapshot(ctx, docs, registry.BuildOptions{})
}
