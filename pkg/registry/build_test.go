package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sta4152/datahub/pkg/annotation"
	"github.com/sta4152/datahub/pkg/models"
	"github.com/sta4152/datahub/pkg/storage/cache"
)

func TestDigest(t *testing.T) {
	a := Digest(validDocs())
	assert.Equal(t, a, Digest(validDocs()))
	assert.Contains(t, a, "sha256:")

	changed := validDocs()
	changed[1].Content = append([]byte(nil), changed[1].Content...)
	changed[1].Content[0] = '#'
	assert.NotEqual(t, a, Digest(changed))

	renamed := validDocs()
	renamed[0].Name = "moved.json"
	assert.NotEqual(t, a, Digest(renamed))
}

func TestBuildSnapshot(t *testing.T) {
	snapshot, err := BuildSnapshot(context.Background(), validDocs(), BuildOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, snapshot.ID)
	assert.Equal(t, Digest(validDocs()), snapshot.Digest)
	assert.WithinDuration(t, time.Now(), snapshot.LoadedAt, time.Minute)
	require.Len(t, snapshot.Aspects, 2)

	ownership := snapshot.Aspects[0]
	assert.Equal(t, "ownership", ownership.Name)
	assert.Equal(t, "common/ownership.json", ownership.Source)
	require.Len(t, ownership.Fields, 1)
	assert.Equal(t, "/owners/*/owner", ownership.Fields[0].Path)
	assert.Equal(t, "owners", ownership.Fields[0].FieldName)
	assert.Equal(t, annotation.FieldTypeURN, ownership.Fields[0].Annotation.FieldType)

	user := snapshot.Aspects[1]
	assert.Equal(t, "corpUserInfo", user.Name)
	assert.Equal(t, "com.example.identity.CorpUserInfo", user.SchemaName)
	require.Len(t, user.Fields, 2)
	assert.Equal(t, "/displayName", user.Fields[0].Path)
	assert.True(t, user.Fields[0].Annotation.QueryByDefault)
	assert.Equal(t, "/email", user.Fields[1].Path)
}

func TestBuildSnapshotValidationError(t *testing.T) {
	docs := append(validDocs(), Document{Name: "broken.json", Content: []byte(duplicateNameJSON)})

	_, err := BuildSnapshot(context.Background(), docs, BuildOptions{Concurrency: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDuplicateName)
	assert.Contains(t, err.Error(), "broken.json")
	assert.Contains(t, err.Error(), "Entity has multiple searchable fields with the same field name name")
}

func TestBuildSnapshotDecodeError(t *testing.T) {
	docs := []Document{{Name: "bad.json", Content: []byte(`{"type": "record", "name": "X", "fields": [{"name": "a", "type": "Missing"}]}`)}}

	_, err := BuildSnapshot(context.Background(), docs, BuildOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.json")
}

func TestBuildSnapshotDuplicateAspect(t *testing.T) {
	docs := []Document{
		{Name: "a.json", Content: []byte(`{"type": "record", "name": "A", "Aspect": "same", "fields": []}`)},
		{Name: "b.json", Content: []byte(`{"type": "record", "name": "B", "Aspect": "same", "fields": []}`)},
	}

	_, err := BuildSnapshot(context.Background(), docs, BuildOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aspect same is declared by both A and B")
}

func TestBuildSnapshotSkipsNonAspects(t *testing.T) {
	docs := []Document{
		{Name: "plain.json", Content: []byte(`{"type": "record", "name": "Plain", "fields": [{"name": "x", "type": "string", "Searchable": {}}]}`)},
	}

	snapshot, err := BuildSnapshot(context.Background(), docs, BuildOptions{})
	require.NoError(t, err)
	assert.Empty(t, snapshot.Aspects)
}

func TestBuildSnapshotUsesCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache(10, time.Minute, nil)
	docs := validDocs()

	first, err := BuildSnapshot(ctx, docs, BuildOptions{Cache: c})
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Stats().Misses)

	// a poisoned entry proves the second build reads from the cache
	key := "com.example.common.Ownership@" + first.Digest
	poisoned := first.Aspects[0]
	poisoned.Source = "cached"
	require.NoError(t, c.Set(ctx, key, &poisoned))

	second, err := BuildSnapshot(ctx, docs, BuildOptions{Cache: c})
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Stats().Hits)
	assert.Equal(t, "cached", second.Aspects[0].Source)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestBuildSnapshotWarnings(t *testing.T) {
	docs := []Document{{Name: "w.json", Content: []byte(`{
	  "type": "record", "name": "W", "Aspect": "w",
	  "fields": [{"name": "inner", "type": {"type": "record", "name": "Inner", "fields": [{"name": "x", "type": "string"}]},
	              "Searchable": {"/missing": {"fieldType": "KEYWORD"}}}]
	}`)}}

	snapshot, err := BuildSnapshot(context.Background(), docs, BuildOptions{})
	require.NoError(t, err)
	require.Len(t, snapshot.Warnings, 1)
	assert.Equal(t, "w: @Searchable override at /inner/missing does not match any field", snapshot.Warnings[0])
	assert.Equal(t, []string{"@Searchable override at /inner/missing does not match any field"}, snapshot.Aspects[0].Warnings)
}
