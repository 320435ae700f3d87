package imports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thanos-io/objstore"
	"github.com/vinceanalytics/tally/internal/core"
	"github.com/vinceanalytics/tally/internal/db"
	"github.com/vinceanalytics/tally/internal/results"
	"github.com/vinceanalytics/tally/internal/store"
)

type execs struct {
	seen []store.Statement
	err  error
}

func (e *execs) Query(context.Context, store.Statement) ([]results.Row, error) {
	return nil, errors.New("unexpected query")
}

func (e *execs) Exec(_ context.Context, st store.Statement) error {
	e.seen = append(e.seen, st)
	return e.err
}

func setup(t *testing.T) (*Service, *execs, objstore.Bucket) {
	t.Helper()
	dir := t.TempDir()
	g, err := db.Open(db.SQLite, filepath.Join(dir, "imports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(g) })
	b, err := NewBucket(BucketConfig{Provider: Filesystem, Dir: filepath.Join(dir, "bucket")})
	require.NoError(t, err)
	e := &execs{}
	return New(g, e, b), e, b
}

func TestLocation(t *testing.T) {
	require.Equal(t, "imports/abc/data.csv", Location("abc", "data.csv"))
	require.Equal(t, "imports/abc/passwd", Location("abc", "../../etc/passwd"))
}

func TestCreate(t *testing.T) {
	s, _, _ := setup(t)
	ctx := context.Background()
	imp, err := s.Create(ctx, 1, "umami")
	require.NoError(t, err)
	require.Equal(t, db.ImportPending, imp.Status)
	require.Len(t, imp.ID, 36)

	got, err := s.Get(ctx, 1, imp.ID)
	require.NoError(t, err)
	require.Equal(t, "umami", got.Platform)

	ls, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, ls, 1)

	_, err = s.Create(ctx, 1, "excel")
	require.True(t, core.Is(err, core.ErrValidation))
	_, err = s.Create(ctx, 0, "umami")
	require.True(t, core.Is(err, core.ErrValidation))
}

func TestGet(t *testing.T) {
	s, _, _ := setup(t)
	ctx := context.Background()
	imp, err := s.Create(ctx, 1, "plausible")
	require.NoError(t, err)

	_, err = s.Get(ctx, 2, imp.ID)
	require.True(t, core.Is(err, core.ErrNotFound))
	_, err = s.Get(ctx, 1, "3f1c2b9e-6a7d-4e1f-9c7b-0d5e2a1b4c6d")
	require.True(t, core.Is(err, core.ErrNotFound))
	_, err = s.Get(ctx, 1, "not-a-uuid")
	require.True(t, core.Is(err, core.ErrValidation))
}

func TestDelete(t *testing.T) {
	s, e, b := setup(t)
	ctx := context.Background()
	imp, err := s.Create(ctx, 4, "umami")
	require.NoError(t, err)
	_, err = s.Upload(ctx, 4, imp.ID, "export.csv", strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)
	ok, err := b.Exists(ctx, Location(imp.ID, "export.csv"))
	require.NoError(t, err)
	require.True(t, ok)

	err = s.Delete(ctx, 4, imp.ID)
	require.True(t, core.Is(err, core.ErrConflict), "pending imports are active")
	require.NoError(t, s.SetStatus(ctx, imp.ID, db.ImportProcessing))
	err = s.Delete(ctx, 4, imp.ID)
	require.True(t, core.Is(err, core.ErrConflict))
	require.Empty(t, e.seen)

	require.NoError(t, s.SetStatus(ctx, imp.ID, db.ImportCompleted))
	require.NoError(t, s.Delete(ctx, 4, imp.ID))

	require.Len(t, e.seen, 1)
	require.Equal(t, "DELETE FROM events WHERE import_id = {importId:String} AND site_id = {siteId:Int64}", e.seen[0].SQL)
	require.Equal(t, map[string]string{"importId": imp.ID, "siteId": "4"}, e.seen[0].Params.Values())

	_, err = s.Get(ctx, 4, imp.ID)
	require.True(t, core.Is(err, core.ErrNotFound))
	ok, err = b.Exists(ctx, Location(imp.ID, "export.csv"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteMissingFile(t *testing.T) {
	s, _, _ := setup(t)
	ctx := context.Background()
	imp, err := s.Create(ctx, 1, "umami")
	require.NoError(t, err)
	require.NoError(t, s.DB.Model(imp).Updates(map[string]any{"status": db.ImportFailed, "file_name": "gone.csv"}).Error)
	require.NoError(t, s.Delete(ctx, 1, imp.ID))
}

func TestDeleteEventsError(t *testing.T) {
	s, e, _ := setup(t)
	ctx := context.Background()
	imp, err := s.Create(ctx, 1, "umami")
	require.NoError(t, err)
	require.NoError(t, s.SetStatus(ctx, imp.ID, db.ImportFailed))
	boom := errors.New("clickhouse down")
	e.err = boom
	require.ErrorIs(t, s.Delete(ctx, 1, imp.ID), boom)
}

func TestUpload(t *testing.T) {
	s, _, b := setup(t)
	ctx := context.Background()
	imp, err := s.Create(ctx, 1, "umami")
	require.NoError(t, err)

	got, err := s.Upload(ctx, 1, imp.ID, "dir/data.csv", bytes.NewBufferString("x"))
	require.NoError(t, err)
	require.Equal(t, "data.csv", got.FileName)
	r, err := b.Get(ctx, Location(imp.ID, "data.csv"))
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	r.Close()
	require.NoError(t, err)
	require.Equal(t, "x", string(data))

	_, err = s.Upload(ctx, 1, imp.ID, "", bytes.NewBufferString("x"))
	require.True(t, core.Is(err, core.ErrValidation))

	require.NoError(t, s.SetStatus(ctx, imp.ID, db.ImportCompleted))
	_, err = s.Upload(ctx, 1, imp.ID, "data.csv", bytes.NewBufferString("x"))
	require.True(t, core.Is(err, core.ErrConflict))
}

func TestNewBucket(t *testing.T) {
	_, err := NewBucket(BucketConfig{Provider: "ftp"})
	require.Error(t, err)
}
