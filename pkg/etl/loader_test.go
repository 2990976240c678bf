package etl

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/dealer/pkg/adapters"
	"github.com/ruslano69/dealer/pkg/adapters/sqlite"
	"github.com/ruslano69/dealer/pkg/dataset"
	"github.com/ruslano69/dealer/pkg/resultlog"
)

// fakeAdapter записывает вызовы Write
type fakeAdapter struct {
	readDS   *dataset.Dataset
	readErr  error
	writeErr error
	writes   []adapters.LoadStrategy
	lastDS   *dataset.Dataset
}

func (f *fakeAdapter) Connect(context.Context, adapters.Config) error { return nil }
func (f *fakeAdapter) Close(context.Context) error { return nil }
func (f *fakeAdapter) Type() string { return "fake" }

func (f *fakeAdapter) Read(context.Context, string, adapters.ReadOptions) (*dataset.Dataset, error) {
	return f.readDS, f.readErr
}

func (f *fakeAdapter) Write(_ context.Context, ds *dataset.Dataset, _ string, strategy adapters.LoadStrategy, _ adapters.WriteOptions) (int, error) {
	f.writes = append(f.writes, strategy)
	f.lastDS = ds
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return ds.Len(), nil
}

// recorder - Publisher, сохраняющий результаты
type recorder struct {
	results []resultlog.Result
	err     error
}

func (r *recorder) Publish(_ context.Context, res resultlog.Result) error {
	r.results = append(r.results, res)
	return r.err
}

func (r *recorder) Close() error { return nil }

func newTestLoader(a adapters.Adapter, pub resultlog.Publisher, buf *bytes.Buffer) *Loader {
	logger := zerolog.New(buf)
	l := NewLoader(a, &logger, pub)
	started := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	calls := 0
	l.SetClock(func() time.Time {
		calls++
		return started.Add(time.Duration(calls-1) * time.Second)
	})
	return l
}

func sampleDS() *dataset.Dataset {
	return dataset.FromRecords([]map[string]any{
		{"id": 1, "status": "new"},
		{"id": 2, "status": "paid"},
	})
}

func TestLoader_Write(t *testing.T) {
	fa := &fakeAdapter{}
	pub := &recorder{}
	l := newTestLoader(fa, pub, &bytes.Buffer{})

	res, err := l.Write(context.Background(), sampleDS(), "orders", "merge", adapters.WriteOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, "fake", res.Backend)
	assert.Equal(t, adapters.StrategyMerge, res.Strategy)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, time.Second, res.Duration())
	assert.False(t, res.Skipped)

	require.Len(t, pub.results, 1)
	got := pub.results[0]
	assert.Equal(t, OpWrite, got.Operation)
	assert.Equal(t, resultlog.StatusSuccess, got.Status)
	assert.Equal(t, res.RunID, got.RunID)
	assert.Equal(t, int64(1000), got.DurationMs)
	assert.Equal(t, 2, got.Rows)
}

func TestLoader_UnrecognizedStrategy(t *testing.T) {
	fa := &fakeAdapter{}
	pub := &recorder{}
	var buf bytes.Buffer
	l := newTestLoader(fa, pub, &buf)

	res, err := l.Write(context.Background(), sampleDS(), "orders", "bogus", adapters.WriteOptions{})
	require.NoError(t, err, "unknown strategy must not fail the caller")

	assert.Equal(t, 0, res.Rows)
	assert.True(t, res.Skipped)
	assert.Empty(t, fa.writes, "adapter must not be called")
	assert.Contains(t, buf.String(), `"severity":"critical"`)
	assert.Contains(t, buf.String(), "bogus")

	require.Len(t, pub.results, 1)
	assert.Equal(t, resultlog.StatusSkipped, pub.results[0].Status)
}

func TestLoader_AdapterError(t *testing.T) {
	fa := &fakeAdapter{writeErr: adapters.Unsupported("fake", adapters.StrategyMerge)}
	pub := &recorder{}
	l := newTestLoader(fa, pub, &bytes.Buffer{})

	res, err := l.Write(context.Background(), sampleDS(), "orders", "merge", adapters.WriteOptions{})
	require.ErrorIs(t, err, adapters.ErrUnsupportedOperation)
	assert.ErrorIs(t, res.Err, adapters.ErrUnsupportedOperation)

	require.Len(t, pub.results, 1)
	assert.Equal(t, resultlog.StatusFailed, pub.results[0].Status)
	require.NotNil(t, pub.results[0].Error)
}

func TestLoader_PublishErrorIsLogged(t *testing.T) {
	pub := &recorder{err: errors.New("redis down")}
	var buf bytes.Buffer
	l := newTestLoader(&fakeAdapter{}, pub, &buf)

	_, err := l.Write(context.Background(), sampleDS(), "orders", "append", adapters.WriteOptions{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Failed to publish load result")
}

func TestLoader_NilPublisher(t *testing.T) {
	l := NewLoader(&fakeAdapter{}, nil, nil)
	res, err := l.Write(context.Background(), sampleDS(), "orders", "append", adapters.WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
}

func TestLoader_Read(t *testing.T) {
	fa := &fakeAdapter{readDS: sampleDS()}
	pub := &recorder{}
	l := newTestLoader(fa, pub, &bytes.Buffer{})

	ds, err := l.Read(context.Background(), "orders", adapters.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	require.Len(t, pub.results, 1)
	assert.Equal(t, OpRead, pub.results[0].Operation)
	assert.Equal(t, 2, pub.results[0].Rows)

	fa.readDS, fa.readErr = nil, adapters.Configuration("query required")
	_, err = l.Read(context.Background(), "orders", adapters.ReadOptions{})
	require.ErrorIs(t, err, adapters.ErrConfiguration)
	assert.Equal(t, resultlog.StatusFailed, pub.results[1].Status)
}

func TestTransfer_ReadError(t *testing.T) {
	src := newTestLoader(&fakeAdapter{readErr: errors.New("scan failed")}, nil, &bytes.Buffer{})
	dstAdapter := &fakeAdapter{}
	pub := &recorder{}
	dst := newTestLoader(dstAdapter, pub, &bytes.Buffer{})

	res, err := Transfer(context.Background(), src, dst, TransferOptions{Source: "events", Target: "orders", Strategy: "append"})
	require.EqualError(t, err, "scan failed")
	assert.Equal(t, 0, res.Rows)
	assert.Empty(t, dstAdapter.writes)

	require.Len(t, pub.results, 1)
	assert.Equal(t, OpTransfer, pub.results[0].Operation)
	assert.Equal(t, resultlog.StatusFailed, pub.results[0].Status)
}

// ========== SQLite ==========

func newSQLite(t *testing.T) *Loader {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "app.db")
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE src (id INTEGER, status TEXT);
		CREATE TABLE dst (id INTEGER, status TEXT, insert_timestamp TEXT);
		INSERT INTO src VALUES (1, 'new'), (2, 'paid'), (3, 'void');
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	a := sqlite.NewAdapter()
	require.NoError(t, a.Connect(context.Background(), adapters.Config{Type: sqlite.AdapterType, DSN: dsn}))
	return NewLoader(a, nil, nil)
}

func TestTransfer_SQLite(t *testing.T) {
	ctx := context.Background()
	l := newSQLite(t)
	pub := &recorder{}
	l.publisher = pub

	res, err := Transfer(ctx, l, l, TransferOptions{
		Source:   "src",
		Read:     adapters.ReadOptions{Query: "SELECT id, status FROM src ORDER BY id", Limit: 2},
		Target:   "dst",
		Strategy: "append",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)

	got, err := l.Read(ctx, "dst", adapters.ReadOptions{Query: "SELECT id, status, insert_timestamp FROM dst ORDER BY id"})
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, "paid", got.Row(1)["status"])
	assert.NotEmpty(t, got.Row(0)["insert_timestamp"])

	require.Len(t, pub.results, 2)
	assert.Equal(t, OpTransfer, pub.results[0].Operation)
	assert.Equal(t, OpRead, pub.results[1].Operation)
}

func TestLoader_SQLiteMergeUnsupported(t *testing.T) {
	l := newSQLite(t)
	_, err := l.Write(context.Background(), sampleDS(), "dst", "merge", adapters.WriteOptions{})
	assert.ErrorIs(t, err, adapters.ErrUnsupportedOperation)
}
