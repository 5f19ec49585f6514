package recipes

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/logging"
	sc "github.com/dmitrijs2005/recipebox/internal/server/config"
	"github.com/dmitrijs2005/recipebox/internal/server/images"
	"github.com/dmitrijs2005/recipebox/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory blobstore.Store that records every call.
type memStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	puts      []string
	deletes   []string
	putErr    error
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) PresignPut(_ context.Context, key string, _ time.Duration) (string, error) {
	return "mem://" + key, nil
}

func (m *memStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "mem://" + key + "?get", nil
}

func (m *memStore) Put(_ context.Context, url string, body []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	key := url[len("mem://"):]
	m.objects[key] = body
	m.puts = append(m.puts, key)
	return nil
}

func (m *memStore) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, "", common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), "", nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletes = append(m.deletes, key)
	delete(m.objects, key)
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memStore) deleteCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, k := range m.deletes {
		if k == key {
			n++
		}
	}
	return n
}

var errBlob = errors.New("blob storage unavailable")

type fixture struct {
	svc    *Service
	db     *sql.DB
	store  *memStore
	images *images.Manager
}

func newFixture(t *testing.T, cfg *sc.Config) *fixture {
	t.Helper()
	ctx := context.Background()
	if cfg == nil {
		cfg = &sc.Config{}
	}
	cfg.UploadURLExpiry = time.Minute
	cfg.DisplayURLExpiry = time.Minute

	db, dialect, err := repomanager.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "recipes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm, err := repomanager.NewSQLRepositoryManager(dialect, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, rm.RunMigrations(ctx, db))

	st := newMemStore()
	im, err := images.NewManager(st, cfg, logging.Discard())
	require.NoError(t, err)

	return &fixture{
		svc:    NewService(db, rm, im, cfg, logging.Discard()),
		db:     db,
		store:  st,
		images: im,
	}
}

// upload stores a fresh owned blob and returns its ref.
func (f *fixture) upload(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	h, err := f.images.IssueUploadTarget(ctx)
	require.NoError(t, err)
	ref, err := f.images.Upload(ctx, h, []byte("img"), "image/jpeg")
	require.NoError(t, err)
	return ref
}

func ptr[T any](v T) *T { return &v }
