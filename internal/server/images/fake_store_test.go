package images

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/common"
)

type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	puts     int
	presigns int
	gets     int
	deleted  []string

	putErr    error
	deleteErr error
	putDelay  time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStore) PresignPut(_ context.Context, key string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presigns++
	return "put://" + key, nil
}

func (f *fakeStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	return "get://" + key, nil
}

func (f *fakeStore) Put(_ context.Context, url string, body []byte, contentType string) error {
	if f.putDelay > 0 {
		time.Sleep(f.putDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	key := url[len("put://"):]
	f.objects[key] = append([]byte(nil), body...)
	f.types[key] = contentType
	return nil
}

func (f *fakeStore) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	if !ok {
		return nil, "", common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), f.types[key], nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

var errStorage = errors.New("storage down")
