package tasks

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

type memoryStore struct {
	values  map[string][]byte
	failGet bool
	failSet bool
	ttls    []time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string][]byte{}}
}

func (store *memoryStore) Get(_ context.Context, redisKey string) ([]byte, bool, error) {
	if store.failGet {
		return nil, false, errors.New("connection refused")
	}
	v, ok := store.values[redisKey]
	return v, ok, nil
}

func (store *memoryStore) Set(_ context.Context, redisKey string, value []byte, ttl time.Duration) error {
	if store.failSet {
		return errors.New("connection refused")
	}
	store.values[redisKey] = value
	store.ttls = append(store.ttls, ttl)
	return nil
}

type countingAnnotator struct {
	calls int
	err   error
}

func (annotator *countingAnnotator) Annotate(_ context.Context, text string) ([]byte, error) {
	annotator.calls++
	if annotator.err != nil {
		return nil, annotator.err
	}
	return []byte("<result>" + text + "</result>"), nil
}

func TestAnnotations(t *testing.T) {
	ctx := context.Background()

	t.Run("Second request is served from cache", func(t *testing.T) {
		store := newMemoryStore()
		next := &countingAnnotator{}
		cache := NewAnnotations(store, next, 42, time.Hour)

		first, err := cache.Annotate(ctx, "Anna kom hem")
		require.NoError(t, err)
		second, err := cache.Annotate(ctx, "Anna kom hem")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, next.calls)
		assert.Equal(t, []time.Duration{time.Hour}, store.ttls)
	})

	t.Run("Different settings do not share entries", func(t *testing.T) {
		store := newMemoryStore()
		next := &countingAnnotator{}
		_, err := NewAnnotations(store, next, 1, time.Hour).Annotate(ctx, "Hej")
		require.NoError(t, err)
		_, err = NewAnnotations(store, next, 2, time.Hour).Annotate(ctx, "Hej")
		require.NoError(t, err)
		assert.Equal(t, 2, next.calls)
	})

	t.Run("Entry for another text is ignored", func(t *testing.T) {
		store := newMemoryStore()
		store.values[annotationKey(7, "Hej")] = []byte(`{"text":"Hallå","annotation":"PHg+"}`)
		next := &countingAnnotator{}
		got, err := NewAnnotations(store, next, 7, time.Hour).Annotate(ctx, "Hej")
		require.NoError(t, err)
		assert.Equal(t, "<result>Hej</result>", string(got))
		assert.Equal(t, 1, next.calls)
	})

	t.Run("Cache failures fall through", func(t *testing.T) {
		store := newMemoryStore()
		store.failGet = true
		store.failSet = true
		next := &countingAnnotator{}
		got, err := NewAnnotations(store, next, 7, time.Hour).Annotate(ctx, "Hej")
		require.NoError(t, err)
		assert.Equal(t, "<result>Hej</result>", string(got))
	})

	t.Run("Annotation errors are not cached", func(t *testing.T) {
		store := newMemoryStore()
		next := &countingAnnotator{err: errors.New("timeout")}
		_, err := NewAnnotations(store, next, 7, time.Hour).Annotate(ctx, "Hej")
		require.Error(t, err)
		assert.Empty(t, store.values)
	})
}
