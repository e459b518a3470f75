package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/hoytnotlit/ltr-project/logger"
	"github.com/hoytnotlit/ltr-project/metrics"
	"github.com/hoytnotlit/ltr-project/redis"
	"github.com/hoytnotlit/ltr-project/sparv"
	"github.com/hoytnotlit/ltr-project/utils"
	"github.com/rs/zerolog"
	"time"
)

const AnnotationsDB redis.DB = 3

type cacheStore interface {
	Get(ctx context.Context, redisKey string) ([]byte, bool, error)
	Set(ctx context.Context, redisKey string, value []byte, ttl time.Duration) error
}

type cachedAnnotation struct {
	Text       string `json:"text"`
	Annotation []byte `json:"annotation"`
}

// Annotations serves annotations from Redis and falls back to the wrapped
// annotator on a miss. Cache errors are logged and never fail a request.
type Annotations struct {
	store        cacheStore
	next         sparv.Annotator
	settingsHash uint64
	ttl          time.Duration
	cacheLogger  zerolog.Logger
}

func NewAnnotations(store cacheStore, next sparv.Annotator, settingsHash uint64, ttl time.Duration) *Annotations {
	return &Annotations{
		store:        store,
		next:         next,
		settingsHash: settingsHash,
		ttl:          ttl,
		cacheLogger:  logger.NewLogger("Annotation cache"),
	}
}

func (cache *Annotations) Annotate(ctx context.Context, text string) ([]byte, error) {
	key := annotationKey(cache.settingsHash, text)
	if annotation, ok := cache.lookup(ctx, key, text); ok {
		metrics.AnnotationCacheHits.Inc()
		return annotation, nil
	}
	annotation, err := cache.next.Annotate(ctx, text)
	if err != nil {
		return nil, err
	}
	cache.save(ctx, key, text, annotation)
	return annotation, nil
}

func (cache *Annotations) lookup(ctx context.Context, key string, text string) ([]byte, bool) {
	b, found, err := cache.store.Get(ctx, key)
	if err != nil {
		cache.cacheLogger.Warn().Err(err).Str("key", key).Msg("Annotation cache lookup failed")
		return nil, false
	}
	if !found {
		return nil, false
	}
	var cached cachedAnnotation
	if err := json.Unmarshal(b, &cached); err != nil {
		cache.cacheLogger.Warn().Err(err).Str("key", key).Msg("Dropping unreadable cache entry")
		return nil, false
	}
	// a hash collision must not hand out another sentence's annotation
	if cached.Text != text {
		return nil, false
	}
	return cached.Annotation, true
}

func (cache *Annotations) save(ctx context.Context, key string, text string, annotation []byte) {
	b, err := json.Marshal(cachedAnnotation{Text: text, Annotation: annotation})
	if err != nil {
		cache.cacheLogger.Warn().Err(err).Str("key", key).Msg("Could not encode cache entry")
		return
	}
	if err := cache.store.Set(ctx, key, b, cache.ttl); err != nil {
		cache.cacheLogger.Warn().Err(err).Str("key", key).Msg("Annotation cache write failed")
	}
}

func annotationKey(settingsHash uint64, text string) string {
	return fmt.Sprintf("annotation:%016x:%016x", settingsHash, utils.HashString(text))
}
