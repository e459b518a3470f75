package tasks

import (
	"context"
	"fmt"
	"github.com/hoytnotlit/ltr-project/logger"
	"github.com/hoytnotlit/ltr-project/redis"
	"github.com/hoytnotlit/ltr-project/sparv"
	"github.com/kelseyhightower/envconfig"
	"path/filepath"
	"time"
)

type Config struct {
	CacheTTLHours int `envconfig:"CORRUPT_CACHE_TTL_HOURS" default:"720"`
}

type Client struct {
	config      Config
	annotations redis.Client
	runs        redis.Client
	Runs        Runs
}

// NewClient is a preferred way for working with run state kept in Redis
func NewClient() (*Client, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, err
	}
	annotationsRedisClient, err := redis.NewClient(AnnotationsDB)
	if err != nil {
		return nil, err
	}
	runsRedisClient, err := redis.NewClient(RunsDB)
	if err != nil {
		_ = annotationsRedisClient.Close()
		return nil, err
	}
	client := &Client{
		config:      config,
		annotations: annotationsRedisClient,
		runs:        runsRedisClient,
	}
	client.Runs = Runs{client: &client.runs}
	return client, nil
}

// CachedAnnotator wraps next with the Redis annotation cache.
func (client *Client) CachedAnnotator(next sparv.Annotator, settingsHash uint64) *Annotations {
	ttl := time.Duration(client.config.CacheTTLHours) * time.Hour
	return NewAnnotations(&client.annotations, next, settingsHash, ttl)
}

// LockOutput makes sure a single run appends to the output file at path.
func (client *Client) LockOutput(ctx context.Context, path string) (redis.ReleaseLock, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	lockLogger := logger.NewLogger("Output lock")
	return client.runs.HoldLock(ctx, outputLockKey(abs), lockLogger)
}

func (client *Client) Close() {
	_ = client.annotations.Close()
	_ = client.runs.Close()
}

func outputLockKey(path string) string {
	return fmt.Sprintf("lock:output:%s", path)
}
