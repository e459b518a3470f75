package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/bsm/redislock"
	jsonpatch "github.com/evanphx/json-patch"
	"github.com/go-redis/redis/v8"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"sync"
	"time"
)

type DB int
type ReleaseLock func() error

var ErrLockHeld = errors.New("lock is held by another process")

type Client struct {
	client         redis.UniversalClient
	lockExpiration time.Duration
}

type Config struct {
	LockExpirationSeconds   int     `envconfig:"CORRUPT_REDIS_LOCK_EXPIRATION" default:"30"`
	Host                    string  `envconfig:"CORRUPT_REDIS_HOST" required:"true"`
	Port                    string  `envconfig:"CORRUPT_REDIS_PORT" required:"true"`
	HASentinelPort          string  `envconfig:"CORRUPT_REDIS_HA_SENTINEL_PORT" default:"26379"`
	HASentinelMasterName    string  `envconfig:"CORRUPT_REDIS_HA_MASTER_NAME" default:"mymaster"`
	Password                string  `envconfig:"CORRUPT_REDIS_AUTH_PASSWORD" default:""`
	AuthRequired            bool    `envconfig:"CORRUPT_REDIS_AUTH_REQUIRED" default:"false"`
	HAMode                  bool    `envconfig:"CORRUPT_REDIS_HA_MODE" default:"false"`
	HASentinelSocketTimeout float32 `envconfig:"CORRUPT_REDIS_SOCKET_TIMEOUT" default:"0.5"`
}

func NewClient(db DB) (Client, error) {
	cfg, err := readEnvironment()
	if err != nil {
		return Client{}, err
	}
	var client redis.UniversalClient
	if cfg.HAMode {
		client = CreateClusterClient(cfg, db)
	} else {
		client = CreateClient(cfg, db)
	}
	return Client{
		client:         client,
		lockExpiration: time.Duration(cfg.LockExpirationSeconds) * time.Second,
	}, nil
}

func CreateClusterClient(cfg *Config, db DB) *redis.ClusterClient {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.HASentinelPort)
	timeout := time.Duration(float64(cfg.HASentinelSocketTimeout) * float64(time.Second))
	options := redis.FailoverOptions{
		SentinelAddrs: []string{addr},
		ReadTimeout:   timeout,
		WriteTimeout:  timeout,
		MaxRetries:    6,
		DB:            int(db),
		MasterName:    cfg.HASentinelMasterName,
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewFailoverClusterClient(&options)
}

func CreateClient(cfg *Config, db DB) *redis.Client {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	options := redis.Options{
		Addr:       addr,
		MaxRetries: 6,
		DB:         int(db),
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewClient(&options)
}

// Get returns the value stored at key; found is false when the key is absent.
func (client *Client) Get(ctx context.Context, redisKey string) (value []byte, found bool, err error) {
	value, err = client.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (client *Client) Set(ctx context.Context, redisKey string, value []byte, ttl time.Duration) error {
	return client.client.Set(ctx, redisKey, value, ttl).Err()
}

func (client *Client) GetDocument(ctx context.Context, redisKey string, doc interface{}) error {
	b, found, err := client.Get(ctx, redisKey)
	if err != nil {
		return err
	}
	if !found {
		return redis.Nil
	}
	return json.Unmarshal(b, doc)
}

// MergeDocument applies an RFC 7386 merge patch to the JSON document stored
// at redisKey, creating it when missing. The read-modify-write runs under a
// lock on the key.
func (client *Client) MergeDocument(ctx context.Context, redisKey string, patch []byte) (err error) {
	releaseLock, err := client.Lock(ctx, redisKey)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := releaseLock(); err == nil {
			err = releaseErr
		}
	}()
	current, found, err := client.Get(ctx, redisKey)
	if err != nil {
		return err
	}
	if !found {
		current = []byte("{}")
	}
	merged, err := jsonpatch.MergePatch(current, patch)
	if err != nil {
		return fmt.Errorf("failed to merge patch into %s: %w", redisKey, err)
	}
	return client.Set(ctx, redisKey, merged, 0)
}

func (client *Client) Lock(ctx context.Context, redisKey string) (ReleaseLock, error) {
	lockCl := redislock.New(client.client)
	str := redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50)
	lockKey := fmt.Sprintf("lock:%s", redisKey)
	lock, err := lockCl.Obtain(ctx, lockKey, client.lockExpiration, &redislock.Options{RetryStrategy: str})
	if err != nil {
		return nil, err
	}
	return func() error {
		return lock.Release(ctx)
	}, nil
}

// HoldLock obtains lockKey without waiting and keeps refreshing it until the
// returned release function is called or ctx is done.
func (client *Client) HoldLock(ctx context.Context, lockKey string, redisLogger zerolog.Logger) (ReleaseLock, error) {
	lockCl := redislock.New(client.client)
	lock, err := lockCl.Obtain(ctx, lockKey, client.lockExpiration, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, lockKey)
	}
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(client.lockExpiration / 2)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lock.Refresh(ctx, client.lockExpiration, nil); err != nil {
					redisLogger.Err(err).Str("key", lockKey).Msg("Failed to refresh lock")
				}
			}
		}
	}()

	return func() error {
		var err error
		once.Do(func() {
			close(done)
			err = lock.Release(context.Background())
		})
		return err
	}, nil
}

func (client *Client) Close() error {
	return client.client.Close()
}

func readEnvironment() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
