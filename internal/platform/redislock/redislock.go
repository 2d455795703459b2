// Package redislock keeps two processes from running the same pipeline at once.
package redislock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/pinegate-backend/internal/platform/envutil"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

const KeyPrefix = "pinegate:lock:"

// ErrHeld is returned by Acquire when another holder owns the key.
var ErrHeld = errors.New("lock held")

// Lease is a held lock. Release is idempotent and only frees the key if this lease still owns it.
type Lease interface {
	Release(ctx context.Context) error
}

type Locker interface {
	// Acquire takes the lock for name, returning ErrHeld when someone else has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (Lease, error)
	Close() error
}

func Key(name string) string { return KeyPrefix + name }

type Config struct {
	Addr     string
	Password string
	DB       int
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Addr:     envutil.String("REDIS_ADDR", ""),
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0, log),
	}
}

// New returns a Redis-backed locker when cfg.Addr is set and reachable, otherwise a process-local one.
func New(ctx context.Context, log *logger.Logger, cfg Config) Locker {
	if cfg.Addr == "" {
		log.Info("REDIS_ADDR not set; using in-process pipeline locks")
		return NewLocal()
	}
	l, err := NewRedis(ctx, log, cfg)
	if err != nil {
		log.Warn("Redis unavailable; using in-process pipeline locks", "addr", cfg.Addr, "error", err)
		return NewLocal()
	}
	return l
}

type redisLocker struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedis(ctx context.Context, log *logger.Logger, cfg Config) (Locker, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &redisLocker{log: log.With("service", "RedisLocker"), rdb: rdb}, nil
}

func (l *redisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (Lease, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	key := Key(name)
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return &redisLease{locker: l, key: key, token: token}, nil
}

func (l *redisLocker) Close() error { return l.rdb.Close() }

// Deletes the key only when it still holds our token, so an expired lease cannot free a newer holder.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type redisLease struct {
	locker *redisLocker
	key    string
	token  string
	once   sync.Once
	err    error
}

func (r *redisLease) Release(ctx context.Context) error {
	r.once.Do(func() {
		n, err := releaseScript.Run(ctx, r.locker.rdb, []string{r.key}, r.token).Int()
		if err != nil {
			r.err = fmt.Errorf("redis release %s: %w", r.key, err)
			return
		}
		if n == 0 {
			r.locker.log.Warn("Lock expired before release", "key", r.key)
		}
	})
	return r.err
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// localLocker serves single-process deployments and tests. Expired entries are taken over.
type localLocker struct {
	mu    sync.Mutex
	held  map[string]*localLease
	clock func() time.Time
}

func NewLocal() Locker {
	return &localLocker{held: map[string]*localLease{}, clock: time.Now}
}

type localLease struct {
	locker  *localLocker
	key     string
	expires time.Time
	once    sync.Once
}

func (l *localLocker) Acquire(_ context.Context, name string, ttl time.Duration) (Lease, error) {
	key := Key(name)
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return nil, ErrHeld
	}
	lease := &localLease{locker: l, key: key, expires: now.Add(ttl)}
	l.held[key] = lease
	return lease, nil
}

func (l *localLocker) Close() error { return nil }

func (r *localLease) Release(context.Context) error {
	r.once.Do(func() {
		r.locker.mu.Lock()
		defer r.locker.mu.Unlock()
		if r.locker.held[r.key] == r {
			delete(r.locker.held, r.key)
		}
	})
	return nil
}
