package seen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/tossup-backend/internal/config"
	"github.com/yungbote/tossup-backend/internal/platform/logger"
)

type redisStore struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis connects to cfg.RedisAddr and keeps one set per session.
func NewRedis(cfg config.SeenConfig, log *logger.Logger) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newRedisStore(rdb, cfg, log), nil
}

func newRedisStore(rdb goredis.UniversalClient, cfg config.SeenConfig, log *logger.Logger) *redisStore {
	return &redisStore{
		log:    log.With("service", "RedisSeenStore"),
		rdb:    rdb,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL.Duration,
	}
}

func (s *redisStore) key(sessionID uuid.UUID) string {
	return s.prefix + sessionID.String()
}

func (s *redisStore) Seen(ctx context.Context, sessionID uuid.UUID, questionID string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, s.key(sessionID), questionID).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember: %w", err)
	}
	return ok, nil
}

func (s *redisStore) Mark(ctx context.Context, sessionID uuid.UUID, questionID string) error {
	key := s.key(sessionID)
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.SAdd(ctx, key, questionID)
		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}

func (s *redisStore) Reset(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.rdb.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error { return s.rdb.Close() }
