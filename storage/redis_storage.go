package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opencustody/walletsync/config"
	"github.com/opencustody/walletsync/contexthelper"
	"github.com/opencustody/walletsync/internal/types"
)

type RedisStorage struct {
	cfg    config.Config
	client *redis.Client
}

func NewRedisStorage(cfg config.Config) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	status := client.Ping(context.Background())
	if status.Err() != nil {
		return nil, status.Err()
	}
	return &RedisStorage{
		cfg:    cfg,
		client: client,
	}, nil
}

func verificationTokenKey(scope types.Scope, action types.TargetAction) string {
	return fmt.Sprintf("verification-token:%s:%s:%s", scope.ChatID, scope.Chain, action)
}

func assistedKeysKey(scope types.Scope) string {
	return fmt.Sprintf("assisted-keys:%s:%s", scope.ChatID, scope.Chain)
}

// SetVerificationToken stores an action-scoped verification token. The TTL
// mirrors the server-side token lifetime so a stale token can never be
// replayed from the cache.
func (r *RedisStorage) SetVerificationToken(ctx context.Context, scope types.Scope, action types.TargetAction, token string, ttl time.Duration) error {
	if contexthelper.CheckCancellation(ctx) != nil {
		return ctx.Err()
	}
	return r.client.Set(ctx, verificationTokenKey(scope, action), token, ttl).Err()
}

// GetVerificationToken returns the cached token for an action, or empty
// when none survives.
func (r *RedisStorage) GetVerificationToken(ctx context.Context, scope types.Scope, action types.TargetAction) (string, error) {
	if contexthelper.CheckCancellation(ctx) != nil {
		return "", ctx.Err()
	}
	token, err := r.client.Get(ctx, verificationTokenKey(scope, action)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("fail to get verification token, err: %w", err)
	}
	return token, nil
}

func (r *RedisStorage) DeleteVerificationToken(ctx context.Context, scope types.Scope, action types.TargetAction) error {
	if contexthelper.CheckCancellation(ctx) != nil {
		return ctx.Err()
	}
	return r.client.Del(ctx, verificationTokenKey(scope, action)).Err()
}

// SetAssistedKeys replaces the cached set of fingerprints that belong to
// assisted wallets.
func (r *RedisStorage) SetAssistedKeys(ctx context.Context, scope types.Scope, xfps []string) error {
	if contexthelper.CheckCancellation(ctx) != nil {
		return ctx.Err()
	}
	key := assistedKeysKey(scope)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(xfps) > 0 {
		members := make([]interface{}, len(xfps))
		for i, xfp := range xfps {
			members[i] = xfp
		}
		pipe.SAdd(ctx, key, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("fail to set assisted keys, err: %w", err)
	}
	return nil
}

func (r *RedisStorage) GetAssistedKeys(ctx context.Context, scope types.Scope) ([]string, error) {
	if contexthelper.CheckCancellation(ctx) != nil {
		return nil, ctx.Err()
	}
	xfps, err := r.client.SMembers(ctx, assistedKeysKey(scope)).Result()
	if err != nil {
		return nil, fmt.Errorf("fail to get assisted keys, err: %w", err)
	}
	return xfps, nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
