package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guidewisey/guidewise/internal/config"
	"github.com/guidewisey/guidewise/internal/model"
	appErr "github.com/guidewisey/guidewise/internal/pkg/errors"
	"github.com/guidewisey/guidewise/internal/pkg/timeutil"
	"github.com/guidewisey/guidewise/internal/repo"
)

const (
	redisKeyPrefix = "session:"
	anchorPageSize = 500
)

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}
	return client, nil
}

type redisStore struct {
	client *redis.Client
	docs   *repo.DocumentRepo
}

// NewRedisStore keeps sessions in redis; anchor documents stay in db.
func NewRedisStore(client *redis.Client, db *sql.DB) Store {
	return &redisStore{client: client, docs: repo.NewDocumentRepo(db)}
}

func (s *redisStore) Get(ctx context.Context, key string) (*model.Session, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session failed: %w", err)
	}
	var sess model.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session failed: %w", err)
	}
	return &sess, nil
}

func (s *redisStore) Create(ctx context.Context, sess *model.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, redisKeyPrefix+sess.Key, payload, ttlUntil(sess.ExpireAt)).Result()
	if err != nil {
		return fmt.Errorf("redis set session failed: %w", err)
	}
	if !ok {
		return appErr.ErrConflict
	}
	return nil
}

func (s *redisStore) Touch(ctx context.Context, sess *model.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKeyPrefix+sess.Key, payload, ttlUntil(sess.ExpireAt)).Err(); err != nil {
		return fmt.Errorf("redis set session failed: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete session failed: %w", err)
	}
	_, err := s.docs.DeleteBySessionKeys(ctx, []string{key})
	return err
}

// DeleteExpired relies on redis TTLs for the sessions themselves and removes
// anchor documents whose session key no longer exists.
func (s *redisStore) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	var (
		removed int64
		afterID int64
	)
	for {
		anchors, err := s.docs.ListSessionAnchors(ctx, afterID, anchorPageSize)
		if err != nil {
			return removed, err
		}
		if len(anchors) == 0 {
			return removed, nil
		}
		afterID = anchors[len(anchors)-1].ID
		gone, err := s.missingKeys(ctx, anchors)
		if err != nil {
			return removed, err
		}
		if _, err := s.docs.DeleteBySessionKeys(ctx, gone); err != nil {
			return removed, err
		}
		removed += int64(len(gone))
		if len(anchors) < anchorPageSize {
			return removed, nil
		}
	}
}

func (s *redisStore) missingKeys(ctx context.Context, anchors []repo.SessionAnchor) ([]string, error) {
	pipe := s.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(anchors))
	for i, a := range anchors {
		cmds[i] = pipe.Exists(ctx, redisKeyPrefix+a.SessionKey)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis check sessions failed: %w", err)
	}
	var gone []string
	for i, cmd := range cmds {
		if cmd.Val() == 0 {
			gone = append(gone, anchors[i].SessionKey)
		}
	}
	return gone, nil
}

func ttlUntil(expireAt int64) time.Duration {
	ttl := time.Duration(expireAt-timeutil.NowUnix()) * time.Second
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}
