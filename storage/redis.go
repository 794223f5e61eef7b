package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"go-htmlcsstoimage/types"
)

const (
	keySeq    = "hcti:templates:seq"
	keyCount  = "hcti:templates:count"
	keyLatest = "hcti:templates:latest"

	maxTxRetries = 100
)

func versionsKey(templateID string) string { return "hcti:template:" + templateID + ":versions" }
func rendersKey(templateID string) string  { return "hcti:template:" + templateID + ":renders" }
func templateKey(templateID string, version int64) string {
	return "hcti:template:" + templateID + ":v:" + strconv.FormatInt(version, 10)
}

// RedisConfig holds the connection settings for RedisStorage.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Capacity int
}

// RedisStorage implements the Storage interface on Redis.
//
// Keys:
//
//	hcti:templates:seq                 version sequence
//	hcti:templates:count               number of stored versions
//	hcti:templates:latest              zset of template id by latest version
//	hcti:template:{id}:versions        zset of versions of one template
//	hcti:template:{id}:v:{version}     JSON body of one version
//	hcti:template:{id}:renders         hash of render counts by version
type RedisStorage struct {
	rdb      *redis.Client
	capacity int
	logger   *zap.Logger
}

// NewRedisStorage connects to Redis and checks the connection.
func NewRedisStorage(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisStorage, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStorageFromClient(rdb, cfg.Capacity, logger), nil
}

// NewRedisStorageFromClient wraps an existing client.
func NewRedisStorageFromClient(rdb *redis.Client, capacity int, logger *zap.Logger) *RedisStorage {
	if capacity <= 0 {
		capacity = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStorage{rdb: rdb, capacity: capacity, logger: logger}
}

// Close closes the Redis client.
func (s *RedisStorage) Close() error {
	return s.rdb.Close()
}

// Health pings Redis.
func (s *RedisStorage) Health(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Create stores the first version of a new template.
func (s *RedisStorage) Create(ctx context.Context, tpl types.Template) (types.Template, error) {
	return s.store(ctx, tpl, false)
}

// AddVersion stores a new version of an existing template.
func (s *RedisStorage) AddVersion(ctx context.Context, tpl types.Template) (types.Template, error) {
	return s.store(ctx, tpl, true)
}

func (s *RedisStorage) store(ctx context.Context, tpl types.Template, mustExist bool) (types.Template, error) {
	for i := 0; i < maxTxRetries; i++ {
		stored, err := s.storeOnce(ctx, tpl, mustExist)
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug("Retrying template write", zap.String("templateID", tpl.TemplateID), zap.Int("attempt", i+1))
			continue
		}
		return stored, err
	}
	return types.Template{}, fmt.Errorf("storing template %s: %w", tpl.TemplateID, redis.TxFailedErr)
}

func (s *RedisStorage) storeOnce(ctx context.Context, tpl types.Template, mustExist bool) (types.Template, error) {
	vkey := versionsKey(tpl.TemplateID)

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, vkey).Result()
		if err != nil {
			return err
		}
		switch {
		case mustExist && exists == 0:
			s.logger.Warn("Attempt to version non-existent template", zap.String("templateID", tpl.TemplateID))
			return ErrTemplateNotFound
		case !mustExist && exists > 0:
			s.logger.Warn("Attempt to create duplicate template", zap.String("templateID", tpl.TemplateID))
			return ErrTemplateExists
		}

		count, err := tx.Get(ctx, keyCount).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if count >= s.capacity {
			s.logger.Error("Storage capacity reached. Cannot store template", zap.String("templateID", tpl.TemplateID))
			return ErrStorageCapacityReached
		}

		version, err := tx.Incr(ctx, keySeq).Result()
		if err != nil {
			return err
		}
		tpl.TemplateVersion = version
		tpl.ImageCount = 0
		tpl.CreatedAt = time.Now().UTC()
		tpl.UpdatedAt = tpl.CreatedAt

		body, err := json.Marshal(tpl)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, templateKey(tpl.TemplateID, version), body, 0)
			pipe.ZAdd(ctx, vkey, &redis.Z{Score: float64(version), Member: version})
			pipe.ZAdd(ctx, keyLatest, &redis.Z{Score: float64(version), Member: tpl.TemplateID})
			pipe.Incr(ctx, keyCount)
			return nil
		})
		return err
	}, vkey, keyCount)
	if err != nil {
		return types.Template{}, err
	}

	s.logger.Info("Template stored",
		zap.String("templateID", tpl.TemplateID),
		zap.Int64("version", tpl.TemplateVersion))
	return tpl, nil
}

// Get returns one version of a template, or the latest when version is nil.
func (s *RedisStorage) Get(ctx context.Context, templateID string, version *int64) (types.Template, error) {
	var v int64
	if version != nil {
		v = *version
		if _, err := s.rdb.ZScore(ctx, versionsKey(templateID), strconv.FormatInt(v, 10)).Result(); err != nil {
			if errors.Is(err, redis.Nil) {
				return types.Template{}, ErrTemplateNotFound
			}
			return types.Template{}, err
		}
	} else {
		latest, err := s.rdb.ZScore(ctx, keyLatest, templateID).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return types.Template{}, ErrTemplateNotFound
			}
			return types.Template{}, err
		}
		v = int64(latest)
	}

	templates, err := s.load(ctx, []string{templateID}, []int64{v})
	if err != nil {
		return types.Template{}, err
	}
	return templates[0], nil
}

// List returns the latest version of every template, newest first.
func (s *RedisStorage) List(ctx context.Context, count int, maxVersion *int64) (types.PaginatedTemplates, error) {
	entries, err := s.rdb.ZRevRangeByScoreWithScores(ctx, keyLatest, rangeBy(count, maxVersion)).Result()
	if err != nil {
		return types.PaginatedTemplates{}, err
	}

	ids := make([]string, len(entries))
	versions := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = fmt.Sprint(e.Member)
		versions[i] = int64(e.Score)
	}
	templates, err := s.load(ctx, ids, versions)
	if err != nil {
		return types.PaginatedTemplates{}, err
	}
	return paginate(templates, count, nil), nil
}

// ListVersions returns the versions of one template, newest first.
func (s *RedisStorage) ListVersions(ctx context.Context, templateID string, count int, maxVersion *int64) (types.PaginatedTemplates, error) {
	vkey := versionsKey(templateID)
	exists, err := s.rdb.Exists(ctx, vkey).Result()
	if err != nil {
		return types.PaginatedTemplates{}, err
	}
	if exists == 0 {
		return types.PaginatedTemplates{}, ErrTemplateNotFound
	}

	entries, err := s.rdb.ZRevRangeByScoreWithScores(ctx, vkey, rangeBy(count, maxVersion)).Result()
	if err != nil {
		return types.PaginatedTemplates{}, err
	}

	ids := make([]string, len(entries))
	versions := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = templateID
		versions[i] = int64(e.Score)
	}
	templates, err := s.load(ctx, ids, versions)
	if err != nil {
		return types.PaginatedTemplates{}, err
	}
	return paginate(templates, count, nil), nil
}

// IncrementRenderCount records one render of a template version.
func (s *RedisStorage) IncrementRenderCount(ctx context.Context, templateID string, version int64) error {
	field := strconv.FormatInt(version, 10)
	if _, err := s.rdb.ZScore(ctx, versionsKey(templateID), field).Result(); err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrTemplateNotFound
		}
		return err
	}
	renders, err := s.rdb.HIncrBy(ctx, rendersKey(templateID), field, 1).Result()
	if err != nil {
		return err
	}
	s.logger.Debug("Template rendered",
		zap.String("templateID", templateID),
		zap.Int64("version", version),
		zap.Int64("renderCount", renders))
	return nil
}

// rangeBy fetches one extra entry so the caller can tell whether a next page exists.
func rangeBy(count int, maxVersion *int64) *redis.ZRangeBy {
	maxScore := "+inf"
	if maxVersion != nil {
		maxScore = strconv.FormatInt(*maxVersion, 10)
	}
	return &redis.ZRangeBy{Min: "-inf", Max: maxScore, Count: int64(count) + 1}
}

// load reads template bodies and render counts in one pipeline.
func (s *RedisStorage) load(ctx context.Context, ids []string, versions []int64) ([]types.Template, error) {
	if len(ids) == 0 {
		return []types.Template{}, nil
	}

	bodies := make([]*redis.StringCmd, len(ids))
	renders := make([]*redis.StringCmd, len(ids))
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i := range ids {
			bodies[i] = pipe.Get(ctx, templateKey(ids[i], versions[i]))
			renders[i] = pipe.HGet(ctx, rendersKey(ids[i]), strconv.FormatInt(versions[i], 10))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	templates := make([]types.Template, len(ids))
	for i := range ids {
		body, err := bodies[i].Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				s.logger.Error("Template body missing",
					zap.String("templateID", ids[i]),
					zap.Int64("version", versions[i]))
				return nil, ErrTemplateNotFound
			}
			return nil, err
		}
		if err := json.Unmarshal(body, &templates[i]); err != nil {
			return nil, fmt.Errorf("decoding template %s v%d: %w", ids[i], versions[i], err)
		}
		count, err := renders[i].Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}
		templates[i].ImageCount = count
	}
	return templates, nil
}
