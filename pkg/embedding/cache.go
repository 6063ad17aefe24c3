package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"hotel-insights-go/pkg/log"
)

type cachedClient struct {
	inner Client
	rdb   *redis.Client
	model string
	ttl   time.Duration
}

// NewCachedClient 用 Redis 缓存包装一个 Client。每次刷新大部分洞察句子不变，
// 命中缓存即可跳过模型调用。rdb 为 nil 或 ttl 为 0 时直接返回 inner。
func NewCachedClient(inner Client, rdb *redis.Client, model string, ttl time.Duration) Client {
	if rdb == nil || ttl <= 0 {
		return inner
	}
	return &cachedClient{inner: inner, rdb: rdb, model: model, ttl: ttl}
}

// CacheKey 返回文本向量在 Redis 中的键。
func CacheKey(model, text string) string {
	hash := sha256.Sum256([]byte(model + ":" + text))
	return fmt.Sprintf("emb:%x", hash[:16])
}

func (c *cachedClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(c.model, text)
	if cached, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var vector []float32
		if err := json.Unmarshal(cached, &vector); err == nil && len(vector) > 0 {
			return vector, nil
		}
	} else if err != redis.Nil {
		log.Warnf("[EmbeddingCache] 读取缓存失败: %v", err)
	}

	vector, err := c.inner.CreateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vector); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			log.Warnf("[EmbeddingCache] 写入缓存失败: %v", err)
		}
	}
	return vector, nil
}
