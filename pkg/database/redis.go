package database

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"hotel-insights-go/pkg/log"
)

// RDB 为 nil 表示未配置 Redis，会话历史保存在进程内存中，向量也不做缓存。
var RDB *redis.Client

// InitRedis 初始化 Redis 客户端连接
func InitRedis(addr, password string, db int) {
	if addr == "" {
		log.Info("Redis 未配置，使用内存会话存储")
		return
	}
	RDB = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := RDB.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", err)
	}

	log.Info("Redis client connected successfully")
}
