package database

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

const redisPingTimeout = 5 * time.Second

// InitRedis connects to the Redis instance backing channel sessions and
// receipts. Every card-present operation opens a session and every cash or
// purchase movement writes a receipt, so the process cannot serve traffic
// without it: an unreachable Redis aborts startup instead of handing the
// services a dead client.
func InitRedis() *redis.Client {
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.host") + ":" + viper.GetString("redis.port"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("[REDIS] Sessions and receipts need Redis, refusing to start: %v", err)
	}

	log.Println("[REDIS] Connection established")
	return rdb
}
