package tokenstore

import (
	"net"
	"strconv"

	"github.com/gofiber/storage/redis"

	"github.com/HandyCommerce/ShopBridge/internal/pkg/cache"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/env"
)

// New builds the Redis storage backing one-time bypass tokens. It reuses
// the cache server's connection settings but keeps tokens in database 1
// so a cache flush cannot revoke in-flight charge confirmations. The
// storage satisfies shopauth.TokenStore.
func New() *redis.Storage {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")

	if client := cache.GetClient(); client != nil {
		if h, p, err := net.SplitHostPort(client.Options().Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}
