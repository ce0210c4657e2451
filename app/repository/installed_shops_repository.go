package repository

import (
	"context"

	"github.com/HandyCommerce/ShopBridge/internal/pkg/cache"
)

const installedShopsKey = "installed_shops"

// installedShopsRepository implements the InstalledShopsRepository interface
type installedShopsRepository struct {
	// Note: This repository doesn't use GORM DB since it operates on Redis/Cache
}

// NewInstalledShopsRepository creates a new installed shops repository instance
func NewInstalledShopsRepository() InstalledShopsRepository {
	return &installedShopsRepository{}
}

// Add puts a shop domain into the installed set. All mutations of the
// shared installed-shops state go through this repository.
func (r *installedShopsRepository) Add(domain string) error {
	redisClient := cache.GetClient()
	ctx := context.Background()

	return redisClient.SAdd(ctx, installedShopsKey, domain).Err()
}

// Remove drops a shop domain from the installed set.
func (r *installedShopsRepository) Remove(domain string) error {
	redisClient := cache.GetClient()
	ctx := context.Background()

	return redisClient.SRem(ctx, installedShopsKey, domain).Err()
}

// Contains reports whether the domain is currently marked installed.
func (r *installedShopsRepository) Contains(domain string) (bool, error) {
	redisClient := cache.GetClient()
	ctx := context.Background()

	return redisClient.SIsMember(ctx, installedShopsKey, domain).Result()
}

// All returns every installed shop domain.
func (r *installedShopsRepository) All() ([]string, error) {
	redisClient := cache.GetClient()
	ctx := context.Background()

	return redisClient.SMembers(ctx, installedShopsKey).Result()
}
