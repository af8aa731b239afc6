package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	repo "estore/internal/repository"

	"github.com/redis/go-redis/v9"
)

// 商品詳細（カテゴリ名つき）をJSONで持つ
type ProductCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProductCache(rdb *redis.Client, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ProductCache{rdb: rdb, ttl: ttl}
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (c *ProductCache) Get(ctx context.Context, id int64) (repo.ProductWithCategory, bool, error) {
	data, err := c.rdb.Get(ctx, productKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return repo.ProductWithCategory{}, false, nil
	}
	if err != nil {
		return repo.ProductWithCategory{}, false, err
	}

	var p repo.ProductWithCategory
	if err := json.Unmarshal(data, &p); err != nil {
		// 壊れた値は捨てる
		_ = c.rdb.Del(ctx, productKey(id)).Err()
		return repo.ProductWithCategory{}, false, nil
	}
	return p, true, nil
}

func (c *ProductCache) Set(ctx context.Context, p repo.ProductWithCategory) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, productKey(p.ID), payload, c.ttl).Err()
}

func (c *ProductCache) Invalidate(ctx context.Context, id int64) error {
	return c.rdb.Del(ctx, productKey(id)).Err()
}
