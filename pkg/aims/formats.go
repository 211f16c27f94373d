package aims

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shelfgrid/platform/pkg/common/logger"
	"github.com/shelfgrid/platform/pkg/common/models"
	"gopkg.in/yaml.v3"
)

// FormatFetcher is the slice of the gateway the cache needs.
type FormatFetcher interface {
	FetchArticleFormat(ctx context.Context, storeCode string) (models.ArticleFormat, error)
}

// FormatCache serves per-store article formats, backed by redis with a TTL
// and falling back to the default mapping when the gateway fetch fails.
// Format fetch failure is never fatal to a sync pass.
type FormatCache struct {
	fetcher  FormatFetcher
	redis    *redis.Client
	ttl      time.Duration
	fallback models.ArticleFormat
}

func NewFormatCache(fetcher FormatFetcher, redisClient *redis.Client, ttl time.Duration, fallback models.ArticleFormat) *FormatCache {
	return &FormatCache{
		fetcher:  fetcher,
		redis:    redisClient,
		ttl:      ttl,
		fallback: fallback,
	}
}

// Get resolves the article format for a store. Never returns an error: any
// failure degrades to the fallback mapping.
func (c *FormatCache) Get(ctx context.Context, storeCode string) models.ArticleFormat {
	key := "aims:format:" + storeCode

	if c.redis != nil {
		raw, err := c.redis.Get(ctx, key).Result()
		if err == nil {
			var format models.ArticleFormat
			if jsonErr := json.Unmarshal([]byte(raw), &format); jsonErr == nil {
				return format
			}
		} else if !errors.Is(err, redis.Nil) {
			logger.Log.WithError(err).WithField("store_code", storeCode).Warn("Format cache read failed")
		}
	}

	format, err := c.fetcher.FetchArticleFormat(ctx, storeCode)
	if err != nil {
		logger.Log.WithError(err).WithField("store_code", storeCode).Warn("Article format fetch failed, using default mapping")
		return c.fallback
	}
	if format.IDField == "" {
		format.IDField = c.fallback.IDField
	}
	if format.NameField == "" {
		format.NameField = c.fallback.NameField
	}

	if c.redis != nil {
		if raw, jsonErr := json.Marshal(format); jsonErr == nil {
			if err := c.redis.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				logger.Log.WithError(err).WithField("store_code", storeCode).Warn("Format cache write failed")
			}
		}
	}

	return format
}

// DefaultFormat is the mapping used when neither AIMS nor a format file
// provides one.
func DefaultFormat() models.ArticleFormat {
	return models.ArticleFormat{
		Version:   "1",
		IDField:   "articleId",
		NameField: "articleName",
	}
}

// LoadFormatFile reads a YAML article-format mapping. An empty path yields
// the default mapping.
func LoadFormatFile(path string) (models.ArticleFormat, error) {
	if path == "" {
		return DefaultFormat(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultFormat(), err
	}

	var format models.ArticleFormat
	if err := yaml.Unmarshal(content, &format); err != nil {
		return models.ArticleFormat{}, err
	}
	if format.IDField == "" {
		return models.ArticleFormat{}, errors.New("format file missing id_field")
	}
	if format.NameField == "" {
		format.NameField = DefaultFormat().NameField
	}
	return format, nil
}
