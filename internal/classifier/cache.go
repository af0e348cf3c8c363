package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedClassifier memoizes verdicts in Redis. Identical summaries from
// retried pipelines or repeated complaints skip the model round trip.
// Cache failures are invisible to callers; the inner classifier always
// gets a chance.
type CachedClassifier struct {
	inner  Classifier
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedClassifier wraps inner with a Redis verdict cache.
func NewCachedClassifier(inner Classifier, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedClassifier {
	return &CachedClassifier{inner: inner, client: client, ttl: ttl, logger: logger}
}

// Classify implements Classifier.
func (c *CachedClassifier) Classify(ctx context.Context, text string, departments []string) (*Prediction, error) {
	key := cacheKey(text, departments)

	if c.client != nil {
		cached, err := c.client.Get(ctx, key).Result()
		switch {
		case err == nil:
			var prediction Prediction
			if jsonErr := json.Unmarshal([]byte(cached), &prediction); jsonErr == nil {
				return &prediction, nil
			}
			// Malformed entry, fall through and overwrite it.
		case !errors.Is(err, redis.Nil):
			c.logger.Debug("classifier cache read failed", zap.Error(err))
		}
	}

	prediction, err := c.inner.Classify(ctx, text, departments)
	if err != nil {
		return nil, err
	}

	if c.client != nil {
		if payload, jsonErr := json.Marshal(prediction); jsonErr == nil {
			if setErr := c.client.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
				c.logger.Debug("classifier cache write failed", zap.Error(setErr))
			}
		}
	}
	return prediction, nil
}

func cacheKey(text string, departments []string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(departments, ",")))
	return "classifier:verdict:" + hex.EncodeToString(h.Sum(nil))
}
