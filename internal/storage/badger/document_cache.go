package badger

import (
	"errors"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// CachedDocument is a downloaded document keyed by its source URL.
type CachedDocument struct {
	URL       string `badgerhold:"key"`
	Data      []byte
	FetchedAt time.Time
}

// DocumentCache caches downloaded document bytes so engine retries of the
// same workflow do not re-download the source.
type DocumentCache struct {
	db     *BadgerDB
	ttl    time.Duration
	logger arbor.ILogger
}

// NewDocumentCache creates a cache over the given Badger database.
func NewDocumentCache(db *BadgerDB, ttl time.Duration, logger arbor.ILogger) *DocumentCache {
	return &DocumentCache{db: db, ttl: ttl, logger: logger}
}

// Get returns cached bytes for the URL, or false when absent or expired.
func (c *DocumentCache) Get(url string) ([]byte, bool) {
	var doc CachedDocument
	err := c.db.Store().Get(url, &doc)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("url", url).Msg("Document cache read failed")
		return nil, false
	}

	if c.ttl > 0 && time.Since(doc.FetchedAt) > c.ttl {
		// Expired entries are deleted lazily on access.
		if err := c.db.Store().Delete(url, CachedDocument{}); err != nil {
			c.logger.Warn().Err(err).Str("url", url).Msg("Failed to evict expired cache entry")
		}
		return nil, false
	}

	c.logger.Debug().Str("url", url).Int("bytes", len(doc.Data)).Msg("Document cache hit")
	return doc.Data, true
}

// Put stores downloaded bytes for the URL, replacing any prior entry.
func (c *DocumentCache) Put(url string, data []byte) error {
	doc := CachedDocument{
		URL:       url,
		Data:      data,
		FetchedAt: time.Now().UTC(),
	}
	return c.db.Store().Upsert(url, &doc)
}
