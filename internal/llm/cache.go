package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ExtractionStore persists extracted text keyed by image hash.
type ExtractionStore interface {
	// GetExtraction returns ok=false when no entry exists.
	GetExtraction(imageHash string) (text string, ok bool, err error)
	SetExtraction(imageHash, model, text string) error
}

// CachedExtractor wraps an Extractor with a persistent cache. Concurrent
// calls for the same image share one upstream request.
type CachedExtractor struct {
	inner Extractor
	store ExtractionStore
	model string
	group singleflight.Group
}

// NewCachedExtractor creates a cached extractor. model is part of the cache
// key so switching models does not serve stale text. store may be nil.
func NewCachedExtractor(inner Extractor, store ExtractionStore, model string) *CachedExtractor {
	return &CachedExtractor{inner: inner, store: store, model: model}
}

// hashImage creates a SHA256 hash from the model name, media type and image
// data. Each part is length prefixed to prevent boundary collisions.
func hashImage(model, mimeType string, data []byte) string {
	h := sha256.New()
	for _, part := range [][]byte{[]byte(model), []byte(mimeType), data} {
		binary.Write(h, binary.LittleEndian, int64(len(part)))
		h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ExtractText implements Extractor with caching.
func (c *CachedExtractor) ExtractText(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	hash := hashImage(c.model, mimeType, imageData)

	if c.store != nil {
		text, ok, err := c.store.GetExtraction(hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check extraction cache")
		} else if ok {
			log.Debug().Str("hash", hash[:16]).Msg("extraction cache hit")
			return text, nil
		}
	}

	v, err, shared := c.group.Do(hash, func() (any, error) {
		text, err := c.inner.ExtractText(ctx, imageData, mimeType)
		if err != nil {
			return "", err
		}
		if c.store != nil {
			if err := c.store.SetExtraction(hash, c.model, text); err != nil {
				log.Warn().Err(err).Msg("failed to cache extraction result")
			} else {
				log.Debug().Str("hash", hash[:16]).Msg("cached extraction result")
			}
		}
		return text, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		log.Debug().Str("hash", hash[:16]).Msg("shared in-flight extraction")
	}
	return v.(string), nil
}
