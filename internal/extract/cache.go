package extract

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// Cache memoizes extraction results by a hash of the strategy kind and text.
// When full, the least recently used entry is evicted.
type Cache struct {
	entries *lru.Cache[string, entity.ExtractedDocument]
}

// NewCache returns a cache holding at most max entries (default 256).
func NewCache(max int) *Cache {
	if max <= 0 {
		max = 256
	}
	// New only fails for a non-positive size
	entries, _ := lru.New[string, entity.ExtractedDocument](max)
	return &Cache{entries: entries}
}

func cacheKey(kind, text string) string {
	sum := sha256.Sum256([]byte(kind + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) Get(kind, text string) (entity.ExtractedDocument, bool) {
	doc, ok := c.entries.Get(cacheKey(kind, text))
	if !ok {
		return entity.ExtractedDocument{}, false
	}
	return doc.Clone(), true
}

func (c *Cache) Put(kind, text string, doc entity.ExtractedDocument) {
	c.entries.Add(cacheKey(kind, text), doc.Clone())
}

func (c *Cache) Len() int {
	return c.entries.Len()
}
