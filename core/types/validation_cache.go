package types

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/crypto/blake2b"
)

// validatorCache holds compiled validators keyed by the digest of their
// encoded schema. Methods of one family tend to share argument schemas
// ("on" is an array throughout _array), so one compile serves many.
type validatorCache struct {
	entries *lru.Cache[[32]byte, *jsonschema.Schema]
}

func newValidatorCache(size int) (*validatorCache, error) {
	entries, err := lru.New[[32]byte, *jsonschema.Schema](size)
	if err != nil {
		return nil, fmt.Errorf("validator cache: %w", err)
	}
	return &validatorCache{entries: entries}, nil
}

func schemaKey(schemaJSON []byte) [32]byte {
	return blake2b.Sum256(schemaJSON)
}

func (c *validatorCache) get(key [32]byte) (*jsonschema.Schema, bool) {
	return c.entries.Get(key)
}

func (c *validatorCache) put(key [32]byte, schema *jsonschema.Schema) {
	c.entries.Add(key, schema)
}

func (c *validatorCache) len() int {
	return c.entries.Len()
}
