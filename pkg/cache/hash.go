package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// keyVersion is part of every derived key. Bump it when the cached diagram
// or artifact encoding changes so that stale entries become misses.
const keyVersion = "v1"

// hashKey returns "<kind>:<keyVersion>:<sha256>" over the JSON encoding of
// parts. Struct fields encode in declaration order, so equal options give
// equal keys.
func hashKey(kind string, parts ...any) string {
	h := sha256.New()
	// Key parts are strings and flat option structs; encoding cannot fail.
	_ = json.NewEncoder(h).Encode(parts)
	return kind + ":" + keyVersion + ":" + hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 of data. Sources and diagrams are hashed
// with it before they become key parts.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
