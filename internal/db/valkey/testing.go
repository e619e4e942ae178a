package valkey

import "github.com/redis/rueidis"

// NewStoreForTest creates a Store with the provided rueidis client (test-only).
func NewStoreForTest(c rueidis.Client, keyPrefix string, bareSearch bool) *Store {
	return &Store{client: c, keyPrefix: keyPrefix, bareSearch: bareSearch}
}
