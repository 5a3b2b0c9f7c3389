// Package keyspace maps application-level (collection, id) pairs onto the
// remote store's flat key space. Keys are "<collection>:<id>"; an empty
// collection uses the id as the raw key.
package keyspace

import "strings"

const Delimiter = ":"

// Key returns the raw remote key for an id within a collection.
func Key(collection, id string) string {
	if collection == "" {
		return id
	}
	return collection + Delimiter + id
}

// ID strips the collection prefix from a raw key. Keys that do not carry the
// prefix are returned unchanged, so ID(c, Key(c, id)) == id always holds.
func ID(collection, key string) string {
	if collection == "" {
		return key
	}
	return strings.TrimPrefix(key, collection+Delimiter)
}

// Pattern returns the glob matching every key of a collection.
func Pattern(collection string) string {
	if collection == "" {
		return "*"
	}
	return collection + Delimiter + "*"
}
