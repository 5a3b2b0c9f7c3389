// Package codec defines the serialization boundary between domain values and
// the remote store's flat payloads.
//
// The contract mirrors the remote side: a value serializes to a single
// payload, unknown fields are ignored on decode (forward-compatible schema
// evolution), and "absent" is never a literal payload - absence is the
// deletion of the key.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
