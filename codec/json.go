package codec

import "encoding/json"

// JSON is the default codec. encoding/json already satisfies the remote
// schema contract: unknown fields are skipped on Unmarshal, so old readers
// tolerate payloads written by newer schema versions.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
