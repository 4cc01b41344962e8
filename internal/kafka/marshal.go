package kafka

import (
	"encoding/json"
	"fmt"
)

// MustMarshal: payload event kita selalu struct yang pasti bisa di-marshal;
// gagal di sini berarti bug programming, bukan kondisi runtime.
func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// UnwrapPayload memudahkan decode payload spesifik dari envelope.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
