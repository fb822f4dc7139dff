package storage

import (
	"encoding/json"
	"fmt"
)

// PutJSON encodes v and stores it under key.
func PutJSON(b Bucket, key []byte, v any) error {
	data, err := EncodeJSON(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

// GetJSON decodes the value under key into v. found is false when the key is
// absent, in which case v is left untouched.
func GetJSON(b Bucket, key []byte, v any) (found bool, err error) {
	data := b.Get(key)
	if data == nil {
		return false, nil
	}
	if err := DecodeJSON(data, v); err != nil {
		return false, err
	}
	return true, nil
}

// EncodeJSON marshals a value to JSON bytes
func EncodeJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return data, nil
}

// DecodeJSON unmarshals JSON bytes to a value
func DecodeJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}
