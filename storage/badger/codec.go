package badger

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/groundwork/storage"
)

// Values are JSON. Chunk and message metadata is schemaless, which rules
// out a fixed binary layout.

func marshalValue(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrSerializationFailed, err)
	}
	return data, nil
}

func unmarshalValue(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrSerializationFailed, err)
	}
	return nil
}
