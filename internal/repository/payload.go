package repository

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"github.com/vladimiradmaev/therapy-overrides/internal/rawvalue"
)

// encodePayload serializes a history snapshot and pulls out its counter so
// stores can keep it in its own column.
func encodePayload(raw rawvalue.Map) (string, int64, error) {
	counter, err := rawvalue.Int64(raw, "modificationCounter")
	if err != nil {
		return "", 0, err
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode history: %w", err)
	}
	return string(data), counter, nil
}

func decodePayload(payload string) (rawvalue.Map, error) {
	var raw rawvalue.Map
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeDecoding, "MALFORMED_RECORD", "stored history is not valid JSON")
	}
	return raw, nil
}
