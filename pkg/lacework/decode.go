package lacework

import (
	"encoding/json"
	"fmt"
	"iter"

	"github.com/Checker-Finance/lacework-go-sdk/pkg/api"
)

// Data decodes the "data" member of resp into T.
func Data[T any](resp *api.Response) (T, error) {
	var env struct {
		Data T `json:"data"`
	}
	if err := resp.JSON(&env); err != nil {
		var zero T
		return zero, err
	}
	return env.Data, nil
}

// Collect drains seq, decoding every item into T. It stops at the first error.
func Collect[T any](seq iter.Seq2[json.RawMessage, error]) ([]T, error) {
	var out []T
	for raw, err := range seq {
		if err != nil {
			return out, err
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return out, fmt.Errorf("decode item %d: %w", len(out), err)
		}
		out = append(out, v)
	}
	return out, nil
}
