// Package symptom turns an untrusted JSON object into the fixed-order feature
// vector the risk model was trained on.
package symptom

import (
	"encoding/json"
	"errors"
	"fmt"
)

// NumFeatures is the width of the model input row.
const NumFeatures = 12

// Feature binds a request key to its column in the model input.
type Feature struct {
	Key  string
	Slot int
}

// Features is the request-key to model-column table, in validation order.
// Reordering slots here silently changes what the model sees.
var Features = [NumFeatures]Feature{
	{Key: "symptom_1", Slot: 0},
	{Key: "symptom_2", Slot: 1},
	{Key: "symptom_3", Slot: 2},
	{Key: "symptom_4", Slot: 3},
	{Key: "symptom_5", Slot: 4},
	{Key: "symptom_6", Slot: 5},
	{Key: "symptom_7", Slot: 6},
	{Key: "symptom_8", Slot: 7},
	{Key: "symptom_9", Slot: 8},
	{Key: "symptom_10", Slot: 9},
	{Key: "symptom_11", Slot: 10},
	{Key: "symptom_12", Slot: 11},
}

// ErrInvalidPayload is returned when the input is not a non-empty object.
var ErrInvalidPayload = errors.New("invalid or empty json")

// MissingFeatureError names a required key absent from the input.
type MissingFeatureError struct {
	Key string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("missing feature: %s", e.Key)
}

// InvalidFeatureValueError names a key whose value is not exactly 0 or 1.
type InvalidFeatureValueError struct {
	Key string
}

func (e *InvalidFeatureValueError) Error() string {
	return fmt.Sprintf("%s must be 0 or 1", e.Key)
}

// Vector is a validated model input row.
type Vector [NumFeatures]float64

// Row returns the vector as a single model input row.
func (v Vector) Row() []float64 {
	row := make([]float64, NumFeatures)
	copy(row, v[:])
	return row
}

// Validate checks raw against the feature table and assembles the vector.
// raw is expected to come from a json.Decoder with UseNumber set, so integer
// literals arrive as json.Number and can be told apart from 1.0 or true.
// Keys outside the table are ignored.
func Validate(raw any) (Vector, error) {
	var v Vector

	obj, ok := raw.(map[string]any)
	if !ok || len(obj) == 0 {
		return v, ErrInvalidPayload
	}

	for _, f := range Features {
		value, present := obj[f.Key]
		if !present {
			return v, &MissingFeatureError{Key: f.Key}
		}
		bit, ok := binary(value)
		if !ok {
			return v, &InvalidFeatureValueError{Key: f.Key}
		}
		v[f.Slot] = bit
	}

	return v, nil
}

func binary(value any) (float64, bool) {
	switch n := value.(type) {
	case json.Number:
		switch n.String() {
		case "0", "-0":
			return 0, true
		case "1":
			return 1, true
		}
	case int:
		if n == 0 || n == 1 {
			return float64(n), true
		}
	case int64:
		if n == 0 || n == 1 {
			return float64(n), true
		}
	}
	return 0, false
}
