package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	ErrUnsupportedModel = errors.New("unsupported model type")
	ErrInvalidModel     = errors.New("invalid model")
	ErrFeatureMismatch  = errors.New("feature vector length mismatch")
)

// Classifier maps a feature vector to a class index. Implementations are
// read-only once loaded and may be shared between goroutines.
type Classifier interface {
	Name() string
	Predict(features []float64) (int, error)
}

// Model is a Classifier backed by a persisted artifact.
type Model interface {
	Classifier
	NumFeatures() int
	ClassIndices() []int
	Save(path string) error
}

// schema is the part every model artifact shares. Classes holds the class
// index emitted for each output position; empty means 0..n-1.
type schema struct {
	Classes   []int `json:"classes,omitempty"`
	NFeatures int   `json:"n_features"`
}

func (s schema) NumFeatures() int { return s.NFeatures }

func (s schema) classIndices(n int) []int {
	if len(s.Classes) > 0 {
		return append([]int(nil), s.Classes...)
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func (s schema) classAt(pos int) int {
	if len(s.Classes) == 0 {
		return pos
	}
	return s.Classes[pos]
}

func (s schema) checkFeatures(features []float64) error {
	if len(features) != s.NFeatures {
		return fmt.Errorf("%w: got %d, want %d", ErrFeatureMismatch, len(features), s.NFeatures)
	}
	return nil
}

func (s schema) validate(nClasses int) error {
	if s.NFeatures <= 0 {
		return fmt.Errorf("%w: n_features must be positive", ErrInvalidModel)
	}
	if nClasses <= 0 {
		return fmt.Errorf("%w: no classes", ErrInvalidModel)
	}
	if len(s.Classes) > 0 && len(s.Classes) != nClasses {
		return fmt.Errorf("%w: %d classes listed, model has %d", ErrInvalidModel, len(s.Classes), nClasses)
	}
	return nil
}

// argmax returns the first position holding the largest value.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

func readJSON(path string, v any) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}
