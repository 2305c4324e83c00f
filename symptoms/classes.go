package symptoms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Classes maps a classifier's class index to its diagnosis label.
type Classes struct {
	labels []string
}

func NewClasses(labels []string) *Classes {
	return &Classes{labels: append([]string(nil), labels...)}
}

func (c *Classes) Len() int { return len(c.labels) }

func (c *Classes) Labels() []string { return append([]string(nil), c.labels...) }

func (c *Classes) Label(idx int) (string, error) {
	if idx < 0 || idx >= len(c.labels) {
		return "", fmt.Errorf("%w: %d", ErrUnknownClass, idx)
	}
	return c.labels[idx], nil
}

// Equal reports whether both tables hold the same labels in the same order.
func (c *Classes) Equal(other *Classes) bool {
	if len(c.labels) != len(other.labels) {
		return false
	}
	for i := range c.labels {
		if c.labels[i] != other.labels[i] {
			return false
		}
	}
	return true
}

// UnmarshalJSON accepts either an array of labels or an object keyed by the
// stringified class index. Object keys must cover 0..n-1.
func (c *Classes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var labels []string
		if err := json.Unmarshal(data, &labels); err != nil {
			return err
		}
		c.labels = labels
		return nil
	}
	var byIndex map[string]string
	if err := json.Unmarshal(data, &byIndex); err != nil {
		return err
	}
	labels := make([]string, len(byIndex))
	filled := make([]bool, len(byIndex))
	for key, label := range byIndex {
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(labels) || filled[i] {
			return fmt.Errorf("%w: class key %q", ErrUnknownClass, key)
		}
		labels[i] = label
		filled[i] = true
	}
	c.labels = labels
	return nil
}

func (c *Classes) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.labels)
}

// Encoder is the persisted label encoder fitted on the training targets.
type Encoder struct {
	Classes []string `json:"classes"`
}
