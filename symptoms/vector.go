package symptoms

import (
	"strconv"
	"strings"
)

// FeatureVector holds one 0/1 slot per known symptom.
type FeatureVector []float64

// Ones returns the set positions in ascending order.
func (v FeatureVector) Ones() []int {
	var ones []int
	for i, x := range v {
		if x != 0 {
			ones = append(ones, i)
		}
	}
	return ones
}

// Key identifies the vector by its set positions, e.g. "3,17,40".
func (v FeatureVector) Key() string {
	ones := v.Ones()
	parts := make([]string, len(ones))
	for i, pos := range ones {
		parts[i] = strconv.Itoa(pos)
	}
	return strings.Join(parts, ",")
}
