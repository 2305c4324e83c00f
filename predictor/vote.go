package predictor

import (
	"errors"
	"fmt"
	"strings"
)

var ErrAmbiguousVote = errors.New("no unique mode among classifier predictions")

// AmbiguousVoteError is returned when no label wins outright.
type AmbiguousVoteError struct {
	Predictions []string
}

func (e *AmbiguousVoteError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAmbiguousVote, strings.Join(e.Predictions, ", "))
}

func (e *AmbiguousVoteError) Unwrap() error { return ErrAmbiguousVote }

// Vote returns the single most frequent prediction. If two or more labels
// share the top count there is no winner and the result is an
// AmbiguousVoteError; for three voters that means all three differ.
func Vote(predictions ...string) (string, error) {
	if len(predictions) == 0 {
		return "", &AmbiguousVoteError{}
	}
	counts := make(map[string]int, len(predictions))
	best, bestCount, tied := "", 0, false
	for _, p := range predictions {
		counts[p]++
		switch c := counts[p]; {
		case c > bestCount:
			best, bestCount, tied = p, c, false
		case c == bestCount && p != best:
			tied = true
		}
	}
	if tied {
		return "", &AmbiguousVoteError{Predictions: append([]string(nil), predictions...)}
	}
	return best, nil
}
