package symptoms

import (
	"errors"
	"fmt"
)

var (
	ErrUnrecognizedSymptom = errors.New("symptom not recognized")
	ErrUnknownClass        = errors.New("unknown prediction class")
	ErrInvalidIndex        = errors.New("invalid symptom index")
)

// UnrecognizedSymptomError names the first token of a request that matched
// no known symptom.
type UnrecognizedSymptomError struct {
	Symptom string
}

func (e *UnrecognizedSymptomError) Error() string {
	return fmt.Sprintf("Symptom '%s' not recognized. Check available symptoms.", e.Symptom)
}

func (e *UnrecognizedSymptomError) Unwrap() error { return ErrUnrecognizedSymptom }
