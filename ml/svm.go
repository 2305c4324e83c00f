package ml

import (
	"errors"
	"fmt"
	"math"
)

const (
	KernelLinear  = "linear"
	KernelRBF     = "rbf"
	KernelPoly    = "poly"
	KernelSigmoid = "sigmoid"
)

// SVM is a one-vs-one support vector classifier in libsvm layout: support
// vectors grouped by class (NSupport per class), DualCoef of shape
// (classes-1, vectors) and one intercept per class pair, ordered
// (0,1), (0,2), ..., (1,2), ...
//
// The decision value of pair (i, j) is sum(coef*K(sv, x)) + intercept and a
// positive value votes for i. Two-class scikit-learn models publish DualCoef
// and Intercept with the opposite sign; exporters must negate them.
type SVM struct {
	schema
	Kernel         string      `json:"kernel"`
	Gamma          float64     `json:"gamma"`
	Coef0          float64     `json:"coef0"`
	Degree         int         `json:"degree"`
	SupportVectors [][]float64 `json:"support_vectors"`
	NSupport       []int       `json:"n_support"`
	DualCoef       [][]float64 `json:"dual_coef"`
	Intercept      []float64   `json:"intercept"`

	starts []int
}

func (s *SVM) Name() string { return KindSVM }

func (s *SVM) ClassIndices() []int { return s.classIndices(len(s.NSupport)) }

func (s *SVM) Predict(features []float64) (int, error) {
	if len(s.NSupport) == 0 {
		return 0, errors.New("model not loaded")
	}
	if err := s.checkFeatures(features); err != nil {
		return 0, err
	}
	kvalues := make([]float64, len(s.SupportVectors))
	for i, sv := range s.SupportVectors {
		kvalues[i] = s.kernel(sv, features)
	}

	nClasses := len(s.NSupport)
	votes := make([]float64, nClasses)
	p := 0
	for i := 0; i < nClasses; i++ {
		for j := i + 1; j < nClasses; j++ {
			sum := s.Intercept[p]
			si, sj := s.starts[i], s.starts[j]
			for k := 0; k < s.NSupport[i]; k++ {
				sum += s.DualCoef[j-1][si+k] * kvalues[si+k]
			}
			for k := 0; k < s.NSupport[j]; k++ {
				sum += s.DualCoef[i][sj+k] * kvalues[sj+k]
			}
			if sum > 0 {
				votes[i]++
			} else {
				votes[j]++
			}
			p++
		}
	}
	return s.classAt(argmax(votes)), nil
}

func (s *SVM) kernel(a, b []float64) float64 {
	switch s.Kernel {
	case KernelRBF:
		d := 0.0
		for i := range a {
			diff := a[i] - b[i]
			d += diff * diff
		}
		return math.Exp(-s.Gamma * d)
	case KernelPoly:
		return math.Pow(s.Gamma*dot(a, b)+s.Coef0, float64(s.Degree))
	case KernelSigmoid:
		return math.Tanh(s.Gamma*dot(a, b) + s.Coef0)
	default:
		return dot(a, b)
	}
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func (s *SVM) Save(path string) error {
	if len(s.NSupport) == 0 {
		return errors.New("model not loaded")
	}
	return writeJSON(path, s)
}

func (s *SVM) Load(path string) error {
	var loaded SVM
	if err := readJSON(path, &loaded); err != nil {
		return err
	}
	if loaded.Kernel == "" {
		loaded.Kernel = KernelRBF
	}
	if loaded.Kernel == KernelPoly && loaded.Degree == 0 {
		loaded.Degree = 3
	}
	if err := loaded.validateParams(); err != nil {
		return err
	}
	*s = loaded
	return nil
}

func (s *SVM) validateParams() error {
	switch s.Kernel {
	case KernelLinear, KernelRBF, KernelPoly, KernelSigmoid:
	default:
		return fmt.Errorf("%w: kernel %q", ErrUnsupportedModel, s.Kernel)
	}
	n := len(s.NSupport)
	if err := s.validate(n); err != nil {
		return err
	}
	if n < 2 {
		return fmt.Errorf("%w: svm needs at least two classes", ErrInvalidModel)
	}
	s.starts = make([]int, n)
	total := 0
	for i, count := range s.NSupport {
		if count < 0 {
			return fmt.Errorf("%w: negative support count for class %d", ErrInvalidModel, i)
		}
		s.starts[i] = total
		total += count
	}
	if err := checkMatrix("support_vectors", s.SupportVectors, total, s.NFeatures); err != nil {
		return err
	}
	if err := checkMatrix("dual_coef", s.DualCoef, n-1, total); err != nil {
		return err
	}
	if want := n * (n - 1) / 2; len(s.Intercept) != want {
		return fmt.Errorf("%w: %d intercepts, want %d", ErrInvalidModel, len(s.Intercept), want)
	}
	return nil
}
