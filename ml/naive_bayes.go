package ml

import (
	"errors"
	"fmt"
	"math"
)

const (
	NaiveBayesGaussian  = "gaussian"
	NaiveBayesBernoulli = "bernoulli"
)

// NaiveBayes scores each class by its joint log likelihood.
//
// Gaussian models carry class priors with per-class feature means (Theta)
// and variances (Var, smoothing already applied). Bernoulli models carry
// log priors and per-class log probabilities of a feature being present.
type NaiveBayes struct {
	schema
	Kind           string      `json:"kind"`
	ClassPrior     []float64   `json:"class_prior,omitempty"`
	Theta          [][]float64 `json:"theta,omitempty"`
	Var            [][]float64 `json:"var,omitempty"`
	ClassLogPrior  []float64   `json:"class_log_prior,omitempty"`
	FeatureLogProb [][]float64 `json:"feature_log_prob,omitempty"`
}

func (nb *NaiveBayes) Name() string { return KindNaiveBayes }

func (nb *NaiveBayes) ClassIndices() []int { return nb.classIndices(nb.numClasses()) }

func (nb *NaiveBayes) numClasses() int {
	if nb.Kind == NaiveBayesBernoulli {
		return len(nb.ClassLogPrior)
	}
	return len(nb.ClassPrior)
}

func (nb *NaiveBayes) Predict(features []float64) (int, error) {
	if nb.numClasses() == 0 {
		return 0, errors.New("model not loaded")
	}
	if err := nb.checkFeatures(features); err != nil {
		return 0, err
	}
	var jll []float64
	if nb.Kind == NaiveBayesBernoulli {
		jll = nb.bernoulliLogLikelihood(features)
	} else {
		jll = nb.gaussianLogLikelihood(features)
	}
	return nb.classAt(argmax(jll)), nil
}

func (nb *NaiveBayes) gaussianLogLikelihood(x []float64) []float64 {
	jll := make([]float64, len(nb.ClassPrior))
	for c := range jll {
		ll := math.Log(nb.ClassPrior[c])
		for f, v := range x {
			variance := nb.Var[c][f]
			diff := v - nb.Theta[c][f]
			ll -= 0.5 * math.Log(2*math.Pi*variance)
			ll -= 0.5 * diff * diff / variance
		}
		jll[c] = ll
	}
	return jll
}

// bernoulliLogLikelihood treats any positive feature as present.
func (nb *NaiveBayes) bernoulliLogLikelihood(x []float64) []float64 {
	jll := make([]float64, len(nb.ClassLogPrior))
	for c := range jll {
		ll := nb.ClassLogPrior[c]
		for f, v := range x {
			logP := nb.FeatureLogProb[c][f]
			if v > 0 {
				ll += logP
			} else {
				ll += math.Log1p(-math.Exp(logP))
			}
		}
		jll[c] = ll
	}
	return jll
}

func (nb *NaiveBayes) Save(path string) error {
	if nb.numClasses() == 0 {
		return errors.New("model not loaded")
	}
	return writeJSON(path, nb)
}

func (nb *NaiveBayes) Load(path string) error {
	var loaded NaiveBayes
	if err := readJSON(path, &loaded); err != nil {
		return err
	}
	if loaded.Kind == "" {
		loaded.Kind = NaiveBayesGaussian
	}
	if err := loaded.validateParams(); err != nil {
		return err
	}
	*nb = loaded
	return nil
}

func (nb *NaiveBayes) validateParams() error {
	n := nb.numClasses()
	if err := nb.validate(n); err != nil {
		return err
	}
	switch nb.Kind {
	case NaiveBayesGaussian:
		if err := checkMatrix("theta", nb.Theta, n, nb.NFeatures); err != nil {
			return err
		}
		if err := checkMatrix("var", nb.Var, n, nb.NFeatures); err != nil {
			return err
		}
		for c, p := range nb.ClassPrior {
			if p <= 0 {
				return fmt.Errorf("%w: class %d prior must be positive", ErrInvalidModel, c)
			}
			for f, v := range nb.Var[c] {
				if v <= 0 {
					return fmt.Errorf("%w: var[%d][%d] must be positive", ErrInvalidModel, c, f)
				}
			}
		}
	case NaiveBayesBernoulli:
		if err := checkMatrix("feature_log_prob", nb.FeatureLogProb, n, nb.NFeatures); err != nil {
			return err
		}
		for c, row := range nb.FeatureLogProb {
			for f, v := range row {
				if v >= 0 {
					return fmt.Errorf("%w: feature_log_prob[%d][%d] must be negative", ErrInvalidModel, c, f)
				}
			}
		}
	default:
		return fmt.Errorf("%w: naive bayes kind %q", ErrUnsupportedModel, nb.Kind)
	}
	return nil
}

func checkMatrix(name string, m [][]float64, rows, cols int) error {
	if len(m) != rows {
		return fmt.Errorf("%w: %s has %d rows, want %d", ErrInvalidModel, name, len(m), rows)
	}
	for i, row := range m {
		if len(row) != cols {
			return fmt.Errorf("%w: %s row %d has %d columns, want %d", ErrInvalidModel, name, i, len(row), cols)
		}
	}
	return nil
}
