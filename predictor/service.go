// Package predictor turns a symptom list into a diagnosis by running the
// random forest, naive Bayes and SVM classifiers and taking a majority vote.
package predictor

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"symptomcheck/artifacts"
	"symptomcheck/ml"
)

type Result struct {
	RandomForest string `json:"rf_model_prediction"`
	NaiveBayes   string `json:"naive_bayes_prediction"`
	SVM          string `json:"svm_model_prediction"`
	Final        string `json:"final_prediction"`
}

// Service answers requests against one immutable artifact bundle. It holds
// no mutable state of its own and is safe for concurrent use.
type Service struct {
	bundle *artifacts.Bundle
	cache  Cache
	logger *zap.Logger
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(bundle *artifacts.Bundle, opts ...Option) *Service {
	s := &Service{bundle: bundle, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Bundle() *artifacts.Bundle { return s.bundle }

// Symptoms lists the known symptom names.
func (s *Service) Symptoms() []string { return s.bundle.Index.Names() }

// Predict encodes input, runs the three classifiers and votes. An unknown
// symptom fails the whole request before any classifier runs.
func (s *Service) Predict(ctx context.Context, input string) (*Result, error) {
	vector, err := s.bundle.Index.Encode(input)
	if err != nil {
		return nil, err
	}

	// keys are scoped to the artifact contents: replicas serving the same
	// files share entries, a reload with new files never sees old ones
	key := s.bundle.Version + ":" + vector.Key()
	if s.cache != nil {
		if r, ok, err := s.cache.Get(ctx, key); err != nil {
			s.logger.Warn("prediction cache get failed", zap.String("cache", s.cache.Name()), zap.Error(err))
		} else if ok {
			return r, nil
		}
	}

	classifiers := []ml.Classifier{s.bundle.RandomForest, s.bundle.NaiveBayes, s.bundle.SVM}
	labels := make([]string, len(classifiers))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, c := range classifiers {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			class, err := c.Predict(vector)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Name(), err)
			}
			label, err := s.bundle.Classes.Label(class)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Name(), err)
			}
			labels[i] = label
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	final, err := Vote(labels...)
	if err != nil {
		s.logger.Info("classifiers disagree", zap.Strings("predictions", labels), zap.Ints("symptoms", vector.Ones()))
		return nil, err
	}
	result := &Result{
		RandomForest: labels[0],
		NaiveBayes:   labels[1],
		SVM:          labels[2],
		Final:        final,
	}

	if s.cache != nil {
		if err := s.cache.Add(ctx, key, result); err != nil {
			s.logger.Warn("prediction cache add failed", zap.String("cache", s.cache.Name()), zap.Error(err))
		}
	}
	return result, nil
}
