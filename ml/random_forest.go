package ml

import (
	"errors"
	"fmt"
)

// RandomForest averages the leaf class distributions of its trees and picks
// the most probable class.
type RandomForest struct {
	schema
	Trees [][]TreeNode `json:"trees"`

	nClasses int
}

func (rf *RandomForest) Name() string { return KindRandomForest }

func (rf *RandomForest) ClassIndices() []int { return rf.classIndices(rf.nClasses) }

func (rf *RandomForest) Predict(features []float64) (int, error) {
	if len(rf.Trees) == 0 {
		return 0, errors.New("model not loaded")
	}
	if err := rf.checkFeatures(features); err != nil {
		return 0, err
	}
	proba := make([]float64, rf.nClasses)
	for i, tree := range rf.Trees {
		dist, err := distribution(tree, features, rf.nClasses)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		for c, p := range dist {
			proba[c] += p
		}
	}
	return rf.classAt(argmax(proba)), nil
}

func (rf *RandomForest) Save(path string) error {
	if len(rf.Trees) == 0 {
		return errors.New("model not loaded")
	}
	return writeJSON(path, rf)
}

func (rf *RandomForest) Load(path string) error {
	var loaded RandomForest
	if err := readJSON(path, &loaded); err != nil {
		return err
	}
	if len(loaded.Trees) == 0 {
		return fmt.Errorf("%w: forest has no trees", ErrInvalidModel)
	}
	n := len(loaded.Classes)
	if n == 0 {
		for _, tree := range loaded.Trees {
			if c := inferClasses(tree); c > n {
				n = c
			}
		}
	}
	if err := loaded.validate(n); err != nil {
		return err
	}
	for i, tree := range loaded.Trees {
		if err := validateTree(tree, n, loaded.NFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	loaded.nClasses = n
	*rf = loaded
	return nil
}
