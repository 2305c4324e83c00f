package ml

import (
	"fmt"
)

const (
	KindRandomForest = "random_forest"
	KindDecisionTree = "decision_tree"
	KindNaiveBayes   = "naive_bayes"
	KindSVM          = "svm"
)

func LoadModel(modelType, path string) (Model, error) {
	var model interface {
		Model
		Load(path string) error
	}
	switch modelType {
	case KindRandomForest:
		model = &RandomForest{}
	case KindDecisionTree:
		model = &DecisionTree{}
	case KindNaiveBayes:
		model = &NaiveBayes{}
	case KindSVM:
		model = &SVM{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, modelType)
	}
	if err := model.Load(path); err != nil {
		return nil, err
	}
	return model, nil
}
