// Package artifactstest writes a small, hand-fitted artifact set for tests.
//
// Symptoms: itching, skin_rash, high_fever, cough, continuous_sneezing.
// Labels: Allergy, Common Cold, Fungal infection. The three models agree or
// disagree as follows:
//
//	itching,skin_rash    rf=Fungal infection nb=Fungal infection svm=Allergy
//	high_fever,cough     all Common Cold
//	continuous_sneezing  rf=Common Cold nb=Allergy svm=Fungal infection
package artifactstest

import (
	"os"
	"path/filepath"
	"testing"

	"symptomcheck/artifacts"
)

const (
	Allergy    = "Allergy"
	CommonCold = "Common Cold"
	Fungal     = "Fungal infection"
)

var Symptoms = []string{"itching", "skin_rash", "high_fever", "cough", "continuous_sneezing"}

const dataDict = `{
  "symptom_index": {"itching": 0, "skin_rash": 1, "high_fever": 2, "cough": 3, "continuous_sneezing": 4},
  "predictions_classes": ["Allergy", "Common Cold", "Fungal infection"]
}`

const encoder = `{"classes": ["Allergy", "Common Cold", "Fungal infection"]}`

const randomForest = `{
  "n_features": 5,
  "classes": [0, 1, 2],
  "trees": [[
    {"feature_idx": 0, "threshold": 0.5, "left_child": 1, "right_child": 2},
    {"feature_idx": 2, "threshold": 0.5, "left_child": 3, "right_child": 4},
    {"feature_idx": -1, "left_child": -1, "right_child": -1, "is_leaf": true, "value": [0, 0, 12]},
    {"feature_idx": 4, "threshold": 0.5, "left_child": 5, "right_child": 6},
    {"feature_idx": -1, "left_child": -1, "right_child": -1, "is_leaf": true, "value": [1, 9, 0]},
    {"feature_idx": -1, "left_child": -1, "right_child": -1, "is_leaf": true, "value": [8, 1, 1]},
    {"feature_idx": -1, "left_child": -1, "right_child": -1, "is_leaf": true, "class_label": 1}
  ]]
}`

const naiveBayes = `{
  "n_features": 5,
  "kind": "bernoulli",
  "class_log_prior": [-1.0986122886681098, -1.0986122886681098, -1.0986122886681098],
  "feature_log_prob": [
    [-2.302585092994046, -0.5108256237659907, -2.302585092994046, -2.302585092994046, -0.10536051565782628],
    [-2.302585092994046, -2.302585092994046, -0.10536051565782628, -0.10536051565782628, -2.302585092994046],
    [-0.10536051565782628, -0.10536051565782628, -2.302585092994046, -2.302585092994046, -2.302585092994046]
  ]
}`

const svm = `{
  "n_features": 5,
  "kernel": "linear",
  "support_vectors": [[0, 1, 0, 0, 0], [0, 0, 1, 0, 0], [1, 0, 0, 0, 0]],
  "n_support": [1, 1, 1],
  "dual_coef": [[1, -1, -0.5], [1, 1, -1]],
  "intercept": [0, 0, 0]
}`

// Write stores the fixture set in dir and returns a config pointing at it.
func Write(tb testing.TB, dir string) artifacts.Config {
	tb.Helper()
	cfg := artifacts.DefaultConfig()
	cfg.Dir = dir
	files := map[string]string{
		cfg.DataDict:     dataDict,
		cfg.Encoder:      encoder,
		cfg.RandomForest: randomForest,
		cfg.NaiveBayes:   naiveBayes,
		cfg.SVM:          svm,
	}
	for name, payload := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(payload), 0o600); err != nil {
			tb.Fatalf("write %s: %v", name, err)
		}
	}
	return cfg
}
