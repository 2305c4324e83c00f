package predictor

import (
	"context"
	"errors"
	"strings"

	"symptomcheck/symptoms"
)

// Sample is one labelled case from a held-out data set.
type Sample struct {
	Symptoms []string
	Label    string
}

// Report counts how often each classifier and the majority vote match the
// expected label. Ambiguous votes count as misses for the ensemble.
type Report struct {
	Total        int `json:"total"`
	RandomForest int `json:"rf_correct"`
	NaiveBayes   int `json:"naive_bayes_correct"`
	SVM          int `json:"svm_correct"`
	Final        int `json:"final_correct"`
	Ambiguous    int `json:"ambiguous"`
	Rejected     int `json:"rejected"`
}

// Accuracy returns correct/Total, or 0 for an empty report.
func (r Report) Accuracy(correct int) float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(correct) / float64(r.Total)
}

// Evaluate runs every sample through svc. Samples the index rejects are
// counted and skipped; any other failure stops the run.
func Evaluate(ctx context.Context, svc *Service, samples []Sample) (Report, error) {
	var report Report
	for _, sample := range samples {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Total++

		var predictions []string
		result, err := svc.Predict(ctx, strings.Join(sample.Symptoms, ","))
		var ambiguous *AmbiguousVoteError
		switch {
		case err == nil:
			predictions = []string{result.RandomForest, result.NaiveBayes, result.SVM}
			if result.Final == sample.Label {
				report.Final++
			}
		case errors.As(err, &ambiguous):
			predictions = ambiguous.Predictions
			report.Ambiguous++
		case errors.Is(err, symptoms.ErrUnrecognizedSymptom):
			report.Rejected++
			continue
		default:
			return report, err
		}

		for i, counter := range []*int{&report.RandomForest, &report.NaiveBayes, &report.SVM} {
			if i < len(predictions) && predictions[i] == sample.Label {
				*counter++
			}
		}
	}
	return report, nil
}
