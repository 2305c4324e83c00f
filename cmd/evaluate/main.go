package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"symptomcheck/artifacts"
	"symptomcheck/predictor"
	"symptomcheck/symptoms"
)

func main() {
	dir := flag.String("artifacts", "./models", "artifact directory")
	dataPath := flag.String("data", "", "labelled CSV: one 0/1 column per symptom plus a label column")
	labelColumn := flag.String("label_column", "prognosis", "name of the label column")
	flag.Parse()

	if *dataPath == "" {
		log.Fatal("data is required")
	}

	cfg := artifacts.DefaultConfig()
	cfg.Dir = *dir
	bundle, err := artifacts.Load(cfg)
	if err != nil {
		log.Fatalf("failed to load artifacts: %v", err)
	}

	f, err := os.Open(*dataPath)
	if err != nil {
		log.Fatalf("failed to open data: %v", err)
	}
	defer f.Close()

	samples, err := readSamples(f, *labelColumn)
	if err != nil {
		log.Fatalf("failed to read samples: %v", err)
	}

	report, err := predictor.Evaluate(context.Background(), predictor.New(bundle), samples)
	if err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}

	fmt.Printf("samples=%d ambiguous=%d rejected=%d\n", report.Total, report.Ambiguous, report.Rejected)
	fmt.Printf("rf=%.4f naive_bayes=%.4f svm=%.4f final=%.4f\n",
		report.Accuracy(report.RandomForest),
		report.Accuracy(report.NaiveBayes),
		report.Accuracy(report.SVM),
		report.Accuracy(report.Final))
}

// readSamples parses the one-hot training layout: a header naming each
// symptom column and the label column, then one row per case. Header names
// go through the same normalisation as request tokens.
func readSamples(r io.Reader, labelColumn string) ([]predictor.Sample, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	labelIdx := -1
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = symptoms.Normalize(h)
		if strings.EqualFold(strings.TrimSpace(h), labelColumn) {
			labelIdx = i
		}
	}
	if labelIdx < 0 {
		return nil, fmt.Errorf("label column %q not found", labelColumn)
	}

	var samples []predictor.Sample
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		sample := predictor.Sample{Label: strings.TrimSpace(row[labelIdx])}
		for i, cell := range row {
			if i == labelIdx || cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, header[i], err)
			}
			if v > 0 {
				sample.Symptoms = append(sample.Symptoms, names[i])
			}
		}
		samples = append(samples, sample)
	}
	return samples, nil
}
