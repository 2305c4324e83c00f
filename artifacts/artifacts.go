// Package artifacts loads the persisted symptom index, label encoder and
// classifiers produced by the offline training job.
package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"symptomcheck/ml"
	"symptomcheck/symptoms"
)

var (
	ErrArtifactMissing = errors.New("artifact failed to load")
	ErrSchemaMismatch  = errors.New("artifacts disagree")
)

type Config struct {
	Dir           string        `yaml:"dir"`
	RandomForest  string        `yaml:"rf_model"`
	NaiveBayes    string        `yaml:"nb_model"`
	SVM           string        `yaml:"svm_model"`
	Encoder       string        `yaml:"encoder"`
	DataDict      string        `yaml:"data_dict"`
	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

func DefaultConfig() Config {
	return Config{
		Dir:           "models",
		RandomForest:  "rf_model.json",
		NaiveBayes:    "nb_model.json",
		SVM:           "svm_model.json",
		Encoder:       "encoder.json",
		DataDict:      "data_dict.json",
		WatchDebounce: 500 * time.Millisecond,
	}
}

// Path resolves an artifact file name against Dir.
func (c Config) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Dir, name)
}

// Files lists the configured artifact paths.
func (c Config) Files() []string {
	var files []string
	for _, name := range []string{c.RandomForest, c.NaiveBayes, c.SVM, c.Encoder, c.DataDict} {
		if name != "" {
			files = append(files, c.Path(name))
		}
	}
	return files
}

// DataDict is the training job's lookup table file.
type DataDict struct {
	SymptomIndex      *symptoms.Index   `json:"symptom_index"`
	PredictionClasses *symptoms.Classes `json:"predictions_classes,omitempty"`
}

// Bundle is everything the predictor needs. It is never modified after
// Load returns.
type Bundle struct {
	Index        *symptoms.Index
	Classes      *symptoms.Classes
	RandomForest ml.Classifier
	NaiveBayes   ml.Classifier
	SVM          ml.Classifier
	// Version fingerprints the artifact file contents. Two loads of the
	// same files agree on it, wherever they run.
	Version  string
	LoadedAt time.Time
}

// Load reads every artifact and cross-checks them. All load failures are
// reported together, wrapped in ErrArtifactMissing.
func Load(cfg Config) (*Bundle, error) {
	var errs error

	dict, err := loadDataDict(cfg.Path(cfg.DataDict))
	errs = multierr.Append(errs, err)

	var encoder *symptoms.Encoder
	if cfg.Encoder != "" {
		encoder, err = loadEncoder(cfg.Path(cfg.Encoder))
		errs = multierr.Append(errs, err)
	}

	models := make(map[string]ml.Model, 3)
	for _, m := range []struct{ kind, name string }{
		{ml.KindRandomForest, cfg.RandomForest},
		{ml.KindNaiveBayes, cfg.NaiveBayes},
		{ml.KindSVM, cfg.SVM},
	} {
		model, err := ml.LoadModel(m.kind, cfg.Path(m.name))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s model: %w", m.kind, err))
			continue
		}
		models[m.kind] = model
	}

	if errs != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactMissing, errs)
	}

	classes, err := resolveClasses(dict, encoder)
	if err != nil {
		return nil, err
	}
	for kind, model := range models {
		if err := checkSchema(kind, model, dict.SymptomIndex, classes); err != nil {
			return nil, err
		}
	}
	version, err := fingerprint(cfg.Files())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactMissing, err)
	}

	return &Bundle{
		Index:        dict.SymptomIndex,
		Classes:      classes,
		RandomForest: models[ml.KindRandomForest],
		NaiveBayes:   models[ml.KindNaiveBayes],
		SVM:          models[ml.KindSVM],
		Version:      version,
		LoadedAt:     time.Now(),
	}, nil
}

// fingerprint hashes the files in order, each prefixed by its length so
// content cannot shift between files.
func fingerprint(files []string) (string, error) {
	h := sha256.New()
	for _, file := range files {
		payload, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%d:", len(payload))
		h.Write(payload)
	}
	return hex.EncodeToString(h.Sum(nil)[:12]), nil
}

func loadDataDict(path string) (*DataDict, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("data dict: %w", err)
	}
	var dict DataDict
	if err := json.Unmarshal(payload, &dict); err != nil {
		return nil, fmt.Errorf("data dict %s: %w", path, err)
	}
	if dict.SymptomIndex == nil || dict.SymptomIndex.Len() == 0 {
		return nil, fmt.Errorf("data dict %s: symptom_index is empty", path)
	}
	return &dict, nil
}

func loadEncoder(path string) (*symptoms.Encoder, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}
	var encoder symptoms.Encoder
	if err := json.Unmarshal(payload, &encoder); err != nil {
		return nil, fmt.Errorf("encoder %s: %w", path, err)
	}
	return &encoder, nil
}

func resolveClasses(dict *DataDict, encoder *symptoms.Encoder) (*symptoms.Classes, error) {
	classes := dict.PredictionClasses
	if encoder != nil && len(encoder.Classes) > 0 {
		fromEncoder := symptoms.NewClasses(encoder.Classes)
		if classes == nil || classes.Len() == 0 {
			return fromEncoder, nil
		}
		if !classes.Equal(fromEncoder) {
			return nil, fmt.Errorf("%w: predictions_classes and encoder classes differ", ErrSchemaMismatch)
		}
	}
	if classes == nil || classes.Len() == 0 {
		return nil, fmt.Errorf("%w: no prediction classes in data dict or encoder", ErrArtifactMissing)
	}
	return classes, nil
}

func checkSchema(kind string, model ml.Model, index *symptoms.Index, classes *symptoms.Classes) error {
	if model.NumFeatures() != index.Len() {
		return fmt.Errorf("%w: %s model expects %d features, symptom index has %d",
			ErrSchemaMismatch, kind, model.NumFeatures(), index.Len())
	}
	for _, c := range model.ClassIndices() {
		if c < 0 || c >= classes.Len() {
			return fmt.Errorf("%w: %s model emits class %d, only %d labels known",
				ErrSchemaMismatch, kind, c, classes.Len())
		}
	}
	return nil
}
