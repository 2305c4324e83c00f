package artifacts_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"symptomcheck/artifacts"
	"symptomcheck/artifacts/artifactstest"
)

func TestLoad(t *testing.T) {
	cfg := artifactstest.Write(t, t.TempDir())

	bundle, err := artifacts.Load(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle.Index.Len() != len(artifactstest.Symptoms) {
		t.Fatalf("expected %d symptoms, got %d", len(artifactstest.Symptoms), bundle.Index.Len())
	}
	if bundle.Classes.Len() != 3 {
		t.Fatalf("expected 3 classes, got %d", bundle.Classes.Len())
	}
	if bundle.RandomForest == nil || bundle.NaiveBayes == nil || bundle.SVM == nil {
		t.Fatal("expected all three classifiers")
	}
}

func TestLoadReportsEveryMissingArtifact(t *testing.T) {
	dir := t.TempDir()
	cfg := artifactstest.Write(t, dir)
	for _, name := range []string{cfg.SVM, cfg.Encoder} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			t.Fatal(err)
		}
	}

	_, err := artifacts.Load(cfg)
	if !errors.Is(err, artifacts.ErrArtifactMissing) {
		t.Fatalf("expected ErrArtifactMissing, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist error, got %v", err)
	}
	for _, want := range []string{"svm model", "encoder"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestLoadRejectsFeatureCountMismatch(t *testing.T) {
	dir := t.TempDir()
	cfg := artifactstest.Write(t, dir)
	dict := `{"symptom_index": {"itching": 0, "skin_rash": 1}, "predictions_classes": ["Allergy", "Common Cold", "Fungal infection"]}`
	if err := os.WriteFile(filepath.Join(dir, cfg.DataDict), []byte(dict), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := artifacts.Load(cfg); !errors.Is(err, artifacts.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestLoadRejectsEncoderMismatch(t *testing.T) {
	dir := t.TempDir()
	cfg := artifactstest.Write(t, dir)
	if err := os.WriteFile(filepath.Join(dir, cfg.Encoder), []byte(`{"classes": ["A", "B", "C"]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := artifacts.Load(cfg); !errors.Is(err, artifacts.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestLoadFallsBackToEncoderClasses(t *testing.T) {
	dir := t.TempDir()
	cfg := artifactstest.Write(t, dir)
	dict := `{"symptom_index": {"itching": 0, "skin_rash": 1, "high_fever": 2, "cough": 3, "continuous_sneezing": 4}}`
	if err := os.WriteFile(filepath.Join(dir, cfg.DataDict), []byte(dict), 0o600); err != nil {
		t.Fatal(err)
	}
	bundle, err := artifacts.Load(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label, _ := bundle.Classes.Label(2); label != artifactstest.Fungal {
		t.Fatalf("expected %q, got %q", artifactstest.Fungal, label)
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	cfg := artifactstest.Write(t, dir)
	cfg.WatchDebounce = 50 * time.Millisecond

	reloaded := make(chan *artifacts.Bundle, 1)
	w := artifacts.NewWatcher(cfg, zap.NewNop(), func(b *artifacts.Bundle) {
		select {
		case reloaded <- b:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	artifactstest.Write(t, dir)

	select {
	case b := <-reloaded:
		if b.Index.Len() != len(artifactstest.Symptoms) {
			t.Fatalf("unexpected reloaded bundle: %d symptoms", b.Index.Len())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watcher returned %v", err)
	}
}

func TestLoadVersionTracksContent(t *testing.T) {
	cfgA := artifactstest.Write(t, t.TempDir())
	cfgB := artifactstest.Write(t, t.TempDir())

	a, err := artifacts.Load(cfgA)
	if err != nil {
		t.Fatal(err)
	}
	b, err := artifacts.Load(cfgB)
	if err != nil {
		t.Fatal(err)
	}
	if a.Version == "" || a.Version != b.Version {
		t.Fatalf("same files in two places should share a version: %q vs %q", a.Version, b.Version)
	}

	path := filepath.Join(cfgB.Dir, cfgB.Encoder)
	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := artifacts.Load(cfgB)
	if err != nil {
		t.Fatal(err)
	}
	if c.Version == a.Version {
		t.Fatal("changed artifact kept the old version")
	}
}
