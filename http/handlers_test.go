package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"symptomcheck/artifacts"
	"symptomcheck/artifacts/artifactstest"
	"symptomcheck/db"
	"symptomcheck/monitoring"
	"symptomcheck/predictor"
)

func newTestService(t *testing.T) *predictor.Service {
	t.Helper()
	bundle, err := artifacts.Load(artifactstest.Write(t, t.TempDir()))
	if err != nil {
		t.Fatalf("load artifacts: %v", err)
	}
	return predictor.New(bundle)
}

func newTestServer(t *testing.T, opts ...APIOption) *httptest.Server {
	t.Helper()
	api := NewAPI(newTestService(t), opts...)
	srv := httptest.NewServer(NewServer(DefaultServerConfig(), api, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postPredict(t *testing.T, url, body string) (*http.Response, map[string]string) {
	t.Helper()
	resp, err := http.Post(url+"/predict", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func TestRootHandler(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["message"] != "Disease Prediction API is running!" {
		t.Errorf("unexpected message %q", body["message"])
	}

	resp, err = http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path: got %d, want 404", resp.StatusCode)
	}
}

func TestSymptomsHandler(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/symptoms")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var names []string
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil {
		t.Fatal(err)
	}
	if strings.Join(names, ",") != strings.Join(artifactstest.Symptoms, ",") {
		t.Errorf("got %v, want %v", names, artifactstest.Symptoms)
	}
}

func TestPredictHandler(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name:  "majority of two",
			input: "itching,skin_rash",
			want: map[string]string{
				"rf_model_prediction":    artifactstest.Fungal,
				"naive_bayes_prediction": artifactstest.Fungal,
				"svm_model_prediction":   artifactstest.Allergy,
				"final_prediction":       artifactstest.Fungal,
			},
		},
		{
			name:  "unanimous with spaces and case",
			input: " High_Fever , cough ",
			want: map[string]string{
				"rf_model_prediction":    artifactstest.CommonCold,
				"naive_bayes_prediction": artifactstest.CommonCold,
				"svm_model_prediction":   artifactstest.CommonCold,
				"final_prediction":       artifactstest.CommonCold,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{"symptoms": tt.input})
			resp, got := postPredict(t, srv.URL, string(body))
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("got status %d (%v), want 200", resp.StatusCode, got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestPredictHandlerErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{"unknown symptom", `{"symptoms":"itching,headache"}`, http.StatusBadRequest, "Symptom 'headache' not recognized. Check available symptoms."},
		{"empty input", `{"symptoms":""}`, http.StatusBadRequest, "Symptom '' not recognized. Check available symptoms."},
		{"missing field", `{}`, http.StatusBadRequest, "field 'symptoms' is required"},
		{"malformed body", `{"symptoms":`, http.StatusBadRequest, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, got := postPredict(t, srv.URL, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("got status %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if !strings.HasPrefix(got["detail"], tt.wantDetail) {
				t.Errorf("detail = %q, want prefix %q", got["detail"], tt.wantDetail)
			}
			if _, ok := got["final_prediction"]; ok {
				t.Error("error response carries a final prediction")
			}
		})
	}
}

func TestPredictHandlerAmbiguous(t *testing.T) {
	srv := newTestServer(t)

	resp, got := postPredict(t, srv.URL, `{"symptoms":"continuous_sneezing"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("got status %d, want 422", resp.StatusCode)
	}
	if got["rf_model_prediction"] != artifactstest.CommonCold ||
		got["naive_bayes_prediction"] != artifactstest.Allergy ||
		got["svm_model_prediction"] != artifactstest.Fungal {
		t.Errorf("unexpected individual predictions: %v", got)
	}
	if _, ok := got["final_prediction"]; ok {
		t.Error("ambiguous response carries a final prediction")
	}
	if got["detail"] == "" {
		t.Error("missing detail")
	}
}

func TestPredictionsHistory(t *testing.T) {
	store, err := db.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	srv := newTestServer(t, WithStore(store))

	postPredict(t, srv.URL, `{"symptoms":"itching,skin_rash"}`)
	postPredict(t, srv.URL, `{"symptoms":"high_fever,cough"}`)
	postPredict(t, srv.URL, `{"symptoms":"headache"}`)

	resp, err := http.Get(srv.URL + "/predictions?limit=10")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var records []db.PredictionRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Symptoms != "high_fever,cough" || records[0].Final != artifactstest.CommonCold {
		t.Errorf("newest record = %+v", records[0])
	}

	resp, err = http.Get(srv.URL + "/predictions?limit=abc")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit: got %d, want 400", resp.StatusCode)
	}
}

func TestPredictionsHistoryDisabled(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/predictions")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("got %d, want 404", resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	var health struct {
		Status   string `json:"status"`
		Symptoms int    `json:"symptoms"`
		Classes  int    `json:"classes"`
	}
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if health.Status != "ok" || health.Symptoms != 5 || health.Classes != 3 {
		t.Errorf("unexpected health %+v", health)
	}

	postPredict(t, srv.URL, `{"symptoms":"itching"}`)
	postPredict(t, srv.URL, `{"symptoms":"headache"}`)

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)
	for _, want := range []string{
		`predictions_total{outcome="unrecognized"} 1`,
		"prediction_duration_seconds_count",
		"uptime_seconds",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics missing %q:\n%s", want, text)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/predict", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("got status %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow origin = %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("allow credentials = %q", got)
	}
	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), "POST") {
		t.Errorf("allow methods = %q", resp.Header.Get("Access-Control-Allow-Methods"))
	}
}

func TestPredictionFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := monitoring.NewWebSocketHub(zap.NewNop())
	go hub.Run(ctx)
	srv := newTestServer(t, WithHub(hub))

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/predictions", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	postPredict(t, srv.URL, `{"symptoms":"high_fever,cough"}`)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type monitoring.MessageType `json:"type"`
		Data predictor.Result       `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != monitoring.PredictionEvent || msg.Data.Final != artifactstest.CommonCold {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestPredictBodyTooLarge(t *testing.T) {
	config := DefaultServerConfig()
	config.MaxBodyBytes = 32
	srv := httptest.NewServer(NewServer(config, NewAPI(newTestService(t)), zap.NewNop()).Handler())
	defer srv.Close()

	body := `{"symptoms":"` + strings.Repeat("itching,", 20) + `itching"}`
	resp, got := postPredict(t, srv.URL, body)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("got status %d, want 413", resp.StatusCode)
	}
	if !strings.Contains(got["detail"], "32 bytes") {
		t.Errorf("detail = %q", got["detail"])
	}
}
