package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"symptomcheck/db"
	"symptomcheck/monitoring"
	"symptomcheck/predictor"
	"symptomcheck/symptoms"
)

// API serves the prediction endpoints. The active predictor is swapped as
// a whole when artifacts are reloaded; each one is immutable.
type API struct {
	service atomic.Pointer[predictor.Service]
	store   *db.Store
	hub     *monitoring.WebSocketHub
	metrics *monitoring.MetricsCollector
	logger  *zap.Logger
}

type APIOption func(*API)

func WithStore(store *db.Store) APIOption {
	return func(a *API) { a.store = store }
}

func WithHub(hub *monitoring.WebSocketHub) APIOption {
	return func(a *API) { a.hub = hub }
}

func WithMetrics(metrics *monitoring.MetricsCollector) APIOption {
	return func(a *API) { a.metrics = metrics }
}

func WithLogger(logger *zap.Logger) APIOption {
	return func(a *API) { a.logger = logger }
}

func NewAPI(svc *predictor.Service, opts ...APIOption) *API {
	a := &API{logger: zap.NewNop(), metrics: monitoring.NewMetricsCollector()}
	for _, opt := range opts {
		opt(a)
	}
	a.service.Store(svc)
	return a
}

// SetService replaces the predictor used by subsequent requests.
func (a *API) SetService(svc *predictor.Service) {
	a.service.Store(svc)
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("GET /symptoms", a.handleSymptoms)
	mux.HandleFunc("POST /predict", a.handlePredict)
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /predictions", a.handlePredictions)
	mux.HandleFunc("GET /metrics", a.handleMetrics)
	if a.hub != nil {
		mux.HandleFunc("GET /ws/predictions", a.hub.HandleWebSocket)
	}
}

type predictRequest struct {
	Symptoms *string `json:"symptoms"`
}

type ambiguousResponse struct {
	Detail       string `json:"detail"`
	RandomForest string `json:"rf_model_prediction"`
	NaiveBayes   string `json:"naive_bayes_prediction"`
	SVM          string `json:"svm_model_prediction"`
}

func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "Disease Prediction API is running!"})
}

func (a *API) handleSymptoms(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.service.Load().Symptoms())
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	bundle := a.service.Load().Bundle()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"symptoms":  bundle.Index.Len(),
		"classes":   bundle.Classes.Len(),
		"loaded_at": bundle.LoadedAt,
	})
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.countOutcome("invalid")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Symptoms == nil {
		a.countOutcome("invalid")
		respondError(w, http.StatusBadRequest, "field 'symptoms' is required")
		return
	}

	result, err := a.service.Load().Predict(r.Context(), *req.Symptoms)
	a.metrics.Observe("prediction_duration_seconds", "Time spent answering /predict", time.Since(start).Seconds(), nil)

	var unrecognized *symptoms.UnrecognizedSymptomError
	var ambiguous *predictor.AmbiguousVoteError
	switch {
	case err == nil:
	case errors.As(err, &unrecognized):
		a.countOutcome("unrecognized")
		respondError(w, http.StatusBadRequest, unrecognized.Error())
		return
	case errors.As(err, &ambiguous):
		a.countOutcome("ambiguous")
		resp := ambiguousResponse{Detail: "Models disagree; no majority prediction."}
		if len(ambiguous.Predictions) == 3 {
			resp.RandomForest = ambiguous.Predictions[0]
			resp.NaiveBayes = ambiguous.Predictions[1]
			resp.SVM = ambiguous.Predictions[2]
		}
		respondJSON(w, http.StatusUnprocessableEntity, resp)
		return
	default:
		a.countOutcome("error")
		a.logger.Error("prediction failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	a.countOutcome("ok")
	a.metrics.IncrCounter("diagnoses_total", "Final predictions by label", map[string]string{"label": result.Final})
	a.record(r, *req.Symptoms, result)
	respondJSON(w, http.StatusOK, result)
}

// record stores and broadcasts a served prediction. Failures here never
// change the response.
func (a *API) record(r *http.Request, input string, result *predictor.Result) {
	if a.store != nil {
		_, err := a.store.SavePrediction(r.Context(), db.PredictionRecord{
			Symptoms:     input,
			RandomForest: result.RandomForest,
			NaiveBayes:   result.NaiveBayes,
			SVM:          result.SVM,
			Final:        result.Final,
		})
		if err != nil {
			a.logger.Warn("saving prediction failed", zap.Error(err))
		}
	}
	if a.hub != nil {
		if err := a.hub.Publish(monitoring.PredictionEvent, result); err != nil {
			a.logger.Warn("publishing prediction failed", zap.Error(err))
		}
	}
}

func (a *API) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		respondError(w, http.StatusNotFound, "prediction history is disabled")
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l <= 0 || l > 1000 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = l
	}
	records, err := a.store.RecentPredictions(r.Context(), limit)
	if err != nil {
		a.logger.Error("loading prediction history failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "loading prediction history failed")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if a.hub != nil {
		a.metrics.SetGauge("feed_clients", "Connected prediction feed clients", float64(a.hub.ClientCount()), nil)
	}
	a.metrics.SetGauge("uptime_seconds", "Seconds since start", a.metrics.GetUptime().Seconds(), nil)
	if r.URL.Query().Get("format") == "json" {
		respondJSON(w, http.StatusOK, a.metrics.Snapshot())
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.Write([]byte(a.metrics.ExportPrometheus()))
}

func (a *API) countOutcome(outcome string) {
	a.metrics.IncrCounter("predictions_total", "Prediction requests by outcome", map[string]string{"outcome": outcome})
}

// respondJSON 统一JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}
