// Package client calls a running prediction server.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"symptomcheck/predictor"
)

var ErrAmbiguous = errors.New("models disagree")

// APIError is a non-2xx answer from the server. For a 422 the individual
// model predictions are filled in.
type APIError struct {
	Status       int    `json:"-"`
	Detail       string `json:"detail"`
	RandomForest string `json:"rf_model_prediction,omitempty"`
	NaiveBayes   string `json:"naive_bayes_prediction,omitempty"`
	SVM          string `json:"svm_model_prediction,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Detail)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnprocessableEntity {
		return ErrAmbiguous
	}
	return nil
}

type Health struct {
	Status   string    `json:"status"`
	Symptoms int       `json:"symptoms"`
	Classes  int       `json:"classes"`
	LoadedAt time.Time `json:"loaded_at"`
}

type Client struct {
	http *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) Symptoms(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.do(ctx, http.MethodGet, "/symptoms", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Predict sends a comma-separated symptom list.
func (c *Client) Predict(ctx context.Context, symptoms string) (*predictor.Result, error) {
	var r predictor.Result
	body := map[string]string{"symptoms": symptoms}
	if err := c.do(ctx, http.MethodPost, "/predict", body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	apiErr := &APIError{}
	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString()).
		SetResult(result).
		SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		if apiErr.Detail == "" {
			apiErr.Detail = http.StatusText(resp.StatusCode())
		}
		return apiErr
	}
	return nil
}
