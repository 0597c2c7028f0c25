package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rushteam/churnkit/core"
)

func TestRPCModel_Predict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Instances [][]float64 `json:"instances"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Instances) != 1 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"predictions": []float64{body.Instances[0][0] / 10}})
	}))
	defer srv.Close()

	m := NewRPCModel("churn", srv.URL, 0)
	out, err := m.Predict(context.Background(), []float64{8, 1})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if len(out) != 1 || out[0] != 0.8 {
		t.Errorf("Predict() = %v, want [0.8]", out)
	}
}

func TestRPCModel_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewRPCModel("churn", srv.URL, 0).Predict(context.Background(), []float64{1})
	if !core.IsUpstreamFailure(err) {
		t.Errorf("Predict() error = %v, want UPSTREAM_FAILURE", err)
	}
}
