package validation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"adei_backend/core"
)

// modelCatalog returns a handler that serves an OpenAI-style model list.
func modelCatalog(ids ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		type model struct {
			ID     string `json:"id"`
			Object string `json:"object"`
		}
		models := make([]model, 0, len(ids))
		for _, id := range ids {
			models = append(models, model{ID: id, Object: "model"})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"data":   models,
		})
	}
}

func checkerConfig(t *testing.T, baseURL string) *core.Config {
	t.Helper()
	cfg := core.DefaultConfig()
	cfg.BaseLLMURL = baseURL
	cfg.AITimeoutSeconds = 5
	return cfg
}

func TestLLMChecker_CheckEndpoint_Reachable(t *testing.T) {
	srv := httptest.NewServer(modelCatalog("gpt-4o-mini", "gpt-4o"))
	defer srv.Close()

	cfg := checkerConfig(t, srv.URL+"/v1")
	result := NewLLMChecker(cfg).CheckEndpoint(context.Background())

	if !result.Reachable {
		t.Fatalf("expected reachable, got message: %s, error: %v", result.Message, result.Error)
	}
	if result.Warning {
		t.Errorf("expected no warning when the configured model is advertised, got: %s", result.Message)
	}
	if result.ModelCount != 2 {
		t.Errorf("ModelCount = %d, want 2", result.ModelCount)
	}
	if result.Latency <= 0 {
		t.Error("expected positive latency")
	}
}

func TestLLMChecker_CheckEndpoint_ModelNotAdvertised(t *testing.T) {
	srv := httptest.NewServer(modelCatalog("llama-3.1-8b-instruct"))
	defer srv.Close()

	cfg := checkerConfig(t, srv.URL+"/v1")
	result := NewLLMChecker(cfg).CheckEndpoint(context.Background())

	if !result.Reachable {
		t.Fatalf("expected reachable, got error: %v", result.Error)
	}
	if !result.Warning {
		t.Error("expected warning when the configured model is not advertised")
	}
	if !strings.Contains(result.Message, cfg.Model) {
		t.Errorf("expected message to name the configured model, got: %s", result.Message)
	}
}

func TestLLMChecker_CheckEndpoint_EmptyCatalog(t *testing.T) {
	srv := httptest.NewServer(modelCatalog())
	defer srv.Close()

	cfg := checkerConfig(t, srv.URL+"/v1")
	result := NewLLMChecker(cfg).CheckEndpoint(context.Background())

	if !result.Reachable {
		t.Fatalf("expected reachable, got error: %v", result.Error)
	}
	// Some servers hide their catalog; an empty list proves reachability
	// without saying anything about the configured model.
	if result.Warning {
		t.Errorf("empty catalog should not warn, got: %s", result.Message)
	}
}

func TestLLMChecker_CheckEndpoint_Unreachable(t *testing.T) {
	srv := httptest.NewServer(modelCatalog("gpt-4o-mini"))
	baseURL := srv.URL + "/v1"
	srv.Close()

	cfg := checkerConfig(t, baseURL)
	result := NewLLMChecker(cfg).CheckEndpoint(context.Background())

	if result.Reachable {
		t.Error("expected unreachable for closed server")
	}
	if result.Error == nil {
		t.Fatal("expected error for closed server")
	}
	if code := core.GetErrorCode(result.Error); code != core.ErrCodeEndpointUnreachable {
		t.Errorf("expected error code %s, got %s", core.ErrCodeEndpointUnreachable, code)
	}
}

func TestLLMChecker_CheckEndpoint_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := checkerConfig(t, srv.URL+"/v1")
	result := NewLLMChecker(cfg).CheckEndpoint(context.Background())

	if result.Reachable {
		t.Error("expected unreachable for server returning 500")
	}
}

func TestLLMChecker_IsReachable(t *testing.T) {
	srv := httptest.NewServer(modelCatalog("gpt-4o-mini"))
	defer srv.Close()

	cfg := checkerConfig(t, srv.URL+"/v1")
	if !NewLLMChecker(cfg).IsReachable(context.Background()) {
		t.Error("expected IsReachable to be true")
	}
}
