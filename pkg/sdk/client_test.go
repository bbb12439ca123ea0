package reelrank

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecommend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/recommend" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}

		var req struct {
			Query  string   `json:"query"`
			Genres []string `json:"genres"`
			K      int      `json:"k"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "heist thriller" || req.K != 2 {
			t.Errorf("request = %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"movie": map[string]any{"id": "1", "title": "Heat"}, "score": 0.81},
			},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, WithAPIKey("secret"))
	results, err := client.Recommend(context.Background(), "heist thriller", []string{"crime"}, 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(results) != 1 || results[0].Movie.ID != "1" || results[0].Score != 0.81 {
		t.Errorf("results = %+v", results)
	}
}

func TestRecommend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "embedding_provider_error",
			"message": "embedding provider error",
		})
	}))
	defer srv.Close()

	client := New(srv.URL)
	_, err := client.Recommend(context.Background(), "q", nil, 5)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Code != "embedding_provider_error" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestAddMovies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/movies" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Movies []*Movie `json:"movies"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Movies) != 2 {
			t.Errorf("got %d movies", len(req.Movies))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(IngestResult{Added: 2})
	}))
	defer srv.Close()

	client := New(srv.URL)
	res, err := client.AddMovies(context.Background(), []*Movie{
		{ID: "1", Title: "Heat"},
		{ID: "2", Title: "Ronin"},
	})
	if err != nil {
		t.Fatalf("AddMovies: %v", err)
	}
	if res.Added != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestHealth_DegradedStillDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthStatus{
			Status: "degraded",
			Checks: map[string]string{"embedding": "error"},
			Sizes:  map[string]int{"sparse": 10, "dense": 10},
		})
	}))
	defer srv.Close()

	client := New(srv.URL)
	hs, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if hs.Status != "degraded" || hs.Checks["embedding"] != "error" {
		t.Errorf("health = %+v", hs)
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("path = %q, want /healthz", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(HealthStatus{Status: "ok"})
	}))
	defer srv.Close()

	client := New(srv.URL + "/")
	if _, err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}
