package aims

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shelfgrid/platform/pkg/common/logger"
	"github.com/shelfgrid/platform/pkg/common/models"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			json.NewEncoder(w).Encode(map[string]interface{}{"token": "tok-1", "expiresIn": 3600})
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL, "svc", "secret", 5*time.Second)
}

func TestClientPushAndPullArticles(t *testing.T) {
	var pushed []models.Article
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/stores/ST1/articles":
			var payload struct {
				Articles []models.Article `json:"articles"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			pushed = append(pushed, payload.Articles...)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet && r.URL.Path == "/stores/ST1/articles":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"articles": pushed,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	article := models.Article{ArticleID: "A100", ArticleName: "Desk 100", LabelCode: "L-9"}
	if err := client.PushArticles(ctx, "ST1", []models.Article{article}); err != nil {
		t.Fatalf("push failed: %v", err)
	}

	got, err := client.PullArticles(ctx, "ST1")
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(got) != 1 || got[0].ArticleID != "A100" {
		t.Fatalf("unexpected articles: %+v", got)
	}
}

func TestClientDeleteArticlesSendsKeys(t *testing.T) {
	var deleted string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && r.URL.Path == "/stores/ST1/articles" {
			deleted = r.URL.Query().Get("articleIds")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	if err := client.DeleteArticles(context.Background(), "ST1", []string{"SLOT-7", "C42"}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted != "SLOT-7,C42" {
		t.Fatalf("unexpected delete keys: %q", deleted)
	}
}

func TestClientServerErrorIsRetryableAPIError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := client.PushArticles(context.Background(), "ST1", []models.Article{{ArticleID: "A1"}})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.Retryable() {
		t.Fatal("expected 502 to be retryable")
	}
}

func TestClientNotFoundStoreConfigIsNil(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	cfg, err := client.GetStoreConfig(context.Background(), "MISSING")
	if err != nil {
		t.Fatalf("expected nil error for missing config, got %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config, got %+v", cfg)
	}
}

func TestClientRefreshesRejectedToken(t *testing.T) {
	logins := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			logins++
			json.NewEncoder(w).Encode(map[string]interface{}{"token": "tok-1", "expiresIn": 3600})
			return
		}
		// Reject the first authenticated call to force a refresh.
		if logins < 2 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"healthy": true})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "svc", "secret", 5*time.Second)
	healthy, err := client.CheckHealth(context.Background(), "ST1")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if !healthy {
		t.Fatal("expected healthy store")
	}
	if logins != 2 {
		t.Fatalf("expected a second login after 401, got %d", logins)
	}
}

func TestLoginRetriesTransientFailureOnce(t *testing.T) {
	logins := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			logins++
			if logins == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"token": "tok-1", "expiresIn": 3600})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "svc", "secret", 5*time.Second)
	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("login should succeed on the second attempt: %v", err)
	}
	if logins != 2 {
		t.Fatalf("expected one retry after 503, got %d logins", logins)
	}
}

func TestLoginDoesNotRetryRejectedCredentials(t *testing.T) {
	logins := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			logins++
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "svc", "bad-secret", 5*time.Second)
	err := client.Login(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if logins != 1 {
		t.Fatalf("rejected credentials must not be retried, got %d logins", logins)
	}
}

func TestLoadFormatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "format.yaml")
	content := "version: \"2\"\nid_field: itemCode\nname_field: itemName\nfields:\n  - name\n  - department\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	format, err := LoadFormatFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if format.IDField != "itemCode" || len(format.Fields) != 2 {
		t.Fatalf("unexpected format: %+v", format)
	}

	fallback, err := LoadFormatFile("")
	if err != nil {
		t.Fatalf("empty path should yield default: %v", err)
	}
	if fallback.IDField != "articleId" {
		t.Fatalf("unexpected default format: %+v", fallback)
	}
}

type staticFetcher struct {
	format models.ArticleFormat
	err    error
	calls  int
}

func (f *staticFetcher) FetchArticleFormat(ctx context.Context, storeCode string) (models.ArticleFormat, error) {
	f.calls++
	return f.format, f.err
}

func TestFormatCacheFallsBackOnFetchFailure(t *testing.T) {
	fetcher := &staticFetcher{err: errors.New("aims down")}
	cache := NewFormatCache(fetcher, nil, time.Minute, DefaultFormat())

	format := cache.Get(context.Background(), "ST1")
	if format.IDField != "articleId" {
		t.Fatalf("expected fallback mapping, got %+v", format)
	}
}
