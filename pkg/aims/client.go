package aims

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shelfgrid/platform/pkg/common/httpclient"
	"github.com/shelfgrid/platform/pkg/common/logger"
	"github.com/shelfgrid/platform/pkg/common/models"
)

// APIError is a non-transport failure returned by the AIMS API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aims: %s (status %d)", e.Message, e.Status)
}

// Retryable reports whether the failure is worth another attempt. Client
// errors other than throttling are terminal.
func (e *APIError) Retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// Client wraps the third-party AIMS device-management API. Safe for
// concurrent use; the session token is shared and refreshed on expiry.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewClient(baseURL, username, password string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http:     httpclient.New(timeout),
	}
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

// Login authenticates against AIMS and caches the session token. Transient
// transport failures are retried in place; everything else surfaces to the
// caller's own retry policy.
func (c *Client) Login(ctx context.Context) error {
	var terminal error
	err := httpclient.Retry(ctx, 3, 200*time.Millisecond, func() error {
		err := c.login(ctx)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if apiErr.Retryable() {
				return err
			}
			// Rejected credentials never get better on retry.
			terminal = err
			return nil
		}
		if httpclient.IsRetriable(err) {
			return err
		}
		terminal = err
		return nil
	})
	if terminal != nil {
		return terminal
	}
	return err
}

func (c *Client) login(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("aims login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: "login rejected"}
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("aims login: decode response: %w", err)
	}

	c.mu.Lock()
	c.token = lr.Token
	c.tokenExp = time.Now().Add(time.Duration(lr.ExpiresIn) * time.Second)
	c.mu.Unlock()
	return nil
}

func (c *Client) sessionToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	valid := c.token != "" && time.Now().Before(c.tokenExp.Add(-30*time.Second))
	token := c.token
	c.mu.Unlock()

	if valid {
		return token, nil
	}
	if err := c.Login(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	token = c.token
	c.mu.Unlock()
	return token, nil
}

// do performs one authenticated request, retrying once after a fresh login
// when the cached token is rejected.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out interface{}) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.sessionToken(ctx)
		if err != nil {
			return err
		}

		var body *bytes.Reader
		if payload != nil {
			raw, err := json.Marshal(payload)
			if err != nil {
				return err
			}
			body = bytes.NewReader(raw)
		} else {
			body = bytes.NewReader(nil)
		}

		u := c.baseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, method, u, body)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("aims request %s %s: %w", method, path, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("%s %s failed", method, path)}
		}

		if out != nil {
			err = json.NewDecoder(resp.Body).Decode(out)
		}
		resp.Body.Close()
		return err
	}
	return &APIError{Status: http.StatusUnauthorized, Message: "session refresh failed"}
}

// GetStoreConfig resolves the AIMS-side configuration for a store. A 404
// means the store is not provisioned and yields (nil, nil).
func (c *Client) GetStoreConfig(ctx context.Context, storeCode string) (*models.StoreConfig, error) {
	var cfg models.StoreConfig
	err := c.do(ctx, http.MethodGet, "/stores/"+storeCode+"/config", nil, nil, &cfg)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// CheckHealth reports whether AIMS considers the store's label
// infrastructure reachable.
func (c *Client) CheckHealth(ctx context.Context, storeCode string) (bool, error) {
	var status struct {
		Healthy bool `json:"healthy"`
	}
	if err := c.do(ctx, http.MethodGet, "/stores/"+storeCode+"/health", nil, nil, &status); err != nil {
		return false, err
	}
	return status.Healthy, nil
}

// FetchArticleFormat returns the company's article field mapping.
func (c *Client) FetchArticleFormat(ctx context.Context, storeCode string) (models.ArticleFormat, error) {
	var format models.ArticleFormat
	err := c.do(ctx, http.MethodGet, "/stores/"+storeCode+"/articles/format", nil, nil, &format)
	return format, err
}

type articleList struct {
	Articles []models.Article `json:"articles"`
}

// PullArticles fetches every article AIMS holds for the store.
func (c *Client) PullArticles(ctx context.Context, storeCode string) ([]models.Article, error) {
	var list articleList
	if err := c.do(ctx, http.MethodGet, "/stores/"+storeCode+"/articles", nil, nil, &list); err != nil {
		return nil, err
	}
	return list.Articles, nil
}

// PushArticles upserts articles into AIMS.
func (c *Client) PushArticles(ctx context.Context, storeCode string, articles []models.Article) error {
	if len(articles) == 0 {
		return nil
	}
	payload := articleList{Articles: articles}
	if err := c.do(ctx, http.MethodPost, "/stores/"+storeCode+"/articles", nil, payload, nil); err != nil {
		return err
	}
	logger.Log.WithFields(map[string]interface{}{
		"store_code": storeCode,
		"count":      len(articles),
	}).Debug("Pushed articles to AIMS")
	return nil
}

// DeleteArticles removes articles from AIMS by external key.
func (c *Client) DeleteArticles(ctx context.Context, storeCode string, articleIDs []string) error {
	if len(articleIDs) == 0 {
		return nil
	}
	query := url.Values{"articleIds": {strings.Join(articleIDs, ",")}}
	return c.do(ctx, http.MethodDelete, "/stores/"+storeCode+"/articles", query, nil, nil)
}
