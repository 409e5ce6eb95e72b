package education

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/compedu/quiz-service/internal/cache"
	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/repositories"
)

// Config holds the connection settings for the education content
// service.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

type educationHTTP struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.CacheHelper
}

// NewEducationHTTP builds the read-only client for education configs.
// Responses are cached in redis because configs change rarely and start
// latency matters.
func NewEducationHTTP(cfg Config, redisClient *redis.Client) repositories.EducationRepository {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &educationHTTP{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.NewCacheHelper(redisClient, cache.EducationCacheConfig.Prefix),
	}
}

func (e *educationHTTP) GetConfig(ctx context.Context, educationID uint) (*models.EducationConfig, error) {
	var config models.EducationConfig
	cacheKey := fmt.Sprintf("id:%d", educationID)

	err := e.cache.CacheOrExecute(ctx, cacheKey, &config, cache.EducationCacheConfig.TTL, func() (interface{}, error) {
		return e.fetchConfig(ctx, educationID)
	})
	if err != nil {
		return nil, err
	}

	return &config, nil
}

func (e *educationHTTP) fetchConfig(ctx context.Context, educationID uint) (*models.EducationConfig, error) {
	var config models.EducationConfig
	endpoint := fmt.Sprintf("%s/api/v1/educations/%d", e.baseURL, educationID)

	if err := e.getJSON(ctx, endpoint, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func (e *educationHTTP) ListActive(ctx context.Context) ([]*models.EducationConfig, error) {
	var configs []*models.EducationConfig
	cacheKey := "list:active"

	err := e.cache.CacheOrExecute(ctx, cacheKey, &configs, cache.EducationCacheConfig.TTL, func() (interface{}, error) {
		var fetched []*models.EducationConfig
		endpoint := fmt.Sprintf("%s/api/v1/educations?active=true", e.baseURL)
		if err := e.getJSON(ctx, endpoint, &fetched); err != nil {
			return nil, err
		}
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}

	return configs, nil
}

func (e *educationHTTP) EligibleCount(ctx context.Context, department string) (int64, error) {
	type countResponse struct {
		Count int64 `json:"count"`
	}

	var resp countResponse
	cacheKey := fmt.Sprintf("eligible:%s", department)

	err := e.cache.CacheOrExecute(ctx, cacheKey, &resp, cache.EducationCacheConfig.TTL, func() (interface{}, error) {
		var fetched countResponse
		endpoint := fmt.Sprintf("%s/api/v1/departments/%s/eligible-count", e.baseURL, url.PathEscape(department))
		if err := e.getJSON(ctx, endpoint, &fetched); err != nil {
			return nil, err
		}
		return fetched, nil
	})
	if err != nil {
		// Participation rate degrades to zero rather than failing stats.
		return 0, nil
	}

	return resp.Count, nil
}

func (e *educationHTTP) getJSON(ctx context.Context, endpoint string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build education request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("education service request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return gorm.ErrRecordNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("education service returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode education response: %w", err)
	}
	return nil
}
