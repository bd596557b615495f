// Package fatsecret implements a one-legged OAuth 1.0 client for the
// FatSecret platform API. Requests are GET-only and signed with HMAC-SHA1;
// the exact byte string that gets signed is the query string that is sent.
package fatsecret

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"nutricoach/internal/logging"
)

// ErrNoCredentials reports a client without a consumer key or secret.
// Credentials are checked at construction time by callers; this guard
// keeps a misconfigured client from emitting unsigned requests.
var ErrNoCredentials = errors.New("fatsecret consumer credentials not configured")

// Config holds configuration for the FatSecret client.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	BaseURL        string
	Timeout        time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(consumerKey, consumerSecret string) Config {
	return Config{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		BaseURL:        "https://platform.fatsecret.com/rest/server.api",
		Timeout:        10 * time.Second,
	}
}

// Client is a signed FatSecret API client.
type Client struct {
	consumerKey    string
	consumerSecret string
	baseURL        string
	httpClient     *http.Client

	// nonce and now are request-local value sources, swappable in tests.
	nonce func() string
	now   func() time.Time
}

// NewClient creates a client with default configuration.
func NewClient(consumerKey, consumerSecret string) *Client {
	return NewClientWithConfig(DefaultConfig(consumerKey, consumerSecret))
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config Config) *Client {
	return &Client{
		consumerKey:    config.ConsumerKey,
		consumerSecret: config.ConsumerSecret,
		baseURL:        config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		nonce: uuid.NewString,
		now:   time.Now,
	}
}

// percentEncode applies RFC 3986 encoding: unreserved characters pass
// through, everything else becomes %XX with uppercase hex. This is
// stricter than url.QueryEscape, which would emit "+" for spaces.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// signedQuery builds the complete query string for a request: the sorted,
// percent-encoded parameters plus the oauth_signature computed over them.
// The returned string must be sent verbatim as the URL query, otherwise
// the server-side signature check fails.
func (c *Client) signedQuery(params map[string]string) string {
	full := map[string]string{
		"format":                 "json",
		"oauth_consumer_key":     c.consumerKey,
		"oauth_nonce":            c.nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(c.now().Unix(), 10),
		"oauth_version":          "1.0",
	}
	for k, v := range params {
		full[k] = v
	}

	keys := make([]string, 0, len(full))
	for k := range full {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(full[k]))
	}
	normalized := strings.Join(pairs, "&")

	base := "GET&" + percentEncode(c.baseURL) + "&" + percentEncode(normalized)

	mac := hmac.New(sha1.New, []byte(c.consumerSecret+"&"))
	mac.Write([]byte(base))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return normalized + "&oauth_signature=" + percentEncode(signature)
}

// doGet executes a signed GET and returns the raw response body.
func (c *Client) doGet(ctx context.Context, params map[string]string) ([]byte, error) {
	if c.consumerKey == "" || c.consumerSecret == "" {
		return nil, ErrNoCredentials
	}

	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	rawURL := c.baseURL + "?" + c.signedQuery(params)

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// Search runs foods.search for the given term, requesting only the top
// match. It returns (nil, nil) when nothing matched: not finding a food
// is a lookup outcome, not an error.
func (c *Client) Search(ctx context.Context, term string) (*Food, error) {
	timer := logging.StartTimer(logging.CategoryComposition, "foods.search")
	defer timer.Stop()

	logging.CompositionDebug("[FatSecret] Search: term=%q", term)

	body, err := c.doGet(ctx, map[string]string{
		"method":            "foods.search",
		"search_expression": term,
		"max_results":       "1",
	})
	if err != nil {
		logging.CompositionError("[FatSecret] Search: %v", err)
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	if sr.Error != nil {
		logging.CompositionError("[FatSecret] Search: %v", sr.Error)
		return nil, sr.Error
	}

	foods := sr.Foods.Food
	if len(foods) == 0 {
		logging.CompositionDebug("[FatSecret] Search: term=%q no match", term)
		return nil, nil
	}

	top := foods[0]
	logging.CompositionDebug("[FatSecret] Search: term=%q -> %s (%s)", term, top.FoodName, top.FoodID)
	return &top, nil
}

// GetFood runs food.get.v2 for a food ID and returns the full record with
// its servings.
func (c *Client) GetFood(ctx context.Context, foodID string) (*FoodDetail, error) {
	timer := logging.StartTimer(logging.CategoryComposition, "food.get.v2")
	defer timer.Stop()

	logging.CompositionDebug("[FatSecret] GetFood: food_id=%s", foodID)

	body, err := c.doGet(ctx, map[string]string{
		"method":  "food.get.v2",
		"food_id": foodID,
	})
	if err != nil {
		logging.CompositionError("[FatSecret] GetFood: %v", err)
		return nil, err
	}

	var gr getResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, fmt.Errorf("failed to parse food response: %w", err)
	}
	if gr.Error != nil {
		logging.CompositionError("[FatSecret] GetFood: %v", gr.Error)
		return nil, gr.Error
	}
	if gr.Food == nil {
		return nil, fmt.Errorf("food %s not found", foodID)
	}

	return gr.Food, nil
}
