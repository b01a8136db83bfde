// Package qbreader fetches random tossups from the QB Reader public API.
package qbreader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/tossup-backend/internal/config"
	"github.com/yungbote/tossup-backend/internal/provider"
)

const randomTossupPath = "/api/random-tossup"

// ErrNoTossups is returned when the upstream answers 2xx without tossups.
var ErrNoTossups = fmt.Errorf("qbreader: response contained no tossups: %w", provider.ErrNoQuestions)

type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration

	httpClient *http.Client
}

func New(cfg config.ProviderConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("qbreader: base_url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("qbreader: base_url: %w", err)
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = "tossup-backend/1.0"
	}

	return &Client{
		baseURL:    baseURL,
		userAgent:  ua,
		timeout:    timeout,
		httpClient: &http.Client{Transport: tr},
	}, nil
}

// NewWithHTTPClient is intended for tests; it avoids network access by using a custom RoundTripper.
func NewWithHTTPClient(cfg config.ProviderConfig, httpClient *http.Client) (*Client, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c, nil
}

func (c *Client) Name() string { return config.ProviderQBReader }

type tossupsResponse struct {
	Tossups []tossup `json:"tossups"`
}

type tossup struct {
	ID                string          `json:"_id"`
	Question          string          `json:"question"`
	QuestionSanitized string          `json:"question_sanitized"`
	Answer            string          `json:"answer"`
	AnswerSanitized   string          `json:"answer_sanitized"`
	Category          string          `json:"category"`
	Subcategory       string          `json:"subcategory"`
	Difficulty        json.RawMessage `json:"difficulty"`
}

func (t tossup) toQuestion() provider.Question {
	q := provider.Question{
		ID:             t.ID,
		Text:           firstNonEmpty(t.QuestionSanitized, t.Question),
		ProvidedAnswer: firstNonEmpty(t.AnswerSanitized, t.Answer),
		Category:       t.Category,
		Subcategory:    t.Subcategory,
	}
	// difficulty arrives as a number or a numeric string depending on the set
	raw := strings.Trim(string(t.Difficulty), `"`)
	if n, err := strconv.Atoi(raw); err == nil {
		q.Difficulty = n
	}
	return q
}

// RandomTossup draws one tossup. Invalid filter values are not sent.
func (c *Client) RandomTossup(ctx context.Context, f provider.Filter) (provider.Question, error) {
	qs, err := c.RandomTossups(ctx, f, 1)
	if err != nil {
		return provider.Question{}, err
	}
	return qs[0], nil
}

// RandomTossups draws up to count tossups in one request.
func (c *Client) RandomTossups(ctx context.Context, f provider.Filter, count int) ([]provider.Question, error) {
	f = f.Normalized()
	params := url.Values{}
	if f.Difficulty >= provider.MinDifficulty && f.Difficulty <= provider.MaxDifficulty {
		params.Set("difficulty", strconv.Itoa(f.Difficulty))
	}
	if f.Category != "" && provider.IsCategory(f.Category) {
		params.Set("category", f.Category)
	}
	if count > 1 {
		params.Set("count", strconv.Itoa(count))
	}

	var resp tossupsResponse
	if err := c.getJSON(ctx, randomTossupPath, params, &resp); err != nil {
		return nil, err
	}

	out := make([]provider.Question, 0, len(resp.Tossups))
	for _, t := range resp.Tossups {
		q := t.toQuestion()
		// an empty _id is passed through; callers derive a stable id
		if strings.TrimSpace(q.Text) == "" {
			continue
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, ErrNoTossups
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	ctx2, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx2, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(out); err != nil {
		return fmt.Errorf("qbreader: decode response: %w", err)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
