package qbreader

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/tossup-backend/internal/config"
	"github.com/yungbote/tossup-backend/internal/provider"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func testConfig() config.ProviderConfig {
	return config.ProviderConfig{
		Type:      config.ProviderQBReader,
		BaseURL:   "http://qbreader.test/",
		UserAgent: "tossup-test",
		Timeout:   config.Duration{Duration: 2 * time.Second},
	}
}

func TestRandomTossup(t *testing.T) {
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.Path != "/api/random-tossup" {
				t.Fatalf("unexpected path: %s", req.URL.Path)
			}
			if got := req.URL.Query().Get("difficulty"); got != "3" {
				t.Fatalf("difficulty=%q", got)
			}
			if got := req.URL.Query().Get("category"); got != "geography" {
				t.Fatalf("category=%q", got)
			}
			if req.Header.Get("Accept") != "application/json" || req.Header.Get("User-Agent") != "tossup-test" {
				t.Fatalf("headers=%v", req.Header)
			}
			return jsonResponse(http.StatusOK, `{"tossups":[{
				"_id":"abc123",
				"question":"<b>For 10 points</b>, name this peninsula.",
				"question_sanitized":"For 10 points, name this peninsula.",
				"answer":"<b><u>Sinai</u></b> Peninsula",
				"answer_sanitized":"Sinai Peninsula",
				"category":"Geography",
				"subcategory":"World Geography",
				"difficulty":"3"
			}]}`), nil
		}),
	}
	c, err := NewWithHTTPClient(testConfig(), client)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}

	q, err := c.RandomTossup(context.Background(), provider.Filter{Category: " Geography ", Difficulty: 3})
	if err != nil {
		t.Fatalf("RandomTossup: %v", err)
	}
	if q.ID != "abc123" || q.Text != "For 10 points, name this peninsula." || q.ProvidedAnswer != "Sinai Peninsula" {
		t.Fatalf("question=%+v", q)
	}
	if q.Difficulty != 3 || q.Category != "Geography" {
		t.Fatalf("metadata=%+v", q)
	}
}

func TestRandomTossupDropsInvalidFilter(t *testing.T) {
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.RawQuery != "" {
				t.Fatalf("expected no query, got %q", req.URL.RawQuery)
			}
			return jsonResponse(http.StatusOK, `{"tossups":[{"_id":"x","question":"name this thing","difficulty":7}]}`), nil
		}),
	}
	c, _ := NewWithHTTPClient(testConfig(), client)
	q, err := c.RandomTossup(context.Background(), provider.Filter{Category: "astrology", Difficulty: 9})
	if err != nil {
		t.Fatalf("RandomTossup: %v", err)
	}
	if q.ProvidedAnswer != "" || q.Difficulty != 7 {
		t.Fatalf("question=%+v", q)
	}
}

func TestRandomTossupsCount(t *testing.T) {
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if got := req.URL.Query().Get("count"); got != "2" {
				t.Fatalf("count=%q", got)
			}
			return jsonResponse(http.StatusOK, `{"tossups":[{"_id":"a","question":"q1"},{"_id":"b","question":"  "},{"_id":"c","question":"q2"}]}`), nil
		}),
	}
	c, _ := NewWithHTTPClient(testConfig(), client)
	qs, err := c.RandomTossups(context.Background(), provider.Filter{}, 2)
	if err != nil {
		t.Fatalf("RandomTossups: %v", err)
	}
	if len(qs) != 2 || qs[0].ID != "a" || qs[1].ID != "c" {
		t.Fatalf("questions=%+v", qs)
	}
}

func TestRandomTossupWithoutID(t *testing.T) {
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"tossups":[{"question":"For 10 points, name this peninsula.","answer":"Sinai"}]}`), nil
		}),
	}
	c, _ := NewWithHTTPClient(testConfig(), client)
	q, err := c.RandomTossup(context.Background(), provider.Filter{})
	if err != nil {
		t.Fatalf("RandomTossup: %v", err)
	}
	if q.ID != "" || q.Text != "For 10 points, name this peninsula." || q.ProvidedAnswer != "Sinai" {
		t.Fatalf("question=%+v", q)
	}
}

func TestRandomTossupErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"upstream 503", http.StatusServiceUnavailable, "down", func(err error) bool {
			var he *HTTPError
			return errors.As(err, &he) && he.StatusCode == 503 && he.Temporary()
		}},
		{"empty list", http.StatusOK, `{"tossups":[]}`, func(err error) bool { return errors.Is(err, ErrNoTossups) }},
		{"missing key", http.StatusOK, `{}`, func(err error) bool { return errors.Is(err, ErrNoTossups) }},
		{"not json", http.StatusOK, `<html>`, func(err error) bool { return err != nil && strings.Contains(err.Error(), "decode") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &http.Client{
				Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
					return jsonResponse(tc.status, tc.body), nil
				}),
			}
			c, _ := NewWithHTTPClient(testConfig(), client)
			_, err := c.RandomTossup(context.Background(), provider.Filter{})
			if !tc.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(config.ProviderConfig{}); err == nil {
		t.Fatalf("expected error")
	}
}
