package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tossup-backend/internal/answer"
	gamerepo "github.com/yungbote/tossup-backend/internal/data/repos/game"
	"github.com/yungbote/tossup-backend/internal/data/repos/testutil"
	"github.com/yungbote/tossup-backend/internal/data/seen"
	httpH "github.com/yungbote/tossup-backend/internal/http/handlers"
	"github.com/yungbote/tossup-backend/internal/observability"
	"github.com/yungbote/tossup-backend/internal/provider"
	"github.com/yungbote/tossup-backend/internal/provider/static"
	"github.com/yungbote/tossup-backend/internal/session"
)

const (
	sinaiQuestion      = "This landform contains Mount Catherine. For 10 points, name this peninsula bordered by the Gulf of Suez and the Gulf of Aqaba."
	versaillesQuestion = "It created a mandate system. For 10 points, name this treaty signed in Versailles."
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	log := testutil.Logger(t)
	engine := answer.NewEngine()
	metrics := observability.NewMetrics()
	svc, err := session.NewService(session.Deps{
		DB:       db,
		Log:      log,
		Sessions: gamerepo.NewSessionRepo(db, log),
		Rounds:   gamerepo.NewRoundRepo(db, log),
		Seen:     seen.NewMemory(),
		Provider: static.New([]provider.Question{{
			ID:             "sinai",
			Text:           sinaiQuestion,
			ProvidedAnswer: "<b><u>Sinai</u></b> Peninsula",
			Category:       "geography",
		}}, nil),
		Engine:  engine,
		Metrics: metrics,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewRouter(RouterConfig{
		Log:             log,
		Metrics:         metrics,
		MaxRequestBytes: 1 << 16,
		MaxAudioBytes:   1 << 10,
		HealthHandler:   httpH.NewHealthHandler(nil),
		AnswerHandler:   httpH.NewAnswerHandler(engine, metrics),
		SessionHandler:  httpH.NewSessionHandler(svc),
	})
}

func do(t *testing.T, r *gin.Engine, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			t.Fatalf("marshal: %v", err)
		}
	}
	rec := do(t, r, method, path, "application/json", body)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, rec.Body.String())
	}
	return env.Error.Code
}

func TestHealthAndCategories(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := do(t, r, http.MethodGet, path, "", nil); rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
	}

	var cats struct {
		Categories []string `json:"categories"`
	}
	rec := doJSON(t, r, http.MethodGet, "/api/categories", nil, &cats)
	if rec.Code != http.StatusOK || len(cats.Categories) != len(provider.Categories) {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestEvaluateEndpoints(t *testing.T) {
	r := newTestRouter(t)

	var res struct {
		Result     answer.MatchResult `json:"result"`
		Candidates []answer.Candidate `json:"candidates"`
	}
	rec := doJSON(t, r, http.MethodPost, "/api/evaluate", map[string]string{
		"question":        versaillesQuestion,
		"provided_answer": "",
		"answer":          "Versailles",
	}, &res)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if !res.Result.Correct || res.Result.Tier != answer.TierWeak || res.Result.Rule != answer.RuleExact {
		t.Fatalf("unexpected result: %+v", res.Result)
	}

	var batch struct {
		Results []struct {
			Result answer.MatchResult `json:"result"`
		} `json:"results"`
	}
	rec = doJSON(t, r, http.MethodPost, "/api/evaluate/batch", map[string]any{
		"items": []map[string]string{
			{"question": sinaiQuestion, "provided_answer": "Sinai Peninsula", "answer": "sinai"},
			{"question": sinaiQuestion, "provided_answer": "Sinai Peninsula", "answer": "suez"},
		},
	}, &batch)
	if rec.Code != http.StatusOK || len(batch.Results) != 2 {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if !batch.Results[0].Result.Correct {
		t.Fatalf("batch[0] should be correct: %+v", batch.Results[0])
	}

	rec = doJSON(t, r, http.MethodPost, "/api/evaluate/batch", map[string]any{"items": []any{}}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty batch status=%d", rec.Code)
	}

	var cands struct {
		Candidates []answer.Candidate `json:"candidates"`
	}
	rec = doJSON(t, r, http.MethodPost, "/api/candidates", map[string]string{
		"question":        sinaiQuestion,
		"provided_answer": "Sinai Peninsula [accept Sinai]",
	}, &cands)
	if rec.Code != http.StatusOK || len(cands.Candidates) == 0 {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if cands.Candidates[0].Tier != answer.TierAuthoritative || cands.Candidates[0].Text != "Sinai Peninsula" {
		t.Fatalf("first candidate=%+v", cands.Candidates[0])
	}

	rec = do(t, r, http.MethodPost, "/api/evaluate", "application/json", []byte("{not json"))
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_request" {
		t.Fatalf("bad json status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestSessionFlow(t *testing.T) {
	r := newTestRouter(t)

	var started struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	rec := doJSON(t, r, http.MethodPost, "/api/sessions", map[string]any{"category": "geography"}, &started)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status=%d body=%s", rec.Code, rec.Body.String())
	}
	base := "/api/sessions/" + started.Session.ID

	var next struct {
		Round map[string]any `json:"round"`
	}
	rec = doJSON(t, r, http.MethodPost, base+"/rounds", nil, &next)
	if rec.Code != http.StatusCreated {
		t.Fatalf("next round status=%d body=%s", rec.Code, rec.Body.String())
	}
	if _, leaked := next.Round["answer"]; leaked {
		t.Fatalf("answer leaked: %v", next.Round)
	}
	roundID, _ := next.Round["id"].(string)

	var out struct {
		Result  answer.MatchResult `json:"result"`
		Session struct {
			Score int `json:"score"`
		} `json:"session"`
		Round struct {
			Answer string `json:"answer"`
		} `json:"round"`
	}
	rec = doJSON(t, r, http.MethodPost, base+"/rounds/"+roundID+"/answer", map[string]string{"transcript": "Sinai"}, &out)
	if rec.Code != http.StatusOK {
		t.Fatalf("answer status=%d body=%s", rec.Code, rec.Body.String())
	}
	if !out.Result.Correct || out.Session.Score != 10 || out.Round.Answer != "Sinai Peninsula" {
		t.Fatalf("unexpected outcome: %s", rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodPost, base+"/rounds/"+roundID+"/answer", map[string]string{"transcript": "Sinai"}, nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != session.CodeRoundAlreadyAnswered {
		t.Fatalf("double answer status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodPost, base+"/rounds", nil, nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != session.CodeNoFreshQuestion {
		t.Fatalf("repeat draw status=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, r, http.MethodPost, base+"/reset", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("reset status=%d", rec.Code)
	}

	var hist struct {
		Rounds []map[string]any `json:"rounds"`
	}
	rec = doJSON(t, r, http.MethodGet, base+"/rounds", nil, &hist)
	if rec.Code != http.StatusOK || len(hist.Rounds) != 1 {
		t.Fatalf("history status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodPost, base+"/rounds/"+roundID+"/audio", "audio/wav", []byte("RIFF"))
	if rec.Code != http.StatusNotImplemented || errorCode(t, rec) != session.CodeSpeechDisabled {
		t.Fatalf("audio status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = do(t, r, http.MethodPost, base+"/rounds/"+roundID+"/audio", "audio/wav", bytes.Repeat([]byte("x"), 2<<10))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized audio status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestSessionErrors(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"bad session id", http.MethodGet, "/api/sessions/nope", nil, http.StatusBadRequest, "invalid_session_id"},
		{"unknown session", http.MethodGet, "/api/sessions/7b0e6f6e-4f63-4f43-9d43-9b1c8a4b2f11", nil, http.StatusNotFound, session.CodeSessionNotFound},
		{"bad round id", http.MethodPost, "/api/sessions/7b0e6f6e-4f63-4f43-9d43-9b1c8a4b2f11/rounds/x/answer", map[string]string{}, http.StatusBadRequest, "invalid_round_id"},
		{"bad filter", http.MethodPost, "/api/sessions", map[string]any{"category": "astrology"}, http.StatusBadRequest, session.CodeInvalidFilter},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, r, tc.method, tc.path, tc.body, nil)
			if rec.Code != tc.status || errorCode(t, rec) != tc.code {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/evaluate", map[string]string{"question": versaillesQuestion, "answer": "Versailles"}, nil)

	rec := do(t, r, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `tossup_evaluations_total{correct="true",tier="weak",rule="exact"} 1`) {
		t.Fatalf("evaluation not counted:\n%s", rec.Body.String())
	}
}
