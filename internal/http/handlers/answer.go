package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/tossup-backend/internal/answer"
	"github.com/yungbote/tossup-backend/internal/http/response"
	"github.com/yungbote/tossup-backend/internal/observability"
	"github.com/yungbote/tossup-backend/internal/provider"
)

const maxBatchItems = 200

type AnswerHandler struct {
	engine  *answer.Engine
	metrics *observability.Metrics
}

func NewAnswerHandler(engine *answer.Engine, metrics *observability.Metrics) *AnswerHandler {
	if engine == nil {
		engine = answer.NewEngine()
	}
	return &AnswerHandler{engine: engine, metrics: metrics}
}

type evaluateRequest struct {
	Question       string `json:"question"`
	ProvidedAnswer string `json:"provided_answer"`
	Answer         string `json:"answer"`
}

type evaluateResponse struct {
	Result     answer.MatchResult `json:"result"`
	AskClause  string             `json:"ask_clause"`
	Candidates []answer.Candidate `json:"candidates"`
}

func (h *AnswerHandler) evaluate(req evaluateRequest) evaluateResponse {
	p := h.engine.Prepare(req.Question, req.ProvidedAnswer)
	res := h.engine.Judge(p, req.Answer)
	h.metrics.ObserveEvaluation(res.Correct, string(res.Tier), res.Rule)
	return evaluateResponse{Result: res, AskClause: p.AskClause, Candidates: p.Candidates}
}

// GET /api/categories
func (h *AnswerHandler) Categories(c *gin.Context) {
	response.RespondOK(c, gin.H{
		"categories":     provider.Categories,
		"min_difficulty": provider.MinDifficulty,
		"max_difficulty": provider.MaxDifficulty,
	})
}

// POST /api/evaluate
func (h *AnswerHandler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	response.RespondOK(c, h.evaluate(req))
}

// POST /api/evaluate/batch
func (h *AnswerHandler) EvaluateBatch(c *gin.Context) {
	var req struct {
		Items []evaluateRequest `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if len(req.Items) == 0 || len(req.Items) > maxBatchItems {
		response.RespondError(c, http.StatusBadRequest, "invalid_request",
			errors.New("items must hold between 1 and 200 entries"))
		return
	}

	out := make([]evaluateResponse, len(req.Items))
	var g errgroup.Group
	g.SetLimit(8)
	for i, item := range req.Items {
		g.Go(func() error {
			out[i] = h.evaluate(item)
			return nil
		})
	}
	_ = g.Wait()
	response.RespondOK(c, gin.H{"results": out})
}

// POST /api/candidates
func (h *AnswerHandler) Candidates(c *gin.Context) {
	var req struct {
		Question       string `json:"question"`
		ProvidedAnswer string `json:"provided_answer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	p := h.engine.Prepare(req.Question, req.ProvidedAnswer)
	response.RespondOK(c, gin.H{
		"question":   p.Question,
		"ask_clause": p.AskClause,
		"candidates": p.Candidates,
	})
}

func respondBindError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "request_too_large", err)
		return
	}
	response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
}
