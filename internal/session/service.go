// Package session runs quiz sessions: it draws tossups, remembers which ones
// a session has seen, judges answers and keeps score.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/tossup-backend/internal/answer"
	gamerepo "github.com/yungbote/tossup-backend/internal/data/repos/game"
	"github.com/yungbote/tossup-backend/internal/data/seen"
	"github.com/yungbote/tossup-backend/internal/domain/game"
	"github.com/yungbote/tossup-backend/internal/observability"
	"github.com/yungbote/tossup-backend/internal/platform/apierr"
	"github.com/yungbote/tossup-backend/internal/platform/dbctx"
	"github.com/yungbote/tossup-backend/internal/platform/gcp"
	"github.com/yungbote/tossup-backend/internal/platform/logger"
	"github.com/yungbote/tossup-backend/internal/provider"
)

const (
	CodeInvalidFilter        = "invalid_filter"
	CodeSessionNotFound      = "session_not_found"
	CodeRoundNotFound        = "round_not_found"
	CodeRoundAlreadyAnswered = "round_already_answered"
	CodeNoFreshQuestion      = "no_fresh_question"
	CodeNoQuestions          = "no_questions"
	CodeProviderUnavailable  = "provider_unavailable"
	CodeSpeechDisabled       = "speech_disabled"
	CodeUnsupportedAudio     = "unsupported_audio"
	CodeTranscriptionFailed  = "transcription_failed"
)

// Transcriber turns a recorded answer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (*gcp.Transcript, error)
}

type Service interface {
	Start(ctx context.Context, f provider.Filter) (*game.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*game.Session, error)
	NextRound(ctx context.Context, id uuid.UUID) (*RoundView, error)
	Submit(ctx context.Context, sessionID, roundID uuid.UUID, transcript string) (*Outcome, error)
	SubmitAudio(ctx context.Context, sessionID, roundID uuid.UUID, audio []byte, mimeType string) (*Outcome, error)
	Rounds(ctx context.Context, id uuid.UUID) ([]*RoundView, error)
	Reset(ctx context.Context, id uuid.UUID) error
}

// RoundView is a round as shown to players. Answer and Candidates stay
// empty until the round has been answered.
type RoundView struct {
	*game.Round
	Answer     string             `json:"answer,omitempty"`
	Candidates []answer.Candidate `json:"candidates,omitempty"`
}

// Outcome is the result of judging one answer.
type Outcome struct {
	Session    *game.Session      `json:"session"`
	Round      *RoundView         `json:"round"`
	Result     answer.MatchResult `json:"result"`
	Transcript *gcp.Transcript    `json:"transcript,omitempty"`
}

type Deps struct {
	DB          *gorm.DB
	Log         *logger.Logger
	Sessions    gamerepo.SessionRepo
	Rounds      gamerepo.RoundRepo
	Seen        seen.Store
	Provider    provider.Provider
	Engine      *answer.Engine
	Transcriber Transcriber
	Metrics     *observability.Metrics

	PointsPerCorrect int
	MaxFetchAttempts int
}

type service struct {
	db          *gorm.DB
	log         *logger.Logger
	sessions    gamerepo.SessionRepo
	rounds      gamerepo.RoundRepo
	seen        seen.Store
	provider    provider.Provider
	engine      *answer.Engine
	transcriber Transcriber
	metrics     *observability.Metrics

	points      int
	maxAttempts int
}

func NewService(d Deps) (Service, error) {
	switch {
	case d.DB == nil:
		return nil, errors.New("session: db required")
	case d.Log == nil:
		return nil, errors.New("session: logger required")
	case d.Sessions == nil || d.Rounds == nil:
		return nil, errors.New("session: repos required")
	case d.Seen == nil:
		return nil, errors.New("session: seen store required")
	case d.Provider == nil:
		return nil, errors.New("session: provider required")
	}
	if d.Engine == nil {
		d.Engine = answer.NewEngine()
	}
	if d.PointsPerCorrect <= 0 {
		d.PointsPerCorrect = 10
	}
	if d.MaxFetchAttempts <= 0 {
		d.MaxFetchAttempts = 5
	}
	return &service{
		db:          d.DB,
		log:         d.Log.With("service", "SessionService"),
		sessions:    d.Sessions,
		rounds:      d.Rounds,
		seen:        d.Seen,
		provider:    d.Provider,
		engine:      d.Engine,
		transcriber: d.Transcriber,
		metrics:     d.Metrics,
		points:      d.PointsPerCorrect,
		maxAttempts: d.MaxFetchAttempts,
	}, nil
}

func (s *service) Start(ctx context.Context, f provider.Filter) (*game.Session, error) {
	ctx, span := observability.Tracer().Start(ctx, "session.Start")
	defer span.End()

	if err := f.Validate(); err != nil {
		return nil, apierr.BadRequest(CodeInvalidFilter, err)
	}
	f = f.Normalized()
	created, err := s.sessions.Create(dbctx.Context{Ctx: ctx}, &game.Session{
		Category:   f.Category,
		Difficulty: f.Difficulty,
	})
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("create session: %w", err)
	}
	span.SetAttributes(attribute.String("tossup.session_id", created.ID.String()))
	s.log.Info("session started", "session_id", created.ID, "category", f.Category, "difficulty", f.Difficulty)
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*game.Session, error) {
	return s.mustSession(dbctx.Context{Ctx: ctx}, id)
}

func (s *service) mustSession(dbc dbctx.Context, id uuid.UUID) (*game.Session, error) {
	found, err := s.sessions.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if found == nil {
		return nil, apierr.NotFound(CodeSessionNotFound)
	}
	return found, nil
}

func (s *service) NextRound(ctx context.Context, id uuid.UUID) (*RoundView, error) {
	ctx, span := observability.Tracer().Start(ctx, "session.NextRound",
		trace.WithAttributes(attribute.String("tossup.session_id", id.String())))
	defer span.End()

	sess, err := s.mustSession(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}

	q, err := s.drawFresh(ctx, sess)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}

	prepared := s.engine.Prepare(q.Text, q.ProvidedAnswer)
	candJSON, err := json.Marshal(prepared.Candidates)
	if err != nil {
		return nil, fmt.Errorf("encode candidates: %w", err)
	}

	round := &game.Round{
		SessionID:      sess.ID,
		QuestionID:     q.ID,
		QuestionText:   q.Text,
		ProvidedAnswer: q.ProvidedAnswer,
		Category:       q.Category,
		Subcategory:    q.Subcategory,
		Difficulty:     q.Difficulty,
		Candidates:     datatypes.JSON(candJSON),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		seq, err := s.sessions.NextSeq(inner, sess.ID)
		if err != nil {
			return err
		}
		round.Seq = seq
		_, err = s.rounds.Create(inner, round)
		return err
	})
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("create round: %w", err)
	}
	if err := s.seen.Mark(ctx, sess.ID, q.ID); err != nil {
		// the round exists; a lost mark only risks a repeat later
		s.log.Warn("mark question seen failed", "session_id", sess.ID, "question_id", q.ID, "error", err)
	}

	span.SetAttributes(
		attribute.String("tossup.question_id", q.ID),
		attribute.Int("tossup.candidates", len(prepared.Candidates)),
	)
	s.log.Debug("round drawn", "session_id", sess.ID, "round_id", round.ID, "question_id", q.ID, "seq", round.Seq)
	return s.newRoundView(round), nil
}

// drawFresh asks the provider for a tossup this session has not seen,
// giving up after maxAttempts repeats.
func (s *service) drawFresh(ctx context.Context, sess *game.Session) (provider.Question, error) {
	f := provider.Filter{Category: sess.Category, Difficulty: sess.Difficulty}
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		start := time.Now()
		q, err := s.provider.RandomTossup(ctx, f)
		if err != nil {
			s.metrics.ObserveProviderDraw(s.provider.Name(), "error", time.Since(start))
			if errors.Is(err, provider.ErrNoQuestions) {
				return provider.Question{}, apierr.NotFound(CodeNoQuestions)
			}
			if ctx.Err() != nil {
				return provider.Question{}, ctx.Err()
			}
			s.log.Warn("provider draw failed", "provider", s.provider.Name(), "attempt", attempt, "error", err)
			return provider.Question{}, apierr.New(http.StatusBadGateway, CodeProviderUnavailable, err)
		}
		if strings.TrimSpace(q.ID) == "" {
			q.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(q.Text)).String()
		}
		already, err := s.seen.Seen(ctx, sess.ID, q.ID)
		if err != nil {
			return provider.Question{}, fmt.Errorf("check seen: %w", err)
		}
		if !already {
			s.metrics.ObserveProviderDraw(s.provider.Name(), "ok", time.Since(start))
			return q, nil
		}
		s.metrics.ObserveProviderDraw(s.provider.Name(), "repeat", time.Since(start))
	}
	return provider.Question{}, apierr.Conflict(CodeNoFreshQuestion,
		fmt.Errorf("no unseen question after %d attempts", s.maxAttempts))
}

func (s *service) Submit(ctx context.Context, sessionID, roundID uuid.UUID, transcript string) (*Outcome, error) {
	ctx, span := observability.Tracer().Start(ctx, "session.Submit",
		trace.WithAttributes(
			attribute.String("tossup.session_id", sessionID.String()),
			attribute.String("tossup.round_id", roundID.String()),
		))
	defer span.End()

	out, err := s.judge(ctx, span, sessionID, roundID, func(p *answer.Prepared) (string, answer.MatchResult) {
		return transcript, s.engine.Judge(p, transcript)
	})
	if err != nil {
		recordErr(span, err)
	}
	return out, err
}

func (s *service) SubmitAudio(ctx context.Context, sessionID, roundID uuid.UUID, audio []byte, mimeType string) (*Outcome, error) {
	ctx, span := observability.Tracer().Start(ctx, "session.SubmitAudio",
		trace.WithAttributes(
			attribute.String("tossup.session_id", sessionID.String()),
			attribute.String("tossup.round_id", roundID.String()),
		))
	defer span.End()

	if s.transcriber == nil {
		return nil, apierr.New(http.StatusNotImplemented, CodeSpeechDisabled, errors.New("speech recognition is not enabled"))
	}
	// fail fast before paying for recognition
	if _, err := s.openRound(dbctx.Context{Ctx: ctx}, sessionID, roundID); err != nil {
		return nil, err
	}

	tr, err := s.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		s.metrics.IncTranscription("error")
		recordErr(span, err)
		if errors.Is(err, gcp.ErrUnsupportedAudio) {
			return nil, apierr.New(http.StatusUnsupportedMediaType, CodeUnsupportedAudio, err)
		}
		return nil, apierr.New(http.StatusBadGateway, CodeTranscriptionFailed, err)
	}
	s.metrics.IncTranscription("ok")

	out, err := s.judge(ctx, span, sessionID, roundID, func(p *answer.Prepared) (string, answer.MatchResult) {
		return judgeTranscript(s.engine, p, tr)
	})
	if err != nil {
		recordErr(span, err)
		return nil, err
	}
	out.Transcript = tr
	return out, nil
}

// judgeTranscript credits the first recognizer alternative that matches,
// falling back to the primary transcript's verdict.
func judgeTranscript(e *answer.Engine, p *answer.Prepared, tr *gcp.Transcript) (string, answer.MatchResult) {
	primary := e.Judge(p, tr.Primary)
	if primary.Correct {
		return tr.Primary, primary
	}
	for _, alt := range tr.Alternatives {
		if res := e.Judge(p, alt); res.Correct {
			return alt, res
		}
	}
	return tr.Primary, primary
}

func (s *service) openRound(dbc dbctx.Context, sessionID, roundID uuid.UUID) (*game.Round, error) {
	if _, err := s.mustSession(dbc, sessionID); err != nil {
		return nil, err
	}
	round, err := s.rounds.GetByID(dbc, sessionID, roundID)
	if err != nil {
		return nil, fmt.Errorf("load round: %w", err)
	}
	if round == nil {
		return nil, apierr.NotFound(CodeRoundNotFound)
	}
	if round.Answered {
		return nil, apierr.Conflict(CodeRoundAlreadyAnswered, errors.New("round already answered"))
	}
	return round, nil
}

func (s *service) judge(ctx context.Context, span trace.Span, sessionID, roundID uuid.UUID, fn func(*answer.Prepared) (string, answer.MatchResult)) (*Outcome, error) {
	round, err := s.openRound(dbctx.Context{Ctx: ctx}, sessionID, roundID)
	if err != nil {
		return nil, err
	}

	prepared := s.engine.Prepare(round.QuestionText, round.ProvidedAnswer)
	transcript, result := fn(prepared)

	points := 0
	if result.Correct {
		points = s.points
	}
	outcome := game.RoundOutcome{
		Transcript:    transcript,
		Correct:       result.Correct,
		MatchedTier:   string(result.Tier),
		Rule:          result.Rule,
		PointsAwarded: points,
		AnsweredAt:    time.Now().UTC(),
	}
	if result.Matched != nil {
		outcome.MatchedText = result.Matched.Text
	}

	var sess *game.Session
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.rounds.MarkAnswered(inner, round.ID, outcome); err != nil {
			return err
		}
		if err := s.sessions.AddResult(inner, sessionID, result.Correct, points); err != nil {
			return err
		}
		updated, err := s.rounds.GetByID(inner, sessionID, roundID)
		if err != nil {
			return err
		}
		round = updated
		sess, err = s.sessions.GetByID(inner, sessionID)
		return err
	})
	if errors.Is(err, gamerepo.ErrAlreadyAnswered) {
		return nil, apierr.Conflict(CodeRoundAlreadyAnswered, err)
	}
	if err != nil {
		return nil, fmt.Errorf("record answer: %w", err)
	}

	s.metrics.ObserveEvaluation(result.Correct, string(result.Tier), result.Rule)
	span.SetAttributes(
		attribute.Bool("tossup.correct", result.Correct),
		attribute.String("tossup.tier", string(result.Tier)),
		attribute.String("tossup.rule", result.Rule),
	)
	s.log.Info("answer judged",
		"session_id", sessionID,
		"round_id", roundID,
		"transcript", transcript,
		"correct", result.Correct,
		"tier", result.Tier,
		"rule", result.Rule,
	)
	return &Outcome{Session: sess, Round: s.newRoundView(round), Result: result}, nil
}

func (s *service) Rounds(ctx context.Context, id uuid.UUID) ([]*RoundView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.mustSession(dbc, id); err != nil {
		return nil, err
	}
	rounds, err := s.rounds.ListBySession(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	out := make([]*RoundView, 0, len(rounds))
	for _, r := range rounds {
		out = append(out, s.newRoundView(r))
	}
	return out, nil
}

// Reset forgets which questions the session has seen. Score and history stay.
func (s *service) Reset(ctx context.Context, id uuid.UUID) error {
	if _, err := s.mustSession(dbctx.Context{Ctx: ctx}, id); err != nil {
		return err
	}
	if err := s.seen.Reset(ctx, id); err != nil {
		return fmt.Errorf("reset seen: %w", err)
	}
	s.log.Info("session history reset", "session_id", id)
	return nil
}

func (s *service) newRoundView(r *game.Round) *RoundView {
	v := &RoundView{Round: r}
	if r == nil || !r.Answered {
		return v
	}
	v.Answer = answer.SanitizeProvided(r.ProvidedAnswer)
	if len(r.Candidates) > 0 {
		if err := json.Unmarshal(r.Candidates, &v.Candidates); err != nil {
			v.Candidates = nil
			s.log.Warn("decode round candidates failed", "round_id", r.ID, "error", err)
		}
	}
	return v
}

func recordErr(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
