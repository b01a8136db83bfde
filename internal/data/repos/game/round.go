package game

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/tossup-backend/internal/domain/game"
	"github.com/yungbote/tossup-backend/internal/platform/dbctx"
	"github.com/yungbote/tossup-backend/internal/platform/logger"
)

// ErrAlreadyAnswered is returned by MarkAnswered when the round was answered
// by an earlier call.
var ErrAlreadyAnswered = errors.New("round already answered")

type RoundRepo interface {
	Create(dbc dbctx.Context, round *game.Round) (*game.Round, error)
	GetByID(dbc dbctx.Context, sessionID, roundID uuid.UUID) (*game.Round, error)
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*game.Round, error)
	MarkAnswered(dbc dbctx.Context, roundID uuid.UUID, out game.RoundOutcome) error
}

type roundRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoundRepo(db *gorm.DB, baseLog *logger.Logger) RoundRepo {
	return &roundRepo{
		db:  db,
		log: baseLog.With("repo", "RoundRepo"),
	}
}

func (r *roundRepo) Create(dbc dbctx.Context, round *game.Round) (*game.Round, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if round == nil {
		return nil, errors.New("nil round")
	}
	if round.ID == uuid.Nil {
		round.ID = uuid.New()
	}
	now := time.Now().UTC()
	if round.CreatedAt.IsZero() {
		round.CreatedAt = now
	}
	round.UpdatedAt = now
	if err := transaction.WithContext(dbc.Ctx).Create(round).Error; err != nil {
		return nil, err
	}
	return round, nil
}

// GetByID scopes the lookup to sessionID; nil, nil when absent.
func (r *roundRepo) GetByID(dbc dbctx.Context, sessionID, roundID uuid.UUID) (*game.Round, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil || roundID == uuid.Nil {
		return nil, nil
	}
	var round game.Round
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND session_id = ?", roundID, sessionID).
		Limit(1).
		Find(&round).Error; err != nil {
		return nil, err
	}
	if round.ID == uuid.Nil {
		return nil, nil
	}
	return &round, nil
}

func (r *roundRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*game.Round, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*game.Round{}
	if sessionID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkAnswered records the verdict only if the round is still open, so at
// most one caller ever succeeds.
func (r *roundRepo) MarkAnswered(dbc dbctx.Context, roundID uuid.UUID, out game.RoundOutcome) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	answeredAt := out.AnsweredAt
	if answeredAt.IsZero() {
		answeredAt = time.Now().UTC()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&game.Round{}).
		Where("id = ? AND answered = ?", roundID, false).
		Updates(map[string]any{
			"answered":       true,
			"transcript":     out.Transcript,
			"correct":        out.Correct,
			"matched_text":   out.MatchedText,
			"matched_tier":   out.MatchedTier,
			"rule":           out.Rule,
			"points_awarded": out.PointsAwarded,
			"answered_at":    answeredAt,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyAnswered
	}
	return nil
}
