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

type SessionRepo interface {
	Create(dbc dbctx.Context, s *game.Session) (*game.Session, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*game.Session, error)
	NextSeq(dbc dbctx.Context, id uuid.UUID) (int, error)
	AddResult(dbc dbctx.Context, id uuid.UUID, correct bool, points int) error
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{
		db:  db,
		log: baseLog.With("repo", "SessionRepo"),
	}
}

func (r *sessionRepo) Create(dbc dbctx.Context, s *game.Session) (*game.Session, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if s == nil {
		return nil, errors.New("nil session")
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	if err := transaction.WithContext(dbc.Ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID returns nil, nil when the session does not exist.
func (r *sessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*game.Session, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var s game.Session
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

// NextSeq bumps the session's round counter and returns the new value.
// Returns gorm.ErrRecordNotFound when the session is gone.
func (r *sessionRepo) NextSeq(dbc dbctx.Context, id uuid.UUID) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var seq int
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		res := txx.Model(&game.Session{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"round_count": gorm.Expr("round_count + 1"),
				"updated_at":  time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return txx.Model(&game.Session{}).
			Where("id = ?", id).
			Pluck("round_count", &seq).Error
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *sessionRepo) AddResult(dbc dbctx.Context, id uuid.UUID, correct bool, points int) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	correctInc := 0
	if correct {
		correctInc = 1
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&game.Session{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"score":           gorm.Expr("score + ?", points),
			"questions_asked": gorm.Expr("questions_asked + 1"),
			"correct_count":   gorm.Expr("correct_count + ?", correctInc),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
