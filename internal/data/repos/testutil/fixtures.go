package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/tossup-backend/internal/domain/game"
)

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, category string) *game.Session {
	tb.Helper()
	s := &game.Session{
		ID:       uuid.New(),
		Category: category,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedRound(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, seq int) *game.Round {
	tb.Helper()
	r := &game.Round{
		ID:             uuid.New(),
		SessionID:      sessionID,
		Seq:            seq,
		QuestionID:     uuid.NewString(),
		QuestionText:   "For 10 points, name this peninsula.",
		ProvidedAnswer: "Sinai Peninsula",
		Candidates:     datatypes.JSON([]byte("[]")),
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed round: %v", err)
	}
	return r
}
