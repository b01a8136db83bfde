package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/tossup-backend/internal/data/repos/testutil"
	"github.com/yungbote/tossup-backend/internal/domain/game"
	"github.com/yungbote/tossup-backend/internal/platform/dbctx"
)

func TestSessionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewSessionRepo(db, testutil.Logger(t))

	created, err := repo.Create(dbc, &game.Session{Category: "geography", Difficulty: 2})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("Create: expected id to be assigned")
	}

	got, err := repo.GetByID(dbc, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Category != "geography" || got.Difficulty != 2 {
		t.Fatalf("GetByID: unexpected result: %+v", got)
	}

	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID (missing): got=%+v err=%v", missing, err)
	}

	for want := 1; want <= 3; want++ {
		seq, err := repo.NextSeq(dbc, created.ID)
		if err != nil {
			t.Fatalf("NextSeq: %v", err)
		}
		if seq != want {
			t.Fatalf("NextSeq: expected %d, got %d", want, seq)
		}
	}
	if _, err := repo.NextSeq(dbc, uuid.New()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("NextSeq (missing): expected ErrRecordNotFound, got %v", err)
	}

	if err := repo.AddResult(dbc, created.ID, true, 10); err != nil {
		t.Fatalf("AddResult: %v", err)
	}
	if err := repo.AddResult(dbc, created.ID, false, 0); err != nil {
		t.Fatalf("AddResult: %v", err)
	}
	got, err = repo.GetByID(dbc, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Score != 10 || got.QuestionsAsked != 2 || got.CorrectCount != 1 || got.RoundCount != 3 {
		t.Fatalf("AddResult: unexpected counters: %+v", got)
	}
}

func TestRoundRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewRoundRepo(db, testutil.Logger(t))

	s := testutil.SeedSession(t, ctx, tx, "")
	other := testutil.SeedSession(t, ctx, tx, "")
	second := testutil.SeedRound(t, ctx, tx, s.ID, 2)
	first := testutil.SeedRound(t, ctx, tx, s.ID, 1)
	testutil.SeedRound(t, ctx, tx, other.ID, 1)

	list, err := repo.ListBySession(dbc, s.ID)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("ListBySession: unexpected order: %+v", list)
	}

	if r, err := repo.GetByID(dbc, other.ID, first.ID); err != nil || r != nil {
		t.Fatalf("GetByID (wrong session): got=%+v err=%v", r, err)
	}

	answeredAt := time.Now().UTC().Truncate(time.Second)
	out := game.RoundOutcome{
		Transcript:    "sinai",
		Correct:       true,
		MatchedText:   "Sinai Peninsula",
		MatchedTier:   "authoritative",
		Rule:          "substring",
		PointsAwarded: 10,
		AnsweredAt:    answeredAt,
	}
	if err := repo.MarkAnswered(dbc, first.ID, out); err != nil {
		t.Fatalf("MarkAnswered: %v", err)
	}
	if err := repo.MarkAnswered(dbc, first.ID, out); !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("MarkAnswered (again): expected ErrAlreadyAnswered, got %v", err)
	}

	got, err := repo.GetByID(dbc, s.ID, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Answered || !got.Correct || got.Transcript != "sinai" || got.Rule != "substring" || got.PointsAwarded != 10 {
		t.Fatalf("GetByID: outcome not stored: %+v", got)
	}
	if got.AnsweredAt == nil || !got.AnsweredAt.Equal(answeredAt) {
		t.Fatalf("GetByID: answered_at=%v want %v", got.AnsweredAt, answeredAt)
	}
}

func TestRoundRepoMarkAnsweredOnce(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewRoundRepo(db, testutil.Logger(t))

	s := testutil.SeedSession(t, ctx, db, "")
	r := testutil.SeedRound(t, ctx, db, s.ID, 1)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.MarkAnswered(dbctx.Context{Ctx: ctx}, r.ID, game.RoundOutcome{Transcript: "x"})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrAlreadyAnswered) {
				t.Errorf("MarkAnswered: unexpected error %v", err)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one successful answer, got %d", wins)
	}
}
