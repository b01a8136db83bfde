package game

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Session is one player's run of tossups. Score and counters only move when a
// round is answered.
type Session struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// Filter applied to every draw in this session.
	Category   string `gorm:"column:category;type:text" json:"category,omitempty"`
	Difficulty int    `gorm:"column:difficulty;not null;default:0" json:"difficulty,omitempty"`

	Score          int `gorm:"column:score;not null;default:0" json:"score"`
	QuestionsAsked int `gorm:"column:questions_asked;not null;default:0" json:"questions_asked"`
	CorrectCount   int `gorm:"column:correct_count;not null;default:0" json:"correct_count"`
	RoundCount     int `gorm:"column:round_count;not null;default:0" json:"round_count"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Session) TableName() string { return "quiz_session" }

// Round is a single question put to a session and, once answered, its verdict.
type Round struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index:idx_round_session_seq,priority:1" json:"session_id"`
	Seq       int       `gorm:"column:seq;not null;index:idx_round_session_seq,priority:2" json:"seq"`

	QuestionID     string `gorm:"column:question_id;type:text;not null;index" json:"question_id"`
	QuestionText   string `gorm:"column:question_text;type:text;not null" json:"question"`
	ProvidedAnswer string `gorm:"column:provided_answer;type:text" json:"-"`
	Category       string `gorm:"column:category;type:text" json:"category,omitempty"`
	Subcategory    string `gorm:"column:subcategory;type:text" json:"subcategory,omitempty"`
	Difficulty     int    `gorm:"column:difficulty;not null;default:0" json:"difficulty,omitempty"`

	// Candidates is the resolved []answer.Candidate, kept for review screens.
	Candidates datatypes.JSON `gorm:"column:candidates" json:"-"`

	Answered      bool       `gorm:"column:answered;not null;default:false;index" json:"answered"`
	Transcript    string     `gorm:"column:transcript;type:text" json:"transcript,omitempty"`
	Correct       bool       `gorm:"column:correct;not null;default:false" json:"correct"`
	MatchedText   string     `gorm:"column:matched_text;type:text" json:"matched_text,omitempty"`
	MatchedTier   string     `gorm:"column:matched_tier;type:text" json:"matched_tier,omitempty"`
	Rule          string     `gorm:"column:rule;type:text" json:"rule,omitempty"`
	PointsAwarded int        `gorm:"column:points_awarded;not null;default:0" json:"points_awarded"`
	AnsweredAt    *time.Time `gorm:"column:answered_at" json:"answered_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Round) TableName() string { return "quiz_round" }

// RoundOutcome is what Submit writes back onto a round.
type RoundOutcome struct {
	Transcript    string
	Correct       bool
	MatchedText   string
	MatchedTier   string
	Rule          string
	PointsAwarded int
	AnsweredAt    time.Time
}
