package session

import (
	"encoding/json"
	"time"
)

const (
	TypeSolo   = "solo"
	TypePaired = "paired"

	StatusInitiated = "initiated"
	StatusEnded     = "ended"
	StatusAbandoned = "abandoned"
)

// Session brackets one metered use of the voice companion. Rows are
// never deleted; a session either ends normally via the client report
// or is moved to abandoned by the sweeper.
type Session struct {
	ID              string          `db:"id" json:"id"`
	UserID          int             `db:"user_id" json:"user_id"`
	Type            string          `db:"type" json:"type"`
	PairLinkID      *string         `db:"pair_link_id" json:"pair_link_id,omitempty"`
	Status          string          `db:"status" json:"status"`
	StartTime       time.Time       `db:"start_time" json:"start_time"`
	EndTime         *time.Time      `db:"end_time" json:"end_time,omitempty"`
	DurationSeconds *int            `db:"duration_seconds" json:"duration_seconds,omitempty"`
	MinutesBilled   *int            `db:"minutes_billed" json:"minutes_billed,omitempty"`
	CostCents       *int64          `db:"cost_cents" json:"cost_cents,omitempty"`
	InitialBalance  int             `db:"initial_balance" json:"initial_balance"`
	Transcript      *json.RawMessage `db:"transcript" json:"transcript,omitempty"`
}

func (s *Session) Terminal() bool {
	return s.Status == StatusEnded || s.Status == StatusAbandoned
}

type StartRequest struct {
	Type       string  `json:"type" binding:"required,oneof=solo paired"`
	PairLinkID *string `json:"pair_link_id,omitempty"`
}

type StartResult struct {
	SessionID      string `json:"session_id"`
	MinutesBalance int    `json:"minutes_balance"`
	DisplayName    string `json:"display_name"`
}

type EndRequest struct {
	DurationSeconds int             `json:"duration_seconds" binding:"min=0"`
	Transcript      json.RawMessage `json:"transcript,omitempty"`
}

type EndResult struct {
	MinutesBilled int `json:"minutes_billed"`
	NewBalance    int `json:"new_balance"`
}
