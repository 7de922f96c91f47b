package pairing

import "time"

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// PairLink connects two users for paired voice sessions. The inviter
// shares the code; once a partner accepts, either participant may start
// a paired session referencing the link.
type PairLink struct {
	ID         string     `db:"id" json:"id"`
	InviterID  int        `db:"inviter_id" json:"inviter_id"`
	InviteeID  *int       `db:"invitee_id" json:"invitee_id,omitempty"`
	Code       string     `db:"code" json:"code"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	AcceptedAt *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
}

// Participant reports whether the user is on either side of the link.
func (l *PairLink) Participant(userID int) bool {
	if l.InviterID == userID {
		return true
	}
	return l.InviteeID != nil && *l.InviteeID == userID
}
