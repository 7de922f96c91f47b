package session

import (
	"context"
	"encoding/json"
	"time"
)

type Repository interface {
	Create(ctx context.Context, userID int, sessionType string, pairLinkID *string, initialBalance int) (*Session, error)
	GetByID(ctx context.Context, id string) (*Session, error)
	MarkTerminal(ctx context.Context, id, status string, endTime time.Time, durationSeconds int) (bool, error)
	RecordBilling(ctx context.Context, id string, minutesBilled int, costCents int64) error
	SaveTranscript(ctx context.Context, id string, transcript json.RawMessage) error
	ListByUser(ctx context.Context, userID, limit, offset int) ([]Session, error)
	FindStale(ctx context.Context, olderThan time.Time, limit int) ([]Session, error)
}
