package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/vibex365/luna-heart-guide-sub005/internal/billing"
	"github.com/vibex365/luna-heart-guide-sub005/internal/logger"
	"github.com/vibex365/luna-heart-guide-sub005/internal/metrics"
	"github.com/vibex365/luna-heart-guide-sub005/internal/pairing"
	"github.com/vibex365/luna-heart-guide-sub005/internal/user"
	"github.com/vibex365/luna-heart-guide-sub005/internal/wallet"
)

var (
	ErrInsufficientMinutes = errors.New("insufficient minutes balance")
	ErrInvalidPairing      = errors.New("pair link missing, not accepted, or not yours")
	ErrForbidden           = errors.New("caller does not own this session")
	ErrSessionNotActive    = errors.New("session is not active")
)

// TokenIssuer requests a short-lived credential from the realtime
// voice provider.
type TokenIssuer interface {
	CreateEphemeralSession(ctx context.Context, displayName string) (json.RawMessage, error)
}

// Notifier is satisfied by the notify service; failures to queue a
// notification never fail a session settlement.
type Notifier interface {
	SendLowBalance(ctx context.Context, email, name string, minutesLeft int) error
}

// lowBalanceThreshold is the balance, in minutes, at or below which a
// top-up nudge is queued after a session ends.
const lowBalanceThreshold = 5

const (
	billingReadRetries = 5
	billingReadDelay   = 20 * time.Millisecond
)

type Service interface {
	Start(ctx context.Context, userID int, sessionType string, pairLinkID *string) (*StartResult, error)
	End(ctx context.Context, callerID int, sessionID string, durationSeconds int, transcript json.RawMessage) (*EndResult, error)
	IssueToken(ctx context.Context, callerID int, sessionID string) (json.RawMessage, error)
	History(ctx context.Context, userID int, limit, offset int) ([]Session, error)
}

type service struct {
	sessions   Repository
	walletRepo wallet.Repository
	userRepo   user.Repository
	pairRepo   pairing.Repository
	reconciler *billing.Reconciler
	issuer     TokenIssuer
	notifier   Notifier
}

func NewService(
	sessions Repository,
	walletRepo wallet.Repository,
	userRepo user.Repository,
	pairRepo pairing.Repository,
	reconciler *billing.Reconciler,
	issuer TokenIssuer,
	notifier Notifier,
) Service {
	return &service{
		sessions:   sessions,
		walletRepo: walletRepo,
		userRepo:   userRepo,
		pairRepo:   pairRepo,
		reconciler: reconciler,
		issuer:     issuer,
		notifier:   notifier,
	}
}

// Start gates session creation on the prepaid balance: no Session row
// is ever written for a user with less than one minute left.
func (s *service) Start(ctx context.Context, userID int, sessionType string, pairLinkID *string) (*StartResult, error) {
	if sessionType == TypePaired {
		if pairLinkID == nil {
			return nil, ErrInvalidPairing
		}
		link, err := s.pairRepo.GetByID(ctx, *pairLinkID)
		if err != nil {
			return nil, ErrInvalidPairing
		}
		if link.Status != pairing.StatusAccepted || !link.Participant(userID) {
			return nil, ErrInvalidPairing
		}
	}

	w, err := s.walletRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w.MinutesBalance < 1 {
		return nil, ErrInsufficientMinutes
	}

	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Create(ctx, userID, sessionType, pairLinkID, w.MinutesBalance)
	if err != nil {
		return nil, err
	}

	logger.Infof("Session started: id=%s user=%d type=%s balance=%d", sess.ID, userID, sessionType, w.MinutesBalance)
	metrics.RecordSessionStarted(sessionType)

	return &StartResult{
		SessionID:      sess.ID,
		MinutesBalance: w.MinutesBalance,
		DisplayName:    u.Name,
	}, nil
}

// End settles the session via the reconciler. It is idempotent: a
// second call on a terminal session returns the recorded billing
// outcome without touching the wallet again.
func (s *service) End(ctx context.Context, callerID int, sessionID string, durationSeconds int, transcript json.RawMessage) (*EndResult, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != callerID {
		return nil, ErrForbidden
	}

	if sess.Terminal() {
		return s.recordedResult(ctx, sess)
	}

	res, err := s.reconciler.Close(ctx, sess.UserID, sess.ID, StatusEnded, durationSeconds)
	if err != nil {
		if errors.Is(err, billing.ErrAlreadyClosed) {
			// Lost the close race; the winner's result stands.
			sess, err = s.sessions.GetByID(ctx, sessionID)
			if err != nil {
				return nil, err
			}
			return s.recordedResult(ctx, sess)
		}
		return nil, err
	}

	if err := s.sessions.SaveTranscript(ctx, sessionID, transcript); err != nil {
		logger.Errorf("Failed to save transcript for session %s: %v", sessionID, err)
	}

	if res.NewBalance <= lowBalanceThreshold {
		s.notifyLowBalance(ctx, sess.UserID, res.NewBalance)
	}

	return &EndResult{
		MinutesBilled: res.MinutesBilled,
		NewBalance:    res.NewBalance,
	}, nil
}

// notifyLowBalance is best effort; the settlement stands whether or
// not the nudge queues.
func (s *service) notifyLowBalance(ctx context.Context, userID, minutesLeft int) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		logger.Errorf("Failed to load user %d for low balance notification: %v", userID, err)
		return
	}
	if err := s.notifier.SendLowBalance(ctx, u.Email, u.Name, minutesLeft); err != nil {
		logger.Errorf("Failed to queue low balance notification: user=%d: %v", userID, err)
	}
}

// recordedResult reports the billing outcome already settled on a
// terminal session. The settling call commits its debit before it
// writes minutes_billed back to the session row, so a reader arriving
// inside that window sees a terminal row with nil billing; re-read a
// few times to let the in-flight settlement land.
func (s *service) recordedResult(ctx context.Context, sess *Session) (*EndResult, error) {
	for attempt := 0; sess.MinutesBilled == nil && attempt < billingReadRetries; attempt++ {
		time.Sleep(billingReadDelay)
		refreshed, err := s.sessions.GetByID(ctx, sess.ID)
		if err != nil {
			return nil, err
		}
		sess = refreshed
	}

	w, err := s.walletRepo.GetOrCreate(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	billed := 0
	if sess.MinutesBilled != nil {
		billed = *sess.MinutesBilled
	}

	return &EndResult{
		MinutesBilled: billed,
		NewBalance:    w.MinutesBalance,
	}, nil
}

// IssueToken hands the caller a short-lived provider credential for an
// already-started session. The payload is passed through verbatim and
// never stored.
func (s *service) IssueToken(ctx context.Context, callerID int, sessionID string) (json.RawMessage, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != callerID {
		return nil, ErrForbidden
	}
	if sess.Status != StatusInitiated {
		return nil, ErrSessionNotActive
	}

	u, err := s.userRepo.FindByID(ctx, callerID)
	if err != nil {
		return nil, err
	}

	return s.issuer.CreateEphemeralSession(ctx, u.Name)
}

func (s *service) History(ctx context.Context, userID, limit, offset int) ([]Session, error) {
	return s.sessions.ListByUser(ctx, userID, limit, offset)
}
