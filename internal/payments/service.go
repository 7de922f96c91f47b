package payments

import (
	"context"
	"errors"
	"strconv"

	"github.com/vibex365/luna-heart-guide-sub005/internal/catalog"
	"github.com/vibex365/luna-heart-guide-sub005/internal/logger"
	"github.com/vibex365/luna-heart-guide-sub005/internal/metrics"
	"github.com/vibex365/luna-heart-guide-sub005/internal/user"
	"github.com/vibex365/luna-heart-guide-sub005/internal/wallet"
)

var (
	ErrInvalidPackage = errors.New("package not found or inactive")
)

// CheckoutClient starts a hosted checkout for a minute package. The
// metadata must round-trip through the payment provider so the webhook
// can credit the right wallet.
type CheckoutClient interface {
	CreateCheckout(ctx context.Context, userID int, pkg *catalog.Package) (checkoutURL string, err error)
}

// Notifier is satisfied by the notify service; failures to queue a
// notification never fail a credit.
type Notifier interface {
	SendPurchaseCredited(ctx context.Context, email, name string, minutes, newBalance int) error
}

type CheckoutResult struct {
	CheckoutURL string `json:"checkout_url"`
}

type Service struct {
	packages catalog.Repository
	wallets  wallet.Repository
	users    user.Repository
	checkout CheckoutClient
	notifier Notifier
}

func NewService(packages catalog.Repository, wallets wallet.Repository, users user.Repository, checkout CheckoutClient, notifier Notifier) *Service {
	return &Service{
		packages: packages,
		wallets:  wallets,
		users:    users,
		checkout: checkout,
		notifier: notifier,
	}
}

// InitiateCheckout validates the package and hands off to the hosted
// checkout. No wallet state changes here; minutes are credited only by
// the confirmed-payment webhook.
func (s *Service) InitiateCheckout(ctx context.Context, userID, packageID int) (*CheckoutResult, error) {
	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		if errors.Is(err, catalog.ErrPackageNotFound) {
			return nil, ErrInvalidPackage
		}
		return nil, err
	}
	if !pkg.Active {
		return nil, ErrInvalidPackage
	}

	url, err := s.checkout.CreateCheckout(ctx, userID, pkg)
	if err != nil {
		logger.Errorf("Checkout creation failed: user=%d package=%d: %v", userID, packageID, err)
		return nil, err
	}

	logger.Infof("Checkout started: user=%d package=%s minutes=%d", userID, pkg.Name, pkg.Minutes)
	return &CheckoutResult{CheckoutURL: url}, nil
}

// ApplyPaymentConfirmed credits the purchased minutes using the
// provider's payment reference as the idempotency key. Replayed
// webhooks are acknowledged without a second credit; malformed
// metadata is logged and dropped so the provider stops retrying a
// payload that can never succeed.
func (s *Service) ApplyPaymentConfirmed(ctx context.Context, reference string, metadata map[string]string) error {
	userID, err := strconv.Atoi(metadata["user_id"])
	if err != nil || userID <= 0 {
		logger.Errorf("Webhook dropped: bad user_id in metadata, reference=%s", reference)
		metrics.RecordWebhookDropped("bad_metadata")
		return nil
	}
	minutes, err := strconv.Atoi(metadata["minutes"])
	if err != nil || minutes <= 0 {
		logger.Errorf("Webhook dropped: bad minutes in metadata, reference=%s", reference)
		metrics.RecordWebhookDropped("bad_metadata")
		return nil
	}

	w, err := s.wallets.Credit(ctx, userID, minutes, reference)
	if err != nil {
		if errors.Is(err, wallet.ErrDuplicateCredit) {
			logger.Infof("Webhook replay ignored: reference=%s already credited", reference)
			metrics.RecordDuplicateCredit()
			return nil
		}
		return err
	}

	metrics.RecordCreditApplied()
	logger.Infof("Purchase credited: user=%d minutes=%d balance=%d reference=%s", userID, minutes, w.MinutesBalance, reference)

	// Best effort; the credit stands whether or not the email queues.
	if u, err := s.users.FindByID(ctx, userID); err == nil {
		if err := s.notifier.SendPurchaseCredited(ctx, u.Email, u.Name, minutes, w.MinutesBalance); err != nil {
			logger.Errorf("Failed to queue purchase notification: user=%d: %v", userID, err)
		}
	}

	return nil
}
