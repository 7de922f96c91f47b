package payments

import (
	"context"
	"strconv"

	"github.com/vibex365/luna-heart-guide-sub005/internal/catalog"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// StripeCheckout creates hosted Stripe Checkout sessions for minute
// packages. The wallet coordinates in cents, so prices map directly to
// Stripe's unit_amount.
type StripeCheckout struct {
	successURL string
	cancelURL  string
}

func NewStripeCheckout(secretKey, successURL, cancelURL string) *StripeCheckout {
	stripe.Key = secretKey
	return &StripeCheckout{
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func (s *StripeCheckout) CreateCheckout(ctx context.Context, userID int, pkg *catalog.Package) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(pkg.PriceCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(pkg.Name + " - " + strconv.Itoa(pkg.Minutes) + " minutes"),
						Description: stripe.String("Prepaid Luna voice minutes"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.Itoa(userID))
	params.AddMetadata("package_id", strconv.Itoa(pkg.ID))
	params.AddMetadata("minutes", strconv.Itoa(pkg.Minutes))

	sess, err := session.New(params)
	if err != nil {
		return "", err
	}

	return sess.URL, nil
}
