package payments

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/vibex365/luna-heart-guide-sub005/internal/api"
	"github.com/vibex365/luna-heart-guide-sub005/internal/auth"
	"github.com/vibex365/luna-heart-guide-sub005/internal/logger"
	"github.com/vibex365/luna-heart-guide-sub005/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const maxWebhookBody = 65536

type Handler struct {
	svc           *Service
	webhookSecret string
}

func NewHandler(svc *Service, webhookSecret string) *Handler {
	return &Handler{
		svc:           svc,
		webhookSecret: webhookSecret,
	}
}

// InitiateCheckout godoc
// @Summary      Start a hosted checkout for a minute package
// @Tags         payments
// @Produce      json
// @Param        packageID path int true "Package ID"
// @Success      200 {object} CheckoutResult
// @Failure      400 {object} api.ErrorResponse
// @Security     BearerAuth
// @Router       /packages/{packageID}/checkout [post]
func (h *Handler) InitiateCheckout(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	packageID, err := strconv.Atoi(c.Param("packageID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid package id"})
		return
	}

	result, err := h.svc.InitiateCheckout(c.Request.Context(), userID, packageID)
	if err != nil {
		if errors.Is(err, ErrInvalidPackage) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "package not found or no longer offered"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to start checkout"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// StripeWebhook receives payment events. Signature failures are
// rejected; everything past the signature check is acknowledged with
// 200 so Stripe does not retry events we have deliberately dropped.
func (h *Handler) StripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "failed to read body"})
		return
	}

	event, err := webhook.ConstructEvent(body, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		logger.Errorf("Webhook signature verification failed: %v", err)
		metrics.RecordWebhookDropped("bad_signature")
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid signature"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			logger.Errorf("Webhook dropped: malformed checkout session: %v", err)
			metrics.RecordWebhookDropped("bad_payload")
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}

		if err := h.svc.ApplyPaymentConfirmed(c.Request.Context(), sess.ID, sess.Metadata); err != nil {
			// Transient failure; let Stripe redeliver.
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to apply payment"})
			return
		}
	default:
		logger.Debugf("Ignoring webhook event type %s", event.Type)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
