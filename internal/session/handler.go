package session

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/vibex365/luna-heart-guide-sub005/internal/auth"
	"github.com/vibex365/luna-heart-guide-sub005/internal/voice"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Start godoc
// @Summary      Start a metered voice session
// @Description  Checks the prepaid balance and creates a session. Paired sessions require an accepted pair link.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        request body StartRequest true "Session type and optional pair link"
// @Success      201 {object} StartResult
// @Failure      400 {object} gin.H
// @Failure      402 {object} gin.H "Insufficient minutes; prompt a purchase"
// @Security     BearerAuth
// @Router       /sessions [post]
func (h *Handler) Start(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.Start(c.Request.Context(), userID, req.Type, req.PairLinkID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientMinutes):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient minutes", "code": "insufficient_minutes"})
		case errors.Is(err, ErrInvalidPairing):
			c.JSON(http.StatusBadRequest, gin.H{"error": "pair link missing, not accepted, or not yours"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start session"})
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

// End godoc
// @Summary      End a voice session and settle billing
// @Description  Idempotent: ending an already-terminal session returns the recorded result.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        sessionID path string true "Session ID"
// @Param        request body EndRequest true "Reported duration and optional transcript"
// @Success      200 {object} EndResult
// @Failure      403 {object} gin.H
// @Failure      404 {object} gin.H
// @Security     BearerAuth
// @Router       /sessions/{sessionID}/end [post]
func (h *Handler) End(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req EndRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.End(c.Request.Context(), userID, c.Param("sessionID"), req.DurationSeconds, req.Transcript)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "not your session"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to end session"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// IssueToken godoc
// @Summary      Issue an ephemeral voice provider credential
// @Description  Returns the provider payload verbatim; nothing is stored server-side.
// @Tags         sessions
// @Produce      json
// @Param        sessionID path string true "Session ID"
// @Success      200 {object} object
// @Failure      403 {object} gin.H
// @Failure      409 {object} gin.H
// @Failure      503 {object} gin.H
// @Security     BearerAuth
// @Router       /sessions/{sessionID}/token [post]
func (h *Handler) IssueToken(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	payload, err := h.svc.IssueToken(c.Request.Context(), userID, c.Param("sessionID"))
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "not your session"})
		case errors.Is(err, ErrSessionNotActive):
			c.JSON(http.StatusConflict, gin.H{"error": "session is not active"})
		case errors.Is(err, voice.ErrProviderUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "voice provider unavailable, try again"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		}
		return
	}

	c.Data(http.StatusOK, "application/json", payload)
}

// History godoc
// @Summary      List the current user's sessions
// @Tags         sessions
// @Produce      json
// @Param        limit  query int false "Page size"  default(50)
// @Param        offset query int false "Page offset" default(0)
// @Success      200 {array} Session
// @Security     BearerAuth
// @Router       /sessions [get]
func (h *Handler) History(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	sessions, err := h.svc.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sessions"})
		return
	}

	c.JSON(http.StatusOK, sessions)
}
