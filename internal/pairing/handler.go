package pairing

import (
	"errors"
	"net/http"

	"github.com/vibex365/luna-heart-guide-sub005/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{
		repo: NewRepository(db),
	}
}

type AcceptRequest struct {
	Code string `json:"code" binding:"required"`
}

// CreateLink godoc
// @Summary      Create a pair link to invite a partner
// @Tags         pairing
// @Produce      json
// @Success      201 {object} PairLink
// @Security     BearerAuth
// @Router       /pair-links [post]
func (h *Handler) CreateLink(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	link, err := h.repo.Create(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create pair link"})
		return
	}

	c.JSON(http.StatusCreated, link)
}

// AcceptLink godoc
// @Summary      Accept a partner's pair link by code
// @Tags         pairing
// @Accept       json
// @Produce      json
// @Param        request body AcceptRequest true "Invite code"
// @Success      200 {object} PairLink
// @Failure      404 {object} gin.H
// @Security     BearerAuth
// @Router       /pair-links/accept [post]
func (h *Handler) AcceptLink(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, err := h.repo.Accept(c.Request.Context(), req.Code, userID)
	if err != nil {
		if errors.Is(err, ErrLinkUnavailable) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invite code not found or already used"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to accept pair link"})
		return
	}

	c.JSON(http.StatusOK, link)
}

// ListMine godoc
// @Summary      List the current user's pair links
// @Tags         pairing
// @Produce      json
// @Success      200 {array} PairLink
// @Security     BearerAuth
// @Router       /pair-links [get]
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	links, err := h.repo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load pair links"})
		return
	}

	c.JSON(http.StatusOK, links)
}
