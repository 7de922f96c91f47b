package wallet

import (
	"net/http"
	"strconv"

	"github.com/vibex365/luna-heart-guide-sub005/internal/api"
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

// GetBalance godoc
// @Summary      Get minutes balance
// @Tags         wallet
// @Produce      json
// @Success      200 {object} Wallet
// @Failure      401 {object} api.ErrorResponse
// @Security     BearerAuth
// @Router       /wallet [get]
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	w, err := h.repo.GetOrCreate(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load wallet"})
		return
	}

	c.JSON(http.StatusOK, w)
}

// ListTransactions godoc
// @Summary      List ledger entries for the current user
// @Tags         wallet
// @Produce      json
// @Param        limit  query int false "Page size"  default(50)
// @Param        offset query int false "Page offset" default(0)
// @Success      200 {array} Transaction
// @Security     BearerAuth
// @Router       /wallet/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	txs, err := h.repo.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, txs)
}
