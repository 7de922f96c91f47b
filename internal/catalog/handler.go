package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/vibex365/luna-heart-guide-sub005/internal/api"
)

type Handler struct {
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{
		repo: NewRepository(db),
	}
}

type CreatePackageRequest struct {
	Name           string `json:"name" binding:"required"`
	Minutes        int    `json:"minutes" binding:"required,gt=0"`
	PriceCents     int64  `json:"price_cents" binding:"required,gt=0"`
	SavingsPercent int    `json:"savings_percent"`
	Popular        bool   `json:"popular"`
}

// ListPackages godoc
// @Summary      List purchasable minute packages
// @Tags         packages
// @Produce      json
// @Success      200 {array} Package
// @Security     BearerAuth
// @Router       /packages [get]
func (h *Handler) ListPackages(c *gin.Context) {
	pkgs, err := h.repo.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load packages"})
		return
	}

	c.JSON(http.StatusOK, pkgs)
}

// CreatePackage godoc
// @Summary      Create a minute package
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body CreatePackageRequest true "Package definition"
// @Success      201 {object} Package
// @Failure      400 {object} api.ErrorResponse
// @Security     BearerAuth
// @Router       /admin/packages [post]
func (h *Handler) CreatePackage(c *gin.Context) {
	var req CreatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	p, err := h.repo.Create(c.Request.Context(), req.Name, req.Minutes, req.PriceCents, req.SavingsPercent, req.Popular)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to create package"})
		return
	}

	c.JSON(http.StatusCreated, p)
}

// DeactivatePackage godoc
// @Summary      Deactivate a minute package
// @Tags         admin
// @Produce      json
// @Param        packageID path int true "Package ID"
// @Success      200 {object} api.MessageResponse
// @Failure      404 {object} api.ErrorResponse
// @Security     BearerAuth
// @Router       /admin/packages/{packageID}/deactivate [post]
func (h *Handler) DeactivatePackage(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("packageID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid package id"})
		return
	}

	if err := h.repo.Deactivate(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrPackageNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "package not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to deactivate package"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "package deactivated"})
}
