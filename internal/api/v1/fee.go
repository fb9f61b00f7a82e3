package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusledger/campusledger/internal/api/dto"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/service"
	"github.com/campusledger/campusledger/internal/types"
)

type FeeHandler struct {
	service service.FeeCatalogService
	logger  *logger.Logger
}

func NewFeeHandler(service service.FeeCatalogService, logger *logger.Logger) *FeeHandler {
	return &FeeHandler{service: service, logger: logger}
}

// CreateFeeStructure godoc
// @Summary Create a fee structure
// @Description Define a billable fee for an academic session
// @Tags Fees
// @Accept json
// @Produce json
// @Param fee body dto.CreateFeeStructureRequest true "Fee structure details"
// @Success 201 {object} dto.FeeStructureResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /fees [post]
func (h *FeeHandler) CreateFeeStructure(c *gin.Context) {
	var req dto.CreateFeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).WithHint("Invalid request payload").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateFeeStructure(c.Request.Context(), &req)
	if err != nil {
		h.logger.Errorw("failed to create fee structure", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetFeeStructure godoc
// @Summary Get a fee structure
// @Tags Fees
// @Produce json
// @Param id path string true "Fee structure ID"
// @Success 200 {object} dto.FeeStructureResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /fees/{id} [get]
func (h *FeeHandler) GetFeeStructure(c *gin.Context) {
	resp, err := h.service.GetFeeStructure(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListFeeStructures godoc
// @Summary List fee structures
// @Tags Fees
// @Produce json
// @Param filter query types.FeeStructureFilter false "Filter"
// @Success 200 {object} dto.ListFeeStructuresResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /fees [get]
func (h *FeeHandler) ListFeeStructures(c *gin.Context) {
	var filter types.FeeStructureFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).WithHint("Invalid query parameters").Mark(ierr.ErrValidation))
		return
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}

	resp, err := h.service.ListFeeStructures(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateFeeStructure godoc
// @Summary Update a fee structure
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Fee structure ID"
// @Param fee body dto.UpdateFeeStructureRequest true "Fields to update"
// @Success 200 {object} dto.FeeStructureResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /fees/{id} [put]
func (h *FeeHandler) UpdateFeeStructure(c *gin.Context) {
	var req dto.UpdateFeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).WithHint("Invalid request payload").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdateFeeStructure(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteFeeStructure godoc
// @Summary Delete a fee structure
// @Tags Fees
// @Param id path string true "Fee structure ID"
// @Success 204
// @Failure 404 {object} ierr.ErrorResponse
// @Router /fees/{id} [delete]
func (h *FeeHandler) DeleteFeeStructure(c *gin.Context) {
	if err := h.service.DeleteFeeStructure(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetApplicableDiscounts godoc
// @Summary List discounts applicable to a fee structure today
// @Tags Fees
// @Produce json
// @Param id path string true "Fee structure ID"
// @Success 200 {array} dto.DiscountResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /fees/{id}/discounts [get]
func (h *FeeHandler) GetApplicableDiscounts(c *gin.Context) {
	resp, err := h.service.GetApplicableDiscounts(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreateDiscount godoc
// @Summary Create a discount
// @Tags Discounts
// @Accept json
// @Produce json
// @Param discount body dto.CreateDiscountRequest true "Discount details"
// @Success 201 {object} dto.DiscountResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /discounts [post]
func (h *FeeHandler) CreateDiscount(c *gin.Context) {
	var req dto.CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).WithHint("Invalid request payload").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateDiscount(c.Request.Context(), &req)
	if err != nil {
		h.logger.Errorw("failed to create discount", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetDiscount godoc
// @Summary Get a discount
// @Tags Discounts
// @Produce json
// @Param id path string true "Discount ID"
// @Success 200 {object} dto.DiscountResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /discounts/{id} [get]
func (h *FeeHandler) GetDiscount(c *gin.Context) {
	resp, err := h.service.GetDiscount(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListDiscounts godoc
// @Summary List discounts
// @Tags Discounts
// @Produce json
// @Param filter query types.DiscountFilter false "Filter"
// @Success 200 {object} dto.ListDiscountsResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /discounts [get]
func (h *FeeHandler) ListDiscounts(c *gin.Context) {
	var filter types.DiscountFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).WithHint("Invalid query parameters").Mark(ierr.ErrValidation))
		return
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}

	resp, err := h.service.ListDiscounts(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateDiscount godoc
// @Summary Update a discount
// @Tags Discounts
// @Accept json
// @Produce json
// @Param id path string true "Discount ID"
// @Param discount body dto.UpdateDiscountRequest true "Fields to update"
// @Success 200 {object} dto.DiscountResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /discounts/{id} [put]
func (h *FeeHandler) UpdateDiscount(c *gin.Context) {
	var req dto.UpdateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).WithHint("Invalid request payload").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdateDiscount(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteDiscount godoc
// @Summary Delete a discount
// @Tags Discounts
// @Param id path string true "Discount ID"
// @Success 204
// @Failure 404 {object} ierr.ErrorResponse
// @Router /discounts/{id} [delete]
func (h *FeeHandler) DeleteDiscount(c *gin.Context) {
	if err := h.service.DeleteDiscount(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
