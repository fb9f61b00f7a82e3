package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusledger/campusledger/internal/api/dto"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/service"
	"github.com/campusledger/campusledger/internal/types"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	ledgerService  service.LedgerService
	logger         *logger.Logger
}

func NewInvoiceHandler(invoiceService service.InvoiceService, ledgerService service.LedgerService, logger *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		ledgerService:  ledgerService,
		logger:         logger,
	}
}

// CreateInvoice godoc
// @Summary Create a draft invoice
// @Description Build a draft invoice for a student from fee structure line items
// @Tags Invoices
// @Accept json
// @Produce json
// @Param invoice body dto.CreateInvoiceRequest true "Invoice details"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).WithHint("Invalid request payload").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.invoiceService.CreateInvoice(c.Request.Context(), &req)
	if err != nil {
		h.logger.Errorw("failed to create invoice", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetInvoice godoc
// @Summary Get an invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	resp, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetInvoiceByNumber godoc
// @Summary Get an invoice by its human-readable number
// @Tags Invoices
// @Produce json
// @Param number path string true "Invoice number"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /invoices/number/{number} [get]
func (h *InvoiceHandler) GetInvoiceByNumber(c *gin.Context) {
	resp, err := h.invoiceService.GetInvoiceByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListInvoices godoc
// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param filter query types.InvoiceFilter false "Filter"
// @Success 200 {object} dto.ListInvoicesResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	var filter types.InvoiceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).WithHint("Invalid query parameters").Mark(ierr.ErrValidation))
		return
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}

	resp, err := h.invoiceService.ListInvoices(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AddItem godoc
// @Summary Add a line item to a draft invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param item body dto.AddInvoiceItemRequest true "Line item"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /invoices/{id}/items [post]
func (h *InvoiceHandler) AddItem(c *gin.Context) {
	var req dto.AddInvoiceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).WithHint("Invalid request payload").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.invoiceService.AddItem(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// IssueInvoice godoc
// @Summary Issue a draft invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /invoices/{id}/issue [post]
func (h *InvoiceHandler) IssueInvoice(c *gin.Context) {
	resp, err := h.invoiceService.IssueInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CancelInvoice godoc
// @Summary Cancel an invoice with no received payments
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /invoices/{id}/cancel [post]
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	resp, err := h.invoiceService.CancelInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PreviewLateFee godoc
// @Summary Preview the late fee an invoice would attract
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Param as_of query string false "Reference date (RFC 3339), defaults to now"
// @Success 200 {object} dto.LateFeePreviewResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /invoices/{id}/latefee [get]
func (h *InvoiceHandler) PreviewLateFee(c *gin.Context) {
	asOf, err := h.parseAsOf(c)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.ledgerService.CalculateLateFee(c.Request.Context(), c.Param("id"), asOf)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ApplyLateFee godoc
// @Summary Apply the accrued late fee to an invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Param as_of query string false "Reference date (RFC 3339), defaults to now"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /invoices/{id}/latefee [post]
func (h *InvoiceHandler) ApplyLateFee(c *gin.Context) {
	asOf, err := h.parseAsOf(c)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.ledgerService.ApplyLateFee(c.Request.Context(), c.Param("id"), asOf)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MarkPaid godoc
// @Summary Settle an invoice without a payment record
// @Description Administrative override for balances cleared outside the system
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /invoices/{id}/markpaid [post]
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	resp, err := h.ledgerService.MarkPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Errorw("failed to mark invoice paid", "error", err, "invoice_id", c.Param("id"))
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) parseAsOf(c *gin.Context) (time.Time, error) {
	raw := c.Query("as_of")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	asOf, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, ierr.WithError(err).
			WithHint("as_of must be an RFC 3339 timestamp").
			Mark(ierr.ErrValidation)
	}
	return asOf.UTC(), nil
}
