package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusledger/campusledger/internal/api/dto"
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/service"
)

// SignatureHeader carries the provider's HMAC over the raw webhook body
const SignatureHeader = "x-paystack-signature"

type GatewayHandler struct {
	service service.ReconcilerService
	logger  *logger.Logger
}

func NewGatewayHandler(service service.ReconcilerService, logger *logger.Logger) *GatewayHandler {
	return &GatewayHandler{service: service, logger: logger}
}

// InitializeTransaction godoc
// @Summary Open a hosted checkout session for an invoice
// @Tags Gateway
// @Accept json
// @Produce json
// @Param request body dto.InitializeGatewayRequest true "Checkout details"
// @Success 201 {object} dto.InitializeGatewayResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /gateway/transactions [post]
func (h *GatewayHandler) InitializeTransaction(c *gin.Context) {
	var req dto.InitializeGatewayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).WithHint("Invalid request payload").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.InitializeTransaction(c.Request.Context(), &req)
	if err != nil {
		h.logger.Errorw("failed to initialize gateway transaction", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// VerifyTransaction godoc
// @Summary Verify a gateway transaction against the provider
// @Tags Gateway
// @Produce json
// @Param reference path string true "Gateway reference"
// @Success 200 {object} dto.VerifyTransactionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /gateway/transactions/{reference}/verify [post]
func (h *GatewayHandler) VerifyTransaction(c *gin.Context) {
	resp, err := h.service.VerifyTransaction(c.Request.Context(), c.Param("reference"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleWebhook godoc
// @Summary Receive a provider webhook delivery
// @Description Validates the signature over the raw body, deduplicates the
// delivery and applies the reported charge outcome
// @Tags Gateway
// @Accept json
// @Produce json
// @Success 200 {object} dto.WebhookResultResponse
// @Failure 401 {object} ierr.ErrorResponse
// @Router /webhooks/paystack [post]
func (h *GatewayHandler) HandleWebhook(c *gin.Context) {
	// the signature covers the raw bytes, so read before any binding
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).WithHint("Failed to read webhook body").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.HandleWebhookEvent(c.Request.Context(), payload, c.GetHeader(SignatureHeader))
	if err != nil {
		h.logger.Errorw("failed to handle webhook event", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
