package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	v1 "github.com/campusledger/campusledger/internal/api/v1"
	"github.com/campusledger/campusledger/internal/rest/middleware"
)

type Handlers struct {
	Fee     *v1.FeeHandler
	Invoice *v1.InvoiceHandler
	Payment *v1.PaymentHandler
	Gateway *v1.GatewayHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.TenantMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// provider callbacks live outside the versioned API surface
	router.POST("/webhooks/paystack", handlers.Gateway.HandleWebhook)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Fee catalog routes
	fees := router.Group("/fees")
	{
		fees.POST("", handlers.Fee.CreateFeeStructure)
		fees.GET("", handlers.Fee.ListFeeStructures)
		fees.GET("/:id", handlers.Fee.GetFeeStructure)
		fees.PUT("/:id", handlers.Fee.UpdateFeeStructure)
		fees.DELETE("/:id", handlers.Fee.DeleteFeeStructure)
		fees.GET("/:id/discounts", handlers.Fee.GetApplicableDiscounts)
	}

	discounts := router.Group("/discounts")
	{
		discounts.POST("", handlers.Fee.CreateDiscount)
		discounts.GET("", handlers.Fee.ListDiscounts)
		discounts.GET("/:id", handlers.Fee.GetDiscount)
		discounts.PUT("/:id", handlers.Fee.UpdateDiscount)
		discounts.DELETE("/:id", handlers.Fee.DeleteDiscount)
	}

	// Invoice routes
	invoices := router.Group("/invoices")
	{
		invoices.POST("", handlers.Invoice.CreateInvoice)
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.GET("/number/:number", handlers.Invoice.GetInvoiceByNumber)
		invoices.POST("/:id/items", handlers.Invoice.AddItem)
		invoices.POST("/:id/issue", handlers.Invoice.IssueInvoice)
		invoices.POST("/:id/cancel", handlers.Invoice.CancelInvoice)
		invoices.GET("/:id/latefee", handlers.Invoice.PreviewLateFee)
		invoices.POST("/:id/latefee", handlers.Invoice.ApplyLateFee)
		invoices.POST("/:id/markpaid", handlers.Invoice.MarkPaid)
	}

	// Payment routes
	payments := router.Group("/payments")
	{
		payments.POST("", handlers.Payment.CreatePayment)
		payments.GET("", handlers.Payment.ListPayments)
		payments.GET("/:id", handlers.Payment.GetPayment)
		payments.POST("/:id/complete", handlers.Payment.CompletePayment)
		payments.POST("/:id/fail", handlers.Payment.FailPayment)
		payments.POST("/:id/cancel", handlers.Payment.CancelPayment)
		payments.POST("/:id/refund", handlers.Payment.RefundPayment)
	}

	// Gateway routes
	gateway := router.Group("/gateway")
	{
		gateway.POST("/transactions", handlers.Gateway.InitializeTransaction)
		gateway.POST("/transactions/:reference/verify", handlers.Gateway.VerifyTransaction)
	}
}
