package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	eventmodel "ticketing-backend/internal/domains/event/model"
	"ticketing-backend/internal/domains/payment/model"
	"ticketing-backend/internal/domains/payment/service"
	"ticketing-backend/internal/shared"
	"ticketing-backend/internal/shared/middleware"
	"ticketing-backend/internal/shared/response"
	"ticketing-backend/pkg/logger"
)

// maxWebhookBody bounds webhook reads; Paystack bodies are small.
const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	engine  service.TransactionEngine
	webhook service.WebhookProcessor
}

func NewPaymentHandler(engine service.TransactionEngine, webhook service.WebhookProcessor) *PaymentHandler {
	return &PaymentHandler{engine: engine, webhook: webhook}
}

// Purchase handles POST /tickets/purchase.
func (h *PaymentHandler) Purchase(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Unauthorized(c, "Authentication required")
		return
	}

	var req model.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.UnprocessableEntity(c, "Validation failed", err)
		return
	}

	eventID, _ := uuid.Parse(req.EventID)
	tierID, _ := uuid.Parse(req.TierID)

	result, err := h.engine.Initiate(c.Request.Context(), service.InitiateInput{
		UserID:         actor.UserID,
		EventID:        eventID,
		TierID:         tierID,
		Quantity:       req.Quantity,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
		Meta: model.ClientMeta{
			IP:        middleware.GetClientIPFromContext(c.Request.Context()),
			UserAgent: c.Request.UserAgent(),
			Email:     actor.Email,
		},
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Verify handles POST /tickets/verify.
func (h *PaymentHandler) Verify(c *gin.Context) {
	if _, ok := middleware.ActorFromContext(c); !ok {
		response.Unauthorized(c, "Authentication required")
		return
	}

	var req model.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.UnprocessableEntity(c, "Validation failed", err)
		return
	}

	result, err := h.engine.VerifyAndComplete(c.Request.Context(), req.Reference)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Webhook handles POST /webhooks/paystack. The gateway retries
// non-2xx deliveries, so the endpoint always answers 200; the body
// reports what actually happened.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	rawBody, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		logger.Error("failed to read webhook body", err)
		c.JSON(http.StatusOK, model.WebhookResult{Success: false, Message: "Unreadable body"})
		return
	}

	result := h.webhook.Ingest(c.Request.Context(), rawBody, c.GetHeader("x-paystack-signature"))
	c.JSON(http.StatusOK, result)
}

// Retry handles POST /transactions/:id/retry.
func (h *PaymentHandler) Retry(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Unauthorized(c, "Authentication required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid transaction ID")
		return
	}

	txn, err := h.engine.GetTransaction(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if txn.UserID != actor.UserID && actor.Role != shared.RoleAdmin {
		response.Forbidden(c, "Access denied")
		return
	}

	result, err := h.engine.Retry(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Refund handles POST /transactions/:id/refund (admin only, enforced
// by the route group).
func (h *PaymentHandler) Refund(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Unauthorized(c, "Authentication required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid transaction ID")
		return
	}

	var req model.RefundRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.UnprocessableEntity(c, "Validation failed", err)
		return
	}

	txn, err := h.engine.Refund(c.Request.Context(), id, req.Amount, req.Reason, actor.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"transaction": txn})
}

// Get handles GET /transactions/:id.
func (h *PaymentHandler) Get(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Unauthorized(c, "Authentication required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid transaction ID")
		return
	}

	txn, err := h.engine.GetTransaction(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if txn.UserID != actor.UserID && actor.Role != shared.RoleAdmin {
		response.Forbidden(c, "Access denied")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"transaction": txn})
}

// List handles GET /transactions: the caller's own ledger.
func (h *PaymentHandler) List(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Unauthorized(c, "Authentication required")
		return
	}

	limit := queryInt(c, "limit", 20)
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}

	txns, err := h.engine.ListTransactions(c.Request.Context(), actor.UserID, c.Query("status"), limit, (page-1)*limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, gin.H{"transactions": txns}, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: len(txns),
	})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// respondError maps domain errors onto the HTTP surface.
func (h *PaymentHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrTransactionNotFound),
		errors.Is(err, model.ErrOrderNotFound),
		errors.Is(err, eventmodel.ErrEventNotFound),
		errors.Is(err, eventmodel.ErrTierNotFound):
		response.ErrorResponse(c, http.StatusNotFound, errCode(err), err.Error())

	case errors.Is(err, model.ErrInvalidQuantity),
		errors.Is(err, model.ErrTierLimit),
		errors.Is(err, model.ErrInsufficientAvailability),
		errors.Is(err, eventmodel.ErrEventNotPurchasable),
		errors.Is(err, eventmodel.ErrTierNotOnSale),
		errors.Is(err, model.ErrNotRefundable),
		errors.Is(err, model.ErrRefundExceedsNet),
		errors.Is(err, model.ErrRetryExhausted),
		errors.Is(err, model.ErrNotRetryable),
		errors.Is(err, model.ErrGatewayVerify):
		response.ErrorResponse(c, http.StatusBadRequest, errCode(err), err.Error())

	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrOversold):
		response.ErrorResponse(c, http.StatusConflict, errCode(err), err.Error())

	case errors.Is(err, model.ErrGatewayInit),
		errors.Is(err, model.ErrGatewayRefund):
		response.ErrorResponse(c, http.StatusBadGateway, errCode(err), err.Error())

	default:
		logger.Error("payment request failed", err)
		response.InternalServerError(c, "Internal server error")
	}
}

func errCode(err error) string {
	var pe *model.PaymentError
	if errors.As(err, &pe) {
		return pe.Code
	}
	if code := model.CodeForError(err); code != "" {
		return code
	}
	switch {
	case errors.Is(err, eventmodel.ErrEventNotFound):
		return eventmodel.ErrCodeEventNotFound
	case errors.Is(err, eventmodel.ErrEventNotPurchasable):
		return eventmodel.ErrCodeEventNotPurchasable
	case errors.Is(err, eventmodel.ErrTierNotFound):
		return eventmodel.ErrCodeTierNotFound
	case errors.Is(err, eventmodel.ErrTierNotOnSale):
		return eventmodel.ErrCodeTierNotOnSale
	}
	return "ERROR"
}
