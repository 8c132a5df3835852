package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ticketing-backend/internal/domains/ticket/model"
	"ticketing-backend/internal/domains/ticket/service"
	"ticketing-backend/internal/shared"
	"ticketing-backend/internal/shared/middleware"
	"ticketing-backend/internal/shared/response"
	"ticketing-backend/pkg/logger"
)

type TicketHandler struct {
	validator service.GateValidator
	tickets   service.TicketService
}

func NewTicketHandler(validator service.GateValidator, tickets service.TicketService) *TicketHandler {
	return &TicketHandler{validator: validator, tickets: tickets}
}

// scanStatusCode maps scan outcomes onto HTTP codes. The body always
// carries the full ScanResult so gate devices key off result.status,
// not the HTTP code.
func scanStatusCode(status string) int {
	switch status {
	case model.ScanValid:
		return http.StatusOK
	case model.ScanNotFound:
		return http.StatusNotFound
	case model.ScanNotAssigned:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// Scan handles POST /validate/scan.
func (h *TicketHandler) Scan(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Unauthorized(c, "Authentication required")
		return
	}

	var req model.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.UnprocessableEntity(c, "Validation failed", err)
		return
	}

	result, err := h.validator.Scan(c.Request.Context(), req, actor)
	if err != nil {
		logger.Error("scan failed", err)
		response.InternalServerError(c, "Failed to process scan")
		return
	}

	code := scanStatusCode(result.Status)
	c.JSON(code, response.Response{
		Success: result.Status == model.ScanValid,
		Data:    result,
	})
}

// ListMine handles GET /tickets/me.
func (h *TicketHandler) ListMine(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Unauthorized(c, "Authentication required")
		return
	}

	tickets, err := h.tickets.ListByUser(c.Request.Context(), actor.UserID)
	if err != nil {
		logger.Error("failed to list tickets", err)
		response.InternalServerError(c, "Failed to list tickets")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tickets": tickets, "count": len(tickets)})
}

// ListByOrder handles GET /orders/:id/tickets. Holders can only read
// their own orders; admins can read any.
func (h *TicketHandler) ListByOrder(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Unauthorized(c, "Authentication required")
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid order ID")
		return
	}

	tickets, err := h.tickets.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		logger.Error("failed to list order tickets", err)
		response.InternalServerError(c, "Failed to list tickets")
		return
	}

	for _, t := range tickets {
		if t.UserID != actor.UserID && actor.Role != shared.RoleAdmin {
			response.Forbidden(c, "Access denied")
			return
		}
	}

	response.Success(c, http.StatusOK, gin.H{"tickets": tickets, "count": len(tickets)})
}
