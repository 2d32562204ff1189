package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/livrocaixa/backend/internal/application/ledger"
)

// ClosingHandler handles monthly closing API endpoints
type ClosingHandler struct {
	BaseHandler
	closingService *ledgerapp.ClosingService
}

// NewClosingHandler creates a new ClosingHandler
func NewClosingHandler(closingService *ledgerapp.ClosingService) *ClosingHandler {
	return &ClosingHandler{
		closingService: closingService,
	}
}

// Seal godoc
// @Summary      Seal a calendar month
// @Description  Closes one account month. A sealed month rejects any further transaction writes. Sealing the running month produces a partial closing, which is just as final: the same period can never be sealed twice.
// @Tags         closings
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.SealRequest true "Seal request"
// @Success      201 {object} dto.Response{data=ledgerapp.ClosingResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /closings [post]
func (h *ClosingHandler) Seal(c *gin.Context) {
	var req ledgerapp.SealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	closing, err := h.closingService.Seal(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, closing)
}

// GetByPeriod godoc
// @Summary      Get one sealed month
// @Tags         closings
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Param        year path int true "Year"
// @Param        month path int true "Month (1-12)"
// @Success      200 {object} dto.Response{data=ledgerapp.ClosingResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts/{id}/closings/{year}/{month} [get]
func (h *ClosingHandler) GetByPeriod(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		h.BadRequest(c, "Invalid year")
		return
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		h.BadRequest(c, "Invalid month")
		return
	}

	closing, err := h.closingService.GetClosing(c.Request.Context(), accountID, year, month)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, closing)
}

// ListByAccount godoc
// @Summary      List sealed months of an account
// @Tags         closings
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]ledgerapp.ClosingResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts/{id}/closings [get]
func (h *ClosingHandler) ListByAccount(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	closings, err := h.closingService.ListClosings(c.Request.Context(), accountID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, closings)
}
