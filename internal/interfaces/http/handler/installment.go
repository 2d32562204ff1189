package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/livrocaixa/backend/internal/application/ledger"
)

// InstallmentHandler handles installment plan API endpoints
type InstallmentHandler struct {
	BaseHandler
	installmentService *ledgerapp.InstallmentService
}

// NewInstallmentHandler creates a new InstallmentHandler
func NewInstallmentHandler(installmentService *ledgerapp.InstallmentService) *InstallmentHandler {
	return &InstallmentHandler{
		installmentService: installmentService,
	}
}

// CreatePlan godoc
// @Summary      Create an installment plan
// @Description  Records a plan that will expand into a fixed number of future installments. Creation does not generate the installments; call generate for that.
// @Tags         installments
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.CreatePlanRequest true "Plan creation request"
// @Success      201 {object} dto.Response{data=ledgerapp.PlanResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /installment-plans [post]
func (h *InstallmentHandler) CreatePlan(c *gin.Context) {
	var req ledgerapp.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	plan, err := h.installmentService.CreatePlan(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, plan)
}

// Generate godoc
// @Summary      Expand a plan into its installments
// @Description  Splits the plan total across the installment count, assigns due dates from the recurrence and due-day anchor, and pushes any rounding remainder onto the last installment. A plan generates exactly once.
// @Tags         installments
// @Produce      json
// @Param        id path string true "Plan ID" format(uuid)
// @Success      201 {object} dto.Response{data=[]ledgerapp.InstallmentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /installment-plans/{id}/generate [post]
func (h *InstallmentHandler) Generate(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid plan ID format")
		return
	}

	installments, err := h.installmentService.Generate(c.Request.Context(), planID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, installments)
}

// GetPlan godoc
// @Summary      Get plan by ID
// @Tags         installments
// @Produce      json
// @Param        id path string true "Plan ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.PlanResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /installment-plans/{id} [get]
func (h *InstallmentHandler) GetPlan(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid plan ID format")
		return
	}

	plan, err := h.installmentService.GetPlan(c.Request.Context(), planID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, plan)
}

// ListPlans godoc
// @Summary      List installment plans
// @Tags         installments
// @Produce      json
// @Param        search query string false "Search by description"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{data=[]ledgerapp.PlanResponse}
// @Security     BearerAuth
// @Router       /installment-plans [get]
func (h *InstallmentHandler) ListPlans(c *gin.Context) {
	filter, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	plans, err := h.installmentService.ListPlans(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, plans)
}

// ListInstallments godoc
// @Summary      List a plan's installments in sequence order
// @Tags         installments
// @Produce      json
// @Param        id path string true "Plan ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]ledgerapp.InstallmentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /installment-plans/{id}/installments [get]
func (h *InstallmentHandler) ListInstallments(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid plan ID format")
		return
	}

	installments, err := h.installmentService.ListInstallments(c.Request.Context(), planID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, installments)
}

// Progress godoc
// @Summary      Get settlement progress of a plan
// @Tags         installments
// @Produce      json
// @Param        id path string true "Plan ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.PlanProgress}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /installment-plans/{id}/progress [get]
func (h *InstallmentHandler) Progress(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid plan ID format")
		return
	}

	progress, err := h.installmentService.Progress(c.Request.Context(), planID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, progress)
}

// DeletePlan godoc
// @Summary      Delete an installment plan
// @Description  Deletes a plan and its unpaid installments. Rejected once any installment has been settled.
// @Tags         installments
// @Produce      json
// @Param        id path string true "Plan ID" format(uuid)
// @Success      204 "No Content"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /installment-plans/{id} [delete]
func (h *InstallmentHandler) DeletePlan(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid plan ID format")
		return
	}

	if err := h.installmentService.DeletePlan(c.Request.Context(), planID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Settle godoc
// @Summary      Settle an installment
// @Description  Confirms payment of an installment and books the matching ledger transaction. Omitting the amount settles in full; a smaller amount records a partial payment and splits the remainder into a new unpaid installment.
// @Tags         installments
// @Accept       json
// @Produce      json
// @Param        id path string true "Installment ID" format(uuid)
// @Param        request body ledgerapp.SettleRequest true "Settle request"
// @Success      200 {object} dto.Response{data=ledgerapp.InstallmentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /installments/{id}/settle [post]
func (h *InstallmentHandler) Settle(c *gin.Context) {
	installmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid installment ID format")
		return
	}

	var req ledgerapp.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	installment, err := h.installmentService.Settle(c.Request.Context(), installmentID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, installment)
}

// Unsettle godoc
// @Summary      Reverse an installment settlement
// @Description  Marks a settled installment unpaid again and removes its ledger transaction. Rejected when the settlement transaction falls in a sealed month.
// @Tags         installments
// @Produce      json
// @Param        id path string true "Installment ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.InstallmentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /installments/{id}/unsettle [post]
func (h *InstallmentHandler) Unsettle(c *gin.Context) {
	installmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid installment ID format")
		return
	}

	installment, err := h.installmentService.Unsettle(c.Request.Context(), installmentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, installment)
}
