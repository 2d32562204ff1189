package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/livrocaixa/backend/internal/application/ledger"
)

// TransactionHandler handles transaction-related API endpoints
type TransactionHandler struct {
	BaseHandler
	transactionService *ledgerapp.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService *ledgerapp.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

// Create godoc
// @Summary      Record a transaction
// @Description  Records an income or expense and applies it to the account balance. Rejected when the transaction date falls into a sealed month.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.CreateTransactionRequest true "Transaction creation request"
// @Success      201 {object} dto.Response{data=ledgerapp.TransactionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	var req ledgerapp.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	transaction, err := h.transactionService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, transaction)
}

// GetByID godoc
// @Summary      Get transaction by ID
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.TransactionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /transactions/{id} [get]
func (h *TransactionHandler) GetByID(c *gin.Context) {
	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID format")
		return
	}

	transaction, err := h.transactionService.GetByID(c.Request.Context(), transactionID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, transaction)
}

// ListByAccount godoc
// @Summary      List transactions of an account
// @Description  Lists the account's transactions newest first. Archived history is excluded.
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{data=[]ledgerapp.TransactionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts/{id}/transactions [get]
func (h *TransactionHandler) ListByAccount(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	filter, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	transactions, err := h.transactionService.ListByAccount(c.Request.Context(), accountID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, transactions)
}

// Update godoc
// @Summary      Change a transaction
// @Description  Changes a transaction's category, description, amount, kind, or date. Both the old and new dates must be in open months; the balance delta is applied atomically.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Param        request body ledgerapp.UpdateTransactionRequest true "Transaction update request"
// @Success      200 {object} dto.Response{data=ledgerapp.TransactionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID format")
		return
	}

	var req ledgerapp.UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	transaction, err := h.transactionService.Update(c.Request.Context(), transactionID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, transaction)
}

// Delete godoc
// @Summary      Delete a transaction
// @Description  Deletes a transaction and reverses its effect on the account balance. Rejected when the transaction's month is sealed or the transaction settles an installment.
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      204 "No Content"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID format")
		return
	}

	if err := h.transactionService.Delete(c.Request.Context(), transactionID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
