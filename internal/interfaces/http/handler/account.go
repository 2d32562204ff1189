package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/livrocaixa/backend/internal/application/ledger"
	"github.com/livrocaixa/backend/internal/interfaces/http/dto"
)

// AccountHandler handles account-related API endpoints
type AccountHandler struct {
	BaseHandler
	accountService *ledgerapp.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *ledgerapp.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// Create godoc
// @Summary      Create a new account
// @Description  Create a bookkeeping account. A non-zero opening balance is booked as the account's first income transaction.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.CreateAccountRequest true "Account creation request"
// @Success      201 {object} dto.Response{data=ledgerapp.AccountResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	var req ledgerapp.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, account)
}

// GetByID godoc
// @Summary      Get account by ID
// @Tags         accounts
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.AccountResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts/{id} [get]
func (h *AccountHandler) GetByID(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	account, err := h.accountService.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, account)
}

// List godoc
// @Summary      List accounts
// @Tags         accounts
// @Produce      json
// @Param        search query string false "Search by name"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{data=[]ledgerapp.AccountResponse}
// @Security     BearerAuth
// @Router       /accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	filter, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, accounts)
}

// Update godoc
// @Summary      Rename an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Param        request body ledgerapp.UpdateAccountRequest true "Account update request"
// @Success      200 {object} dto.Response{data=ledgerapp.AccountResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts/{id} [put]
func (h *AccountHandler) Update(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	var req ledgerapp.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	account, err := h.accountService.UpdateAccount(c.Request.Context(), accountID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, account)
}

// Delete godoc
// @Summary      Delete an account
// @Description  Deletes an account under an explicit history mode: REFUSE_IF_HISTORY rejects when transactions exist, ARCHIVE keeps history but hides the account, PURGE removes the account and its history.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Param        request body ledgerapp.DeleteAccountRequest true "Deletion mode"
// @Success      204 "No Content"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts/{id} [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	var req ledgerapp.DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.accountService.DeleteAccount(c.Request.Context(), accountID, req); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// RecomputeBalance godoc
// @Summary      Recompute an account balance from the ledger
// @Description  Rebuilds the stored balance from the last sealed closing plus every later transaction. Used as the repair path when the incremental balance is suspected to have drifted.
// @Tags         accounts
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.BalanceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts/{id}/balance/recompute [post]
func (h *AccountHandler) RecomputeBalance(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	balance, err := h.accountService.RecomputeBalance(c.Request.Context(), accountID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, balance)
}

// AuditBalance godoc
// @Summary      Audit an account balance
// @Description  Compares the stored balance against the ledger-derived balance without changing anything.
// @Tags         accounts
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.BalanceAudit}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts/{id}/balance/audit [get]
func (h *AccountHandler) AuditBalance(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	audit, err := h.accountService.AuditBalance(c.Request.Context(), accountID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, audit)
}

// Ensure dto import is used
var _ = dto.Response{}
