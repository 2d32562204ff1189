package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/livrocaixa/backend/internal/application/ledger"
)

// CategoryHandler handles category-related API endpoints
type CategoryHandler struct {
	BaseHandler
	categoryService *ledgerapp.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *ledgerapp.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
	}
}

// Create godoc
// @Summary      Create a new category
// @Description  Create a transaction category. The kind limits which transaction kinds the category accepts.
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.CreateCategoryRequest true "Category creation request"
// @Success      201 {object} dto.Response{data=ledgerapp.CategoryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req ledgerapp.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, category)
}

// GetByID godoc
// @Summary      Get category by ID
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.CategoryResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /categories/{id} [get]
func (h *CategoryHandler) GetByID(c *gin.Context) {
	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid category ID format")
		return
	}

	category, err := h.categoryService.GetCategory(c.Request.Context(), categoryID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, category)
}

// List godoc
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Param        search query string false "Search by name"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{data=[]ledgerapp.CategoryResponse}
// @Security     BearerAuth
// @Router       /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	filter, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	categories, err := h.categoryService.ListCategories(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, categories)
}

// Update godoc
// @Summary      Rename a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Param        request body ledgerapp.UpdateCategoryRequest true "Category update request"
// @Success      200 {object} dto.Response{data=ledgerapp.CategoryResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid category ID format")
		return
	}

	var req ledgerapp.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	category, err := h.categoryService.UpdateCategory(c.Request.Context(), categoryID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, category)
}

// Delete godoc
// @Summary      Delete a category
// @Description  Delete a category. Rejected while transactions still reference it.
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Success      204 "No Content"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid category ID format")
		return
	}

	if err := h.categoryService.DeleteCategory(c.Request.Context(), categoryID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
