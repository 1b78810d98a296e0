package handlers

import (
	"errors"
	"net/http"

	"expenseman/internal/models"
	"expenseman/internal/storage"

	"github.com/gorilla/mux"
)

type categoryRequest struct {
	Name        *string `json:"category_name"`
	Type        *string `json:"category_type"`
	Description *string `json:"category_desc"`
	Color       *string `json:"category_color"`
	Symbol      *string `json:"category_symbol"`
}

// ListCategories returns all categories owned by the caller.
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.db.ListCategories(GetUserID(r))
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, categories)
}

// CreateCategory creates a new category for the caller.
func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if req.Name == nil || *req.Name == "" {
		h.respondMessage(w, http.StatusBadRequest, "No category name was provided.")
		return
	}
	if req.Type == nil || *req.Type == "" {
		h.respondMessage(w, http.StatusBadRequest, "No category type was provided.")
		return
	}

	category := models.Category{
		OwnerID: GetUserID(r),
		Name:    *req.Name,
		Type:    *req.Type,
		Color:   "red",
		Symbol:  "Bank Symbol",
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if req.Color != nil && *req.Color != "" {
		category.Color = *req.Color
	}
	if req.Symbol != nil && *req.Symbol != "" {
		category.Symbol = *req.Symbol
	}

	if err := h.db.CreateCategory(&category); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "Category creation was successful")
}

// UpdateCategory partially updates one of the caller's categories.
func (h *Handlers) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	err := h.db.UpdateCategory(mux.Vars(r)["id"], GetUserID(r), storage.CategoryUpdate{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Color:       req.Color,
		Symbol:      req.Symbol,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.respondMessage(w, http.StatusNotFound, "No matching category was found for your user.")
			return
		}
		h.respondStoreError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "Category updated successfully")
}

// DeleteCategory deletes one of the caller's categories. Expenses and
// incomes keep their category reference; statistics skip them once the
// category is gone.
func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	err := h.db.DeleteCategory(mux.Vars(r)["id"], GetUserID(r))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.respondMessage(w, http.StatusNotFound, "No matching category was found for your user.")
			return
		}
		h.respondStoreError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "Category deleted successfully")
}
