package handlers

import (
	"errors"
	"net/http"

	"expenseman/internal/models"
	"expenseman/internal/storage"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type expenseRequest struct {
	AccountID   *string          `json:"account_id"`
	CategoryID  *string          `json:"category_id"`
	Name        *string          `json:"expense_name"`
	Value       *decimal.Decimal `json:"expense_value"`
	Description *string          `json:"expense_desc"`
	TargetDay   *int             `json:"expense_target_day"`
}

// GetExpenses returns the caller's expenses, optionally narrowed by the
// expense_id, account_id or category_id query parameter.
func (h *Handlers) GetExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.EntryFilter{
		ID:         q.Get("expense_id"),
		AccountID:  q.Get("account_id"),
		CategoryID: q.Get("category_id"),
	}

	expenses, err := h.db.ListExpenses(GetUserID(r), filter)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	if len(expenses) == 0 {
		switch {
		case filter.ID != "":
			h.respondMessage(w, http.StatusNotFound, "Specified expense_id not found.")
			return
		case filter.AccountID != "":
			h.respondMessage(w, http.StatusNotFound, "No expense for account found.")
			return
		case filter.CategoryID != "":
			h.respondMessage(w, http.StatusNotFound, "No expense for category found.")
			return
		}
	}
	h.respondJSON(w, http.StatusOK, expenses)
}

// CreateExpense records a new expense after checking that the referenced
// account and category both exist and belong to the caller.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	userID := GetUserID(r)
	if req.AccountID == nil || *req.AccountID == "" {
		h.respondMessage(w, http.StatusBadRequest, "No account ID was provided.")
		return
	}
	if req.Name == nil || *req.Name == "" {
		h.respondMessage(w, http.StatusBadRequest, "No expense name was provided.")
		return
	}
	if req.Value == nil || req.Value.IsZero() {
		h.respondMessage(w, http.StatusBadRequest, "No expense value was provided.")
		return
	}
	if req.CategoryID == nil || *req.CategoryID == "" {
		h.respondMessage(w, http.StatusBadRequest, "No expense category ID was provided.")
		return
	}

	// Referential checks use the compound id+owner filter, so a category
	// or account owned by someone else looks exactly like a missing one.
	category, err := h.db.GetCategory(*req.CategoryID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.respondMessage(w, http.StatusBadRequest, "No category with given category_id was found for your user.")
			return
		}
		h.respondStoreError(w, r, err)
		return
	}
	account, err := h.db.GetAccount(*req.AccountID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.respondMessage(w, http.StatusBadRequest, "No account with given account_id was found for your user.")
			return
		}
		h.respondStoreError(w, r, err)
		return
	}

	expense := models.Expense{
		OwnerID:    userID,
		AccountID:  account.ID,
		CategoryID: category.ID,
		Name:       *req.Name,
		Value:      *req.Value,
		TargetDay:  -1,
	}
	if req.Description != nil {
		expense.Description = *req.Description
	}
	if req.TargetDay != nil {
		expense.TargetDay = *req.TargetDay
	}

	if err := h.db.CreateExpense(&expense); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "expense creation was successful")
}

// UpdateExpense partially updates one of the caller's expenses.
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	err := h.db.UpdateExpense(mux.Vars(r)["id"], GetUserID(r), storage.EntryUpdate{
		Name:        req.Name,
		Value:       req.Value,
		Description: req.Description,
		TargetDay:   req.TargetDay,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.respondMessage(w, http.StatusNotFound, "No matching expense was found for your user.")
			return
		}
		h.respondStoreError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "expense modified successfully")
}

// DeleteExpense deletes one of the caller's expenses.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	err := h.db.DeleteExpense(mux.Vars(r)["id"], GetUserID(r))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.respondMessage(w, http.StatusNotFound, "No matching expense was found for your user.")
			return
		}
		h.respondStoreError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "expense deleted successfully")
}
