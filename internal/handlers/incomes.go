package handlers

import (
	"errors"
	"net/http"

	"expenseman/internal/models"
	"expenseman/internal/storage"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type incomeRequest struct {
	AccountID   *string          `json:"account_id"`
	CategoryID  *string          `json:"category_id"`
	Name        *string          `json:"income_name"`
	Value       *decimal.Decimal `json:"income_value"`
	Description *string          `json:"income_desc"`
	TargetDay   *int             `json:"income_target_day"`
}

// GetIncomes returns the caller's incomes, optionally narrowed by the
// income_id, account_id or category_id query parameter.
func (h *Handlers) GetIncomes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.EntryFilter{
		ID:         q.Get("income_id"),
		AccountID:  q.Get("account_id"),
		CategoryID: q.Get("category_id"),
	}

	incomes, err := h.db.ListIncomes(GetUserID(r), filter)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	if len(incomes) == 0 {
		switch {
		case filter.ID != "":
			h.respondMessage(w, http.StatusNotFound, "Specified income_id not found.")
			return
		case filter.AccountID != "":
			h.respondMessage(w, http.StatusNotFound, "No income for account found.")
			return
		case filter.CategoryID != "":
			h.respondMessage(w, http.StatusNotFound, "No income for category found.")
			return
		}
	}
	h.respondJSON(w, http.StatusOK, incomes)
}

// CreateIncome records a new income after checking that the referenced
// account and category both exist and belong to the caller.
func (h *Handlers) CreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	userID := GetUserID(r)
	if req.AccountID == nil || *req.AccountID == "" {
		h.respondMessage(w, http.StatusBadRequest, "No account ID was provided.")
		return
	}
	if req.Name == nil || *req.Name == "" {
		h.respondMessage(w, http.StatusBadRequest, "No income name was provided.")
		return
	}
	if req.Value == nil || req.Value.IsZero() {
		h.respondMessage(w, http.StatusBadRequest, "No income value was provided.")
		return
	}
	if req.CategoryID == nil || *req.CategoryID == "" {
		h.respondMessage(w, http.StatusBadRequest, "No income category ID was provided.")
		return
	}

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

	income := models.Income{
		OwnerID:    userID,
		AccountID:  account.ID,
		CategoryID: category.ID,
		Name:       *req.Name,
		Value:      *req.Value,
		TargetDay:  -1,
	}
	if req.Description != nil {
		income.Description = *req.Description
	}
	if req.TargetDay != nil {
		income.TargetDay = *req.TargetDay
	}

	if err := h.db.CreateIncome(&income); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "income creation was successful")
}

// UpdateIncome partially updates one of the caller's incomes.
func (h *Handlers) UpdateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	err := h.db.UpdateIncome(mux.Vars(r)["id"], GetUserID(r), storage.EntryUpdate{
		Name:        req.Name,
		Value:       req.Value,
		Description: req.Description,
		TargetDay:   req.TargetDay,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.respondMessage(w, http.StatusNotFound, "No matching income was found for your user.")
			return
		}
		h.respondStoreError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "income modified successfully")
}

// DeleteIncome deletes one of the caller's incomes.
func (h *Handlers) DeleteIncome(w http.ResponseWriter, r *http.Request) {
	err := h.db.DeleteIncome(mux.Vars(r)["id"], GetUserID(r))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.respondMessage(w, http.StatusNotFound, "No matching income was found for your user.")
			return
		}
		h.respondStoreError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "income deleted successfully")
}
