package handlers

import (
	"errors"
	"net/http"

	"expenseman/internal/models"
	"expenseman/internal/storage"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type accountRequest struct {
	Name        *string          `json:"account_name"`
	Currency    *string          `json:"account_currency"`
	Description *string          `json:"account_desc"`
	Balance     *decimal.Decimal `json:"account_balance"`
}

// ListAccounts returns all accounts owned by the caller.
func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.db.ListAccounts(GetUserID(r))
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, accounts)
}

// CreateAccount creates a new account for the caller, up to the configured
// per-user limit.
func (h *Handlers) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if req.Name == nil || *req.Name == "" {
		h.respondMessage(w, http.StatusBadRequest, "No account name was provided.")
		return
	}

	account := models.Account{
		OwnerID:  GetUserID(r),
		Name:     *req.Name,
		Currency: h.cfg.DefaultCurrency,
	}
	if req.Currency != nil && *req.Currency != "" {
		account.Currency = *req.Currency
	}
	if req.Description != nil {
		account.Description = *req.Description
	}
	if req.Balance != nil {
		account.Balance = *req.Balance
	}

	if err := h.db.CreateAccount(&account, h.cfg.AccountLimit); err != nil {
		if errors.Is(err, storage.ErrAccountLimit) {
			h.respondMessage(w, http.StatusConflict, "Account limit reached!")
			return
		}
		h.respondStoreError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "Account creation was successful")
}

// UpdateAccount partially updates one of the caller's accounts.
func (h *Handlers) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	err := h.db.UpdateAccount(mux.Vars(r)["id"], GetUserID(r), storage.AccountUpdate{
		Name:        req.Name,
		Currency:    req.Currency,
		Description: req.Description,
		Balance:     req.Balance,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.respondMessage(w, http.StatusNotFound, "No matching account was found for your user.")
			return
		}
		h.respondStoreError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "Account modified successfully")
}

// DeleteAccount deletes one of the caller's accounts along with every
// expense and income recorded against it.
func (h *Handlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	err := h.db.DeleteAccount(mux.Vars(r)["id"], GetUserID(r))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.respondMessage(w, http.StatusNotFound, "No matching account was found for your user.")
			return
		}
		h.respondStoreError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "Account deleted successfully")
}
