package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// Router builds the full route table. Everything below the auth block
// requires a valid token and a live session.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")

	r.HandleFunc("/auth/signup", h.Signup).Methods("POST")
	r.HandleFunc("/auth/signin", h.Signin).Methods("POST")
	r.HandleFunc("/auth/checkuser", h.CheckUser).Methods("POST")
	r.HandleFunc("/auth/checktoken", h.CheckToken).Methods("POST")
	r.HandleFunc("/auth/google", h.GoogleCallback).Methods("POST")
	r.HandleFunc("/auth/google", h.GoogleDirect).Methods("GET")

	protected := r.NewRoute().Subrouter()
	protected.Use(h.AuthMiddleware)

	protected.HandleFunc("/auth/checksignedin", h.CheckSignedIn).Methods("GET")
	protected.HandleFunc("/auth/signout", h.Signout).Methods("GET")

	protected.HandleFunc("/accounts", h.ListAccounts).Methods("GET")
	protected.HandleFunc("/accounts", h.CreateAccount).Methods("POST")
	protected.HandleFunc("/accounts/{id}", h.UpdateAccount).Methods("PUT")
	protected.HandleFunc("/accounts/{id}", h.DeleteAccount).Methods("DELETE")

	protected.HandleFunc("/categories", h.ListCategories).Methods("GET")
	protected.HandleFunc("/categories", h.CreateCategory).Methods("POST")
	protected.HandleFunc("/categories/{id}", h.UpdateCategory).Methods("PUT")
	protected.HandleFunc("/categories/{id}", h.DeleteCategory).Methods("DELETE")

	protected.HandleFunc("/expense", h.GetExpenses).Methods("GET")
	protected.HandleFunc("/expense", h.CreateExpense).Methods("POST")
	protected.HandleFunc("/expense/{id}", h.UpdateExpense).Methods("PUT")
	protected.HandleFunc("/expense/{id}", h.DeleteExpense).Methods("DELETE")

	protected.HandleFunc("/income", h.GetIncomes).Methods("GET")
	protected.HandleFunc("/income", h.CreateIncome).Methods("POST")
	protected.HandleFunc("/income/{id}", h.UpdateIncome).Methods("PUT")
	protected.HandleFunc("/income/{id}", h.DeleteIncome).Methods("DELETE")

	protected.HandleFunc("/statistics", h.Statistics).Methods("GET")

	return r
}
