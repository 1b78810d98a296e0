package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
)

// StatsCategoryItem aggregates a category's entries for the statistics
// response.
type StatsCategoryItem struct {
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	CategoryType string          `json:"category_type"`
	ExpenseTotal decimal.Decimal `json:"expense_total"`
	IncomeTotal  decimal.Decimal `json:"income_total"`
	ExpenseCount int             `json:"expense_count"`
	IncomeCount  int             `json:"income_count"`
	// Share of the user's total expenses, in percent.
	ExpenseShare float64 `json:"expense_share"`
}

type statsResponse struct {
	TotalExpenses decimal.Decimal     `json:"total_expenses"`
	TotalIncome   decimal.Decimal     `json:"total_income"`
	Categories    []StatsCategoryItem `json:"categories"`
}

// Statistics returns per-category expense and income totals for the caller.
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	totals, err := h.db.CategoryTotals(GetUserID(r))
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	totalExpenses := decimal.Zero
	totalIncome := decimal.Zero
	for _, t := range totals {
		totalExpenses = totalExpenses.Add(t.ExpenseTotal)
		totalIncome = totalIncome.Add(t.IncomeTotal)
	}

	items := make([]StatsCategoryItem, 0, len(totals))
	for _, t := range totals {
		share := 0.0
		if !totalExpenses.IsZero() {
			share = t.ExpenseTotal.Div(totalExpenses).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		items = append(items, StatsCategoryItem{
			CategoryID:   t.Category.ID,
			CategoryName: t.Category.Name,
			CategoryType: t.Category.Type,
			ExpenseTotal: t.ExpenseTotal,
			IncomeTotal:  t.IncomeTotal,
			ExpenseCount: t.ExpenseCount,
			IncomeCount:  t.IncomeCount,
			ExpenseShare: share,
		})
	}

	h.respondJSON(w, http.StatusOK, statsResponse{
		TotalExpenses: totalExpenses,
		TotalIncome:   totalIncome,
		Categories:    items,
	})
}
