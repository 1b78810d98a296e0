package handlers

import (
	"encoding/json"
	"net/http"

	"expenseman/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createAccount creates an account via the API and returns its id.
func (suite *HandlersTestSuite) createAccount(token, name string) string {
	w := suite.do("POST", "/accounts", token, map[string]any{"account_name": name})
	require.Equal(suite.T(), http.StatusOK, w.Code, "account creation failed: %s", w.Body.String())

	w = suite.do("GET", "/accounts", token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var accounts []map[string]any
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &accounts))
	for _, a := range accounts {
		if a["account_name"] == name {
			return a["_id"].(string)
		}
	}
	suite.T().Fatalf("created account %q not found in listing", name)
	return ""
}

// createCategory creates a category via the API and returns its id.
func (suite *HandlersTestSuite) createCategory(token, name, typ string) string {
	w := suite.do("POST", "/categories", token, map[string]any{"category_name": name, "category_type": typ})
	require.Equal(suite.T(), http.StatusOK, w.Code, "category creation failed: %s", w.Body.String())

	w = suite.do("GET", "/categories", token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var categories []map[string]any
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &categories))
	for _, c := range categories {
		if c["category_name"] == name {
			return c["_id"].(string)
		}
	}
	suite.T().Fatalf("created category %q not found in listing", name)
	return ""
}

func (suite *HandlersTestSuite) TestCreateAccountValidation() {
	_, token := suite.signup("a@x.com", "pw")

	w := suite.do("POST", "/accounts", token, map[string]any{"account_desc": "no name"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "No account name was provided.", suite.decode(w)["message"])
}

func (suite *HandlersTestSuite) TestAccountDefaults() {
	_, token := suite.signup("a@x.com", "pw")
	id := suite.createAccount(token, "Checking")

	account, err := suite.db.GetAccount(id, mustUserID(suite, "a@x.com"))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "$", account.Currency, "default currency from config")
	assert.True(suite.T(), account.Balance.IsZero())
}

func (suite *HandlersTestSuite) TestAccountLimitConflict() {
	_, token := suite.signup("a@x.com", "pw")

	// Config allows 3 accounts in the test suite.
	suite.createAccount(token, "One")
	suite.createAccount(token, "Two")
	suite.createAccount(token, "Three")

	w := suite.do("POST", "/accounts", token, map[string]any{"account_name": "Four"})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "Account limit reached!", suite.decode(w)["message"])

	w = suite.do("GET", "/accounts", token, nil)
	var accounts []map[string]any
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &accounts))
	assert.Len(suite.T(), accounts, 3, "no account persisted past the limit")
}

func (suite *HandlersTestSuite) TestUpdateAccount() {
	_, token := suite.signup("a@x.com", "pw")
	id := suite.createAccount(token, "Checking")

	w := suite.do("PUT", "/accounts/"+id, token, map[string]any{"account_name": "Renamed"})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "Account modified successfully", suite.decode(w)["message"])

	w = suite.do("PUT", "/accounts/nonexistent", token, map[string]any{"account_name": "X"})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestCrossUserDeleteIsNotFound() {
	_, tokenA := suite.signup("a@x.com", "pw")
	_, tokenB := suite.signup("b@x.com", "pw")
	accountA := suite.createAccount(tokenA, "Checking")

	// B cannot tell A's account from a missing one.
	w := suite.do("DELETE", "/accounts/"+accountA, tokenB, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	// A's account is untouched.
	w = suite.do("GET", "/accounts", tokenA, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var accounts []map[string]any
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &accounts))
	require.Len(suite.T(), accounts, 1)
	assert.Equal(suite.T(), accountA, accounts[0]["_id"])
}

func (suite *HandlersTestSuite) TestDeleteAccountCascades() {
	_, token := suite.signup("a@x.com", "pw")
	account := suite.createAccount(token, "Checking")
	category := suite.createCategory(token, "Food", "Expenses")

	w := suite.do("POST", "/expense", token, map[string]any{
		"account_id":    account,
		"category_id":   category,
		"expense_name":  "Lunch",
		"expense_value": 12.5,
	})
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())

	w = suite.do("DELETE", "/accounts/"+account, token, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "Account deleted successfully", suite.decode(w)["message"])

	w = suite.do("GET", "/expense", token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var expenses []map[string]any
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &expenses))
	assert.Empty(suite.T(), expenses)
}

func (suite *HandlersTestSuite) TestCategoryValidation() {
	_, token := suite.signup("a@x.com", "pw")

	w := suite.do("POST", "/categories", token, map[string]any{"category_type": "Expenses"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "No category name was provided.", suite.decode(w)["message"])

	w = suite.do("POST", "/categories", token, map[string]any{"category_name": "Food"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "No category type was provided.", suite.decode(w)["message"])
}

func (suite *HandlersTestSuite) TestCategoryDefaults() {
	_, token := suite.signup("a@x.com", "pw")
	id := suite.createCategory(token, "Food", "Expenses")

	category, err := suite.db.GetCategory(id, mustUserID(suite, "a@x.com"))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "red", category.Color)
	assert.Equal(suite.T(), "Bank Symbol", category.Symbol)
}

func (suite *HandlersTestSuite) TestCreateExpenseValidation() {
	_, token := suite.signup("a@x.com", "pw")
	account := suite.createAccount(token, "Checking")
	category := suite.createCategory(token, "Food", "Expenses")

	cases := []struct {
		name string
		body map[string]any
		want string
	}{
		{"missing account", map[string]any{"category_id": category, "expense_name": "X", "expense_value": 1}, "No account ID was provided."},
		{"missing name", map[string]any{"account_id": account, "category_id": category, "expense_value": 1}, "No expense name was provided."},
		{"missing value", map[string]any{"account_id": account, "category_id": category, "expense_name": "X"}, "No expense value was provided."},
		{"missing category", map[string]any{"account_id": account, "expense_name": "X", "expense_value": 1}, "No expense category ID was provided."},
	}
	for _, tc := range cases {
		w := suite.do("POST", "/expense", token, tc.body)
		assert.Equal(suite.T(), http.StatusBadRequest, w.Code, tc.name)
		assert.Equal(suite.T(), tc.want, suite.decode(w)["message"], tc.name)
	}
}

func (suite *HandlersTestSuite) TestCreateExpenseUnknownCategory() {
	_, token := suite.signup("a@x.com", "pw")
	account := suite.createAccount(token, "Checking")

	w := suite.do("POST", "/expense", token, map[string]any{
		"account_id":    account,
		"category_id":   "nonexistent",
		"expense_name":  "Lunch",
		"expense_value": 12,
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "No category with given category_id was found for your user.", suite.decode(w)["message"])
}

func (suite *HandlersTestSuite) TestCreateExpenseForeignCategory() {
	_, tokenA := suite.signup("a@x.com", "pw")
	_, tokenB := suite.signup("b@x.com", "pw")
	accountA := suite.createAccount(tokenA, "Checking")
	categoryB := suite.createCategory(tokenB, "Food", "Expenses")

	// B's category is invisible to A even though it exists.
	w := suite.do("POST", "/expense", tokenA, map[string]any{
		"account_id":    accountA,
		"category_id":   categoryB,
		"expense_name":  "Lunch",
		"expense_value": 12,
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "No category with given category_id was found for your user.", suite.decode(w)["message"])
}

func (suite *HandlersTestSuite) TestExpenseDefaultTargetDay() {
	_, token := suite.signup("a@x.com", "pw")
	account := suite.createAccount(token, "Checking")
	category := suite.createCategory(token, "Food", "Expenses")

	w := suite.do("POST", "/expense", token, map[string]any{
		"account_id":    account,
		"category_id":   category,
		"expense_name":  "Lunch",
		"expense_value": 12,
	})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	expenses, err := suite.db.ListExpenses(mustUserID(suite, "a@x.com"), storage.EntryFilter{})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), expenses, 1)
	assert.Equal(suite.T(), -1, expenses[0].TargetDay, "non-recurring by default")
}

func (suite *HandlersTestSuite) TestGetExpenseFilters() {
	_, token := suite.signup("a@x.com", "pw")
	account := suite.createAccount(token, "Checking")
	category := suite.createCategory(token, "Food", "Expenses")

	w := suite.do("POST", "/expense", token, map[string]any{
		"account_id":    account,
		"category_id":   category,
		"expense_name":  "Lunch",
		"expense_value": 12,
	})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do("GET", "/expense?account_id="+account, token, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do("GET", "/expense?expense_id=nonexistent", token, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "Specified expense_id not found.", suite.decode(w)["message"])

	w = suite.do("GET", "/expense?account_id=nonexistent", token, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "No expense for account found.", suite.decode(w)["message"])

	w = suite.do("GET", "/expense?category_id=nonexistent", token, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "No expense for category found.", suite.decode(w)["message"])

	// Unfiltered listing of nothing is an empty array, not an error.
	_, other := suite.signup("b@x.com", "pw")
	w = suite.do("GET", "/expense", other, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), "[]", w.Body.String())
}

func (suite *HandlersTestSuite) TestIncomeRoundTrip() {
	_, token := suite.signup("a@x.com", "pw")
	account := suite.createAccount(token, "Checking")
	category := suite.createCategory(token, "Salary", "Income")

	w := suite.do("POST", "/income", token, map[string]any{
		"account_id":        account,
		"category_id":       category,
		"income_name":       "Monthly Salary",
		"income_value":      2500,
		"income_target_day": 30,
	})
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	assert.Equal(suite.T(), "income creation was successful", suite.decode(w)["message"])

	w = suite.do("GET", "/income", token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var incomes []map[string]any
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &incomes))
	require.Len(suite.T(), incomes, 1)
	assert.Equal(suite.T(), "Monthly Salary", incomes[0]["income_name"])
	assert.Equal(suite.T(), float64(30), incomes[0]["income_target_day"])

	id := incomes[0]["_id"].(string)
	w = suite.do("PUT", "/income/"+id, token, map[string]any{"income_value": 2600})
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do("DELETE", "/income/"+id, token, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do("DELETE", "/income/"+id, token, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "No matching income was found for your user.", suite.decode(w)["message"])
}

func (suite *HandlersTestSuite) TestStatistics() {
	_, token := suite.signup("a@x.com", "pw")
	account := suite.createAccount(token, "Checking")
	food := suite.createCategory(token, "Food", "Expenses")
	salary := suite.createCategory(token, "Salary", "Income")

	for _, v := range []float64{10, 30} {
		w := suite.do("POST", "/expense", token, map[string]any{
			"account_id": account, "category_id": food,
			"expense_name": "Food", "expense_value": v,
		})
		require.Equal(suite.T(), http.StatusOK, w.Code)
	}
	w := suite.do("POST", "/income", token, map[string]any{
		"account_id": account, "category_id": salary,
		"income_name": "Pay", "income_value": 2500,
	})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do("GET", "/statistics", token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var stats struct {
		TotalExpenses string              `json:"total_expenses"`
		TotalIncome   string              `json:"total_income"`
		Categories    []StatsCategoryItem `json:"categories"`
	}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(suite.T(), "40", stats.TotalExpenses)
	assert.Equal(suite.T(), "2500", stats.TotalIncome)
	require.Len(suite.T(), stats.Categories, 2)
	for _, c := range stats.Categories {
		if c.CategoryName == "Food" {
			assert.Equal(suite.T(), 2, c.ExpenseCount)
			assert.InDelta(suite.T(), 100.0, c.ExpenseShare, 0.001)
		}
	}
}

// mustUserID looks up a user id by email directly in the store.
func mustUserID(suite *HandlersTestSuite, email string) string {
	user, err := suite.db.GetUserByEmail(email)
	require.NoError(suite.T(), err)
	return user.ID
}
