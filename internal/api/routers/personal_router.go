package routers

import (
	"net/http"

	"divvy/internal/api/handlers/personal"
)

func personalRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/personal/categories", personal.ListCategoriesHandler)

	mux.HandleFunc("/personal/categories/create", personal.CreateCategoryHandler)

	mux.HandleFunc("/personal/categories/update/{id}", personal.UpdateCategoryHandler)

	mux.HandleFunc("/personal/categories/delete/{id}", personal.DeleteCategoryHandler)

	mux.HandleFunc("/personal/expenses", personal.ListExpensesHandler)

	mux.HandleFunc("/personal/expenses/create", personal.CreateExpenseHandler)

	mux.HandleFunc("/personal/expenses/delete/{id}", personal.DeleteExpenseHandler)

	mux.HandleFunc("/personal/summary", personal.MonthlySummaryHandler)

	return mux
}
