package routers

import (
	"net/http"

	"divvy/internal/api/handlers/expenses"
)

func expensesRouter(exp *expenses.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/expenses/{expenseId}", exp.GetExpenseHandler)

	mux.HandleFunc("/expenses/delete/{expenseId}", exp.DeleteExpenseHandler)

	mux.HandleFunc("/expenses/shares/{shareId}/settle", exp.SettleShareHandler)

	return mux
}
