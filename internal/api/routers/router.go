package routers

import (
	"net/http"

	"divvy/internal/api/handlers/balances"
	"divvy/internal/api/handlers/chat"
	"divvy/internal/api/handlers/expenses"
)

func MainRouter(exp *expenses.Handler, bal *balances.Handler, ch *chat.Handler) *http.ServeMux {

	mux := http.NewServeMux()

	uRouter := usersRouter()
	mux.Handle("/users/", uRouter)

	gRouter := groupsRouter(exp, bal, ch)
	mux.Handle("/groups/", gRouter)

	eRouter := expensesRouter(exp)
	mux.Handle("/expenses/", eRouter)

	pRouter := personalRouter()
	mux.Handle("/personal/", pRouter)

	return mux
}
