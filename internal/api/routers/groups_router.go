package routers

import (
	"net/http"

	"divvy/internal/api/handlers/balances"
	"divvy/internal/api/handlers/chat"
	"divvy/internal/api/handlers/expenses"
	"divvy/internal/api/handlers/groups"
)

func groupsRouter(exp *expenses.Handler, bal *balances.Handler, ch *chat.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/groups/create", groups.CreateGroupHandler)

	mux.HandleFunc("/groups/", groups.GetMyGroupsHandler)

	mux.HandleFunc("/groups/{id}", groups.GetGroupByIDHandler)

	mux.HandleFunc("/groups/update/{id}", groups.UpdateGroupHandler)

	mux.HandleFunc("/groups/delete/{id}", groups.DeleteGroupHandler)

	mux.HandleFunc("/groups/{id}/members/add", groups.AddGroupMemberHandler)

	mux.HandleFunc("/groups/{id}/members/{memberId}/remove", groups.RemoveGroupMemberHandler)

	mux.HandleFunc("/groups/{id}/members/{memberId}/role", groups.ChangeMemberRoleHandler)

	mux.HandleFunc("/groups/{id}/leave", groups.LeaveGroupHandler)

	mux.HandleFunc("/groups/{id}/expenses", exp.ListExpensesHandler)

	mux.HandleFunc("/groups/{id}/expenses/create", exp.CreateExpenseHandler)

	mux.HandleFunc("/groups/{id}/expenses/preview", exp.PreviewSplitHandler)

	mux.HandleFunc("/groups/{id}/expenses/summary", exp.UserSummaryHandler)

	mux.HandleFunc("/groups/{id}/balances", bal.GroupBalancesHandler)

	mux.HandleFunc("/groups/{id}/settlements", bal.SuggestSettlementsHandler)

	mux.HandleFunc("/groups/{id}/messages", ch.MessageHistoryHandler)

	mux.HandleFunc("/groups/{id}/messages/send", ch.PostMessageHandler)

	mux.HandleFunc("/groups/{id}/messages/stream", ch.StreamMessagesHandler)

	return mux
}
