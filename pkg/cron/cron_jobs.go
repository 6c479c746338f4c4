// Package cron runs the background ledger audit. Every group's net
// balances must sum to zero; the audit sweeps all groups on a schedule
// and logs any group whose stored shares have drifted from its totals.
package cron

import (
	"context"
	"database/sql"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"divvy/internal/ledger"
	"divvy/internal/store"
	"divvy/pkg/utils"
)

type Auditor struct {
	db       *sql.DB
	members  store.MemberDirectory
	expenses store.ExpenseStore
	shares   store.ShareStore
	c        *cron.Cron
}

func NewAuditor(db *sql.DB, members store.MemberDirectory, expenses store.ExpenseStore, shares store.ShareStore) *Auditor {
	return &Auditor{
		db:       db,
		members:  members,
		expenses: expenses,
		shares:   shares,
		c:        cron.New(),
	}
}

// Start schedules the audit. spec is a cron expression; an empty spec
// falls back to hourly.
func (a *Auditor) Start(spec string) error {
	if spec == "" {
		spec = "@hourly"
	}

	_, err := a.c.AddFunc(spec, func() {
		if err := a.RunOnce(context.Background()); err != nil {
			utils.Logger.Errorf("balance audit failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	a.c.Start()
	utils.Logger.Infof("balance audit scheduled: %s", spec)
	return nil
}

func (a *Auditor) Stop() {
	ctx := a.c.Stop()
	<-ctx.Done()
}

// RunOnce audits every group and reports how long the sweep took. A
// handful of groups are checked concurrently; one bad group does not
// stop the sweep.
func (a *Auditor) RunOnce(ctx context.Context) error {
	start := time.Now()

	rows, err := a.db.QueryContext(ctx, "SELECT id FROM groups")
	if err != nil {
		return err
	}
	defer rows.Close()

	var groupIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return err
		}
		groupIDs = append(groupIDs, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, groupID := range groupIDs {
		groupID := groupID
		g.Go(func() error {
			if err := a.auditGroup(ctx, groupID); err != nil {
				utils.Logger.Errorf("audit of group %d failed: %v", groupID, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	utils.Logger.Infof("balance audit finished: %d groups in %s", len(groupIDs), time.Since(start))
	return nil
}

func (a *Auditor) auditGroup(ctx context.Context, groupID int) error {
	members, err := a.members.GroupMembers(ctx, groupID)
	if err != nil {
		return err
	}
	expenseList, err := a.expenses.ListByGroup(ctx, groupID)
	if err != nil {
		return err
	}
	shareList, err := a.shares.ListSharesByGroup(ctx, groupID)
	if err != nil {
		return err
	}

	entries := make([]ledger.ExpenseEntry, 0, len(expenseList))
	payerOf := make(map[int]int, len(expenseList))
	for _, e := range expenseList {
		entries = append(entries, ledger.ExpenseEntry{PayerID: e.PayerID, Amount: e.Amount})
		payerOf[e.ID] = e.PayerID
	}
	shareEntries := make([]ledger.ShareEntry, 0, len(shareList))
	var payments []ledger.PaymentEntry
	for _, s := range shareList {
		shareEntries = append(shareEntries, ledger.ShareEntry{UserID: s.UserID, Owed: s.AmountOwed})
		if s.AmountPaid.IsPositive() && payerOf[s.ExpenseID] != s.UserID {
			payments = append(payments, ledger.PaymentEntry{
				FromUserID: s.UserID,
				ToUserID:   payerOf[s.ExpenseID],
				Amount:     s.AmountPaid,
			})
		}
	}

	balances := ledger.Aggregate(members, entries, shareEntries, payments)

	// Cent rounding on stored shares stays inside the tolerance band;
	// anything past it is money leaking from the ledger.
	if drift := ledger.Drift(balances); drift.Abs().GreaterThan(ledger.Tolerance) {
		utils.Logger.Warnf("group %d ledger out of balance by %s", groupID, drift)
	}
	return nil
}
