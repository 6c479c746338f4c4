// Package memstore is an in-memory implementation of the store contracts,
// used by tests and anywhere a database is overkill.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"divvy/internal/models"
	"divvy/internal/split"
	"divvy/internal/store"
)

var (
	_ store.MemberDirectory = (*Store)(nil)
	_ store.ExpenseStore    = (*Store)(nil)
	_ store.ShareStore      = (*Store)(nil)
)

type Store struct {
	mu sync.RWMutex

	members  map[int][]split.Member // groupID -> members
	expenses map[int]models.Expense
	shares   map[int]models.ExpenseShare

	nextExpenseID int
	nextShareID   int
}

func New() *Store {
	return &Store{
		members:       make(map[int][]split.Member),
		expenses:      make(map[int]models.Expense),
		shares:        make(map[int]models.ExpenseShare),
		nextExpenseID: 1,
		nextShareID:   1,
	}
}

// SetGroupMembers seeds the member directory for a group.
func (s *Store) SetGroupMembers(groupID int, members []split.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[groupID] = append([]split.Member(nil), members...)
}

func (s *Store) GroupMembers(_ context.Context, groupID int) ([]split.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]split.Member(nil), s.members[groupID]...), nil
}

func (s *Store) CreateWithShares(_ context.Context, expense models.Expense, shares []models.ExpenseShare) (models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// All-or-nothing: validate the whole batch before writing anything,
	// the same way a constraint failure rolls back the SQL transaction.
	for _, share := range shares {
		if share.AmountOwed.IsNegative() {
			return models.Expense{}, store.ErrInvalidShares
		}
	}

	expense.ID = s.nextExpenseID
	s.nextExpenseID++
	s.expenses[expense.ID] = expense

	for _, share := range shares {
		share.ID = s.nextShareID
		share.ExpenseID = expense.ID
		s.nextShareID++
		s.shares[share.ID] = share
	}
	return expense, nil
}

func (s *Store) Get(_ context.Context, id int) (models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok {
		return models.Expense{}, store.ErrNotFound
	}
	return e, nil
}

func (s *Store) ListByGroup(_ context.Context, groupID int) ([]models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Expense
	for _, e := range s.expenses {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenses[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.expenses, id)
	for shareID, share := range s.shares {
		if share.ExpenseID == id {
			delete(s.shares, shareID)
		}
	}
	return nil
}

func (s *Store) GetShare(_ context.Context, id int) (models.ExpenseShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shares[id]
	if !ok {
		return models.ExpenseShare{}, store.ErrNotFound
	}
	return sh, nil
}

func (s *Store) ListByExpense(_ context.Context, expenseID int) ([]models.ExpenseShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterShares(func(sh models.ExpenseShare) bool { return sh.ExpenseID == expenseID }), nil
}

func (s *Store) ListSharesByGroup(_ context.Context, groupID int) ([]models.ExpenseShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterShares(func(sh models.ExpenseShare) bool {
		e, ok := s.expenses[sh.ExpenseID]
		return ok && e.GroupID == groupID
	}), nil
}

func (s *Store) filterShares(keep func(models.ExpenseShare) bool) []models.ExpenseShare {
	var out []models.ExpenseShare
	for _, sh := range s.shares {
		if keep(sh) {
			out = append(out, sh)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Settle(_ context.Context, shareID int, amount decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, ok := s.shares[shareID]
	if !ok {
		return decimal.Zero, store.ErrNotFound
	}
	if sh.IsSettled {
		return decimal.Zero, store.ErrAlreadySettled
	}

	// The owed amount is immutable; payments accumulate against it.
	paid := sh.AmountPaid.Add(amount)
	if paid.GreaterThan(sh.AmountOwed) {
		paid = sh.AmountOwed
	}
	remaining := sh.AmountOwed.Sub(paid)
	sh.AmountPaid = paid
	sh.IsSettled = remaining.IsZero()
	s.shares[shareID] = sh
	return remaining, nil
}
