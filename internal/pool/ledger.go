package pool

import (
	"sort"

	"github.com/shopspring/decimal"

	"poolsim/internal/model"
)

// Ledger maps provider identifiers to LP share balances. It is not
// synchronized; the Engine guards it with its own lock.
type Ledger struct {
	shares map[string]decimal.Decimal
}

func NewLedger() *Ledger {
	return &Ledger{shares: make(map[string]decimal.Decimal)}
}

// Balance returns the shares owned by provider, zero when unknown.
func (l *Ledger) Balance(provider string) decimal.Decimal {
	return l.shares[provider]
}

func (l *Ledger) credit(provider string, amount decimal.Decimal) {
	l.shares[provider] = l.shares[provider].Add(amount)
}

// debit removes amount from provider and deletes the entry once it reaches zero.
func (l *Ledger) debit(provider string, amount decimal.Decimal) error {
	balance, ok := l.shares[provider]
	if !ok || balance.LessThan(amount) {
		return ErrInsufficientShares
	}
	remaining := balance.Sub(amount)
	if remaining.IsZero() {
		delete(l.shares, provider)
		return nil
	}
	l.shares[provider] = remaining
	return nil
}

// Total sums every entry; it equals the pool's total shares.
func (l *Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range l.shares {
		total = total.Add(amount)
	}
	return total
}

func (l *Ledger) Len() int {
	return len(l.shares)
}

// Entries returns a copy of the ledger sorted by provider.
func (l *Ledger) Entries() []model.LedgerEntry {
	entries := make([]model.LedgerEntry, 0, len(l.shares))
	for provider, amount := range l.shares {
		entries = append(entries, model.LedgerEntry{Provider: provider, Shares: amount})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Provider < entries[j].Provider
	})
	return entries
}
