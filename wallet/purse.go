package wallet

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// Purse holds the player's gold. Only the human player's gold is real
// currency; opponents never have a purse.
type Purse struct {
	lock    sync.Mutex
	balance int
}

func NewPurse(balance int) *Purse {
	return &Purse{balance: balance}
}

func (p *Purse) Balance() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.balance
}

// Debit removes amount from the purse. The balance is left untouched when
// the purse cannot cover it.
func (p *Purse) Debit(amount int) error {
	if amount <= 0 {
		return errors.Wrapf(ErrInvalidAmount, "debit %d", amount)
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	if p.balance < amount {
		return errors.Wrapf(ErrInsufficientFunds, "balance %d, needed %d", p.balance, amount)
	}
	p.balance -= amount
	return nil
}

func (p *Purse) Credit(amount int) error {
	if amount <= 0 {
		return errors.Wrapf(ErrInvalidAmount, "credit %d", amount)
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	p.balance += amount
	return nil
}

// CanCover reports whether the purse holds at least amount.
func (p *Purse) CanCover(amount int) bool {
	return p.Balance() >= amount
}
