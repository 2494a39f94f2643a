package gambit

import (
	"fmt"

	"github.com/pkg/errors"

	"tavern.com/gameserver/wallet"
)

var (
	ErrInvalidState  = errors.New("invalid state")
	ErrInvalidAction = errors.New("invalid action")
	// raises and antes share the purse's amount rule
	ErrInvalidAmount = wallet.ErrInvalidAmount
)

// UnexpectedStateError is returned when an action is attempted outside the
// state it is legal in.
type UnexpectedStateError struct {
	State  string
	Action string
}

func (e UnexpectedStateError) Error() string {
	return fmt.Sprintf("%s is not allowed in state %s", e.Action, e.State)
}

func (e UnexpectedStateError) Unwrap() error {
	return ErrInvalidState
}
