package game

import (
	"fmt"

	"github.com/pkg/errors"

	"tavern.com/gameserver/favor"
	"tavern.com/gameserver/gambit"
	"tavern.com/gameserver/lizardrace"
	"tavern.com/gameserver/wallet"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionEnded       = errors.New("session ended")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrUnknownGameType    = errors.New("unknown game type")
	ErrTableStateNotFound = errors.New("table state not found")
)

type UnsupportedCommandError struct {
	GameType GameType
	Command  CommandType
}

func (e UnsupportedCommandError) Error() string {
	return fmt.Sprintf("%s does not take command %s", e.GameType, e.Command)
}

func (e UnsupportedCommandError) Unwrap() error {
	return ErrUnknownCommand
}

// IsInvalidState reports whether err rejected a command that is not legal
// in the table's current state.
func IsInvalidState(err error) bool {
	return errors.Is(err, gambit.ErrInvalidState) ||
		errors.Is(err, favor.ErrInvalidState) ||
		errors.Is(err, lizardrace.ErrInvalidState)
}

// IsInvalidInput reports whether err rejected a malformed command.
func IsInvalidInput(err error) bool {
	return errors.Is(err, wallet.ErrInvalidAmount) ||
		errors.Is(err, gambit.ErrInvalidAction) ||
		errors.Is(err, lizardrace.ErrInvalidLizard) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrUnknownGameType)
}

// RejectReason names a rejection for metrics.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return "insufficient_funds"
	case IsInvalidState(err):
		return "invalid_state"
	case IsInvalidInput(err):
		return "invalid_input"
	case errors.Is(err, ErrSessionEnded):
		return "session_ended"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	}
	return "other"
}
