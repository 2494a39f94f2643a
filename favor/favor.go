package favor

import (
	"fmt"

	"github.com/looplab/fsm"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tavern.com/gameserver/dice"
	"tavern.com/gameserver/logging"
	"tavern.com/gameserver/wallet"
)

var favorLogger = log.With().Str("logger_name", "favor::favor").Logger()

const (
	MinBet        = 25
	ExtraRollCost = 25
	BustOver      = 12
)

const (
	State__IDLE    = "idle"
	State__PLAYING = "playing"
	State__WON     = "won"
	State__LOST    = "lost"
)

const (
	Event__PLAY  = "play"
	Event__WIN   = "win"
	Event__LOSE  = "lose"
	Event__RESET = "reset"
)

var (
	ErrInvalidState  = errors.New("invalid state")
	ErrInvalidAmount = wallet.ErrInvalidAmount
)

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

type Purse interface {
	Debit(amount int) error
	Credit(amount int) error
	Balance() int
}

// Snapshot is the table as the player sees it.
type Snapshot struct {
	State      string `json:"state"`
	Generation uint64 `json:"generation"`
	Bet        int    `json:"bet"`
	Wager      int    `json:"wager"`
	Rolls      []int  `json:"rolls"`
	Total      int    `json:"total"`
	Winnings   int    `json:"winnings"`
	Message    string `json:"message"`
}

// Engine plays Avandra's Favor: 2d6 win on 7 or 12, buy extra dice for
// 25 gp each and hit 12 exactly, bust above it. Standing pat loses.
type Engine struct {
	roller dice.Roller
	purse  Purse
	logger *zerolog.Logger
	sm     *fsm.FSM

	generation uint64
	bet        int
	wager      int
	rolls      []int
	winnings   int
	message    string
}

func NewEngine(roller dice.Roller, purse Purse, logger *zerolog.Logger) *Engine {
	if logger == nil {
		logger = &favorLogger
	}
	e := &Engine{
		roller: roller,
		purse:  purse,
		logger: logger,
	}
	e.sm = fsm.NewFSM(
		State__IDLE,
		fsm.Events{
			{Name: Event__PLAY, Src: []string{State__IDLE}, Dst: State__PLAYING},
			{Name: Event__WIN, Src: []string{State__IDLE, State__PLAYING}, Dst: State__WON},
			{Name: Event__LOSE, Src: []string{State__PLAYING}, Dst: State__LOST},
			{Name: Event__RESET, Src: []string{State__PLAYING, State__WON, State__LOST}, Dst: State__IDLE},
		},
		fsm.Callbacks{
			"enter_state": func(ev *fsm.Event) {
				e.logger.Debug().Uint64(logging.GenerationKey, e.generation).Msgf("[%s] ===> [%s]", ev.Src, ev.Dst)
			},
		},
	)
	return e
}

func (e *Engine) State() string {
	return e.sm.Current()
}

func (e *Engine) Generation() uint64 {
	return e.generation
}

func (e *Engine) reject(action string) error {
	err := UnexpectedStateError{State: e.sm.Current(), Action: action}
	e.logger.Info().Str(logging.StateKey, err.State).Msg(err.Error())
	return err
}

func (e *Engine) event(name string) error {
	if err := e.sm.Event(name); err != nil {
		e.logger.Error().Msgf("Error from state machine: %s", err.Error())
		return errors.Wrapf(err, "favor event %s", name)
	}
	return nil
}

func (e *Engine) total() int {
	return dice.Sum(e.rolls)
}

func (e *Engine) StartGame(bet int) error {
	if !e.sm.Is(State__IDLE) {
		return e.reject("start game")
	}
	if bet < MinBet {
		e.message = fmt.Sprintf("The minimum bet is %d gp.", MinBet)
		return errors.Wrapf(ErrInvalidAmount, "bet %d below minimum %d", bet, MinBet)
	}
	if e.purse.Balance() < bet {
		e.message = "Not enough gold!"
		return errors.Wrapf(wallet.ErrInsufficientFunds, "bet %d, balance %d", bet, e.purse.Balance())
	}
	rolls, err := e.roller.Roll(2, dice.D6)
	if err != nil {
		return errors.Wrap(err, "opening roll")
	}
	if err := e.purse.Debit(bet); err != nil {
		e.message = "Not enough gold!"
		return err
	}

	e.generation++
	e.bet = bet
	e.wager = bet
	e.rolls = rolls
	e.winnings = 0
	total := e.total()
	if total == 7 || total == BustOver {
		return e.win(fmt.Sprintf("You rolled %d! You win %%d gp!", total))
	}
	e.message = fmt.Sprintf("You rolled %d. Roll another die for %d gp or stand pat.", total, ExtraRollCost)
	return e.event(Event__PLAY)
}

// RollAgain buys one more d6.
func (e *Engine) RollAgain() error {
	if !e.sm.Is(State__PLAYING) {
		return e.reject("roll again")
	}
	if e.purse.Balance() < ExtraRollCost {
		e.message = "Not enough gold to roll again!"
		return errors.Wrapf(wallet.ErrInsufficientFunds, "extra roll, balance %d", e.purse.Balance())
	}
	rolls, err := e.roller.Roll(1, dice.D6)
	if err != nil {
		return errors.Wrap(err, "extra roll")
	}
	if err := e.purse.Debit(ExtraRollCost); err != nil {
		e.message = "Not enough gold to roll again!"
		return err
	}

	e.wager += ExtraRollCost
	e.rolls = append(e.rolls, rolls[0])
	total := e.total()
	switch {
	case total > BustOver:
		e.message = fmt.Sprintf("You rolled %d for a total of %d. Bust! You lose %d gp.", rolls[0], total, e.wager)
		return e.event(Event__LOSE)
	case total == BustOver:
		return e.win(fmt.Sprintf("You rolled %d for a total of %d! You win %%d gp!", rolls[0], total))
	}
	e.message = fmt.Sprintf("You rolled %d for a total of %d. Roll again or stand pat.", rolls[0], total)
	return nil
}

// StandPat ends the game. Only 7 or 12 ever pay.
func (e *Engine) StandPat() error {
	if !e.sm.Is(State__PLAYING) {
		return e.reject("stand pat")
	}
	e.message = fmt.Sprintf("You stood at %d. You lose %d gp.", e.total(), e.wager)
	return e.event(Event__LOSE)
}

func (e *Engine) Reset() {
	e.generation++
	e.bet = 0
	e.wager = 0
	e.rolls = nil
	e.winnings = 0
	e.message = ""
	if !e.sm.Is(State__IDLE) {
		_ = e.event(Event__RESET)
	}
}

// win pays double the wager. format takes the winnings as its only verb.
func (e *Engine) win(format string) error {
	winnings := e.wager * 2
	if err := e.purse.Credit(winnings); err != nil {
		return errors.Wrap(err, "credit winnings")
	}
	e.winnings = winnings
	e.message = fmt.Sprintf(format, winnings)
	e.logger.Info().Uint64(logging.GenerationKey, e.generation).Int("winnings", winnings).Msg(e.message)
	return e.event(Event__WIN)
}

func (e *Engine) Snapshot() Snapshot {
	rolls := make([]int, len(e.rolls))
	copy(rolls, e.rolls)
	return Snapshot{
		State:      e.sm.Current(),
		Generation: e.generation,
		Bet:        e.bet,
		Wager:      e.wager,
		Rolls:      rolls,
		Total:      e.total(),
		Winnings:   e.winnings,
		Message:    e.message,
	}
}
