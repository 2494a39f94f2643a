package gambit

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

var engineLogger = log.With().Str("logger_name", "gambit::engine").Logger()

const (
	State__IDLE           = "idle"
	State__AWAITING_HUMAN = "awaiting_human"
	State__PROCESSING_AI  = "processing_ai"
	State__REVEALING      = "revealing"
	State__COMPLETE       = "complete"
)

const (
	Event__START       = "start"
	Event__HUMAN_ACTED = "human_acted"
	Event__NEXT_ROUND  = "next_round"
	Event__REVEAL      = "reveal"
	Event__FINISH      = "finish"
	Event__RESET       = "reset"
)

type Config struct {
	Opponents int
	Logger    *zerolog.Logger
}

// Engine runs one Gambit of Ord table. It is not safe for concurrent use;
// the owner serializes calls.
type Engine struct {
	roller dice.Roller
	purse  Purse
	policy Policy
	logger *zerolog.Logger
	sm     *fsm.FSM

	opponents  int
	table      Table
	ante       int
	generation uint64
	log        []string
	message    string
	outcome    *Outcome

	// set once the opponents of the current round have decided and only the
	// next draw is left
	opponentsActed bool
}

func NewEngine(roller dice.Roller, purse Purse, policy Policy, cfg Config) *Engine {
	opponents := cfg.Opponents
	if opponents <= 0 {
		opponents = DefaultOpponents
	}
	logger := cfg.Logger
	if logger == nil {
		logger = &engineLogger
	}

	e := &Engine{
		roller:    roller,
		purse:     purse,
		policy:    policy,
		logger:    logger,
		opponents: opponents,
	}
	e.sm = fsm.NewFSM(
		State__IDLE,
		fsm.Events{
			{Name: Event__START, Src: []string{State__IDLE}, Dst: State__AWAITING_HUMAN},
			{Name: Event__HUMAN_ACTED, Src: []string{State__AWAITING_HUMAN}, Dst: State__PROCESSING_AI},
			{Name: Event__NEXT_ROUND, Src: []string{State__PROCESSING_AI}, Dst: State__AWAITING_HUMAN},
			{Name: Event__REVEAL, Src: []string{State__PROCESSING_AI}, Dst: State__REVEALING},
			{
				Name: Event__FINISH,
				Src:  []string{State__AWAITING_HUMAN, State__PROCESSING_AI, State__REVEALING},
				Dst:  State__COMPLETE,
			},
			{
				Name: Event__RESET,
				Src: []string{
					State__AWAITING_HUMAN,
					State__PROCESSING_AI,
					State__REVEALING,
					State__COMPLETE,
				},
				Dst: State__IDLE,
			},
		},
		fsm.Callbacks{
			"enter_state": func(ev *fsm.Event) { e.enterState(ev) },
		},
	)
	return e
}

func (e *Engine) enterState(ev *fsm.Event) {
	e.logger.Debug().
		Uint64(logging.GenerationKey, e.generation).
		Int(logging.RoundKey, e.table.Round).
		Msgf("[%s] ===> [%s]", ev.Src, ev.Dst)
}

func (e *Engine) event(name string) error {
	err := e.sm.Event(name)
	if err != nil {
		e.logger.Error().Msgf("Error from state machine: %s", err.Error())
		return errors.Wrapf(err, "gambit event %s", name)
	}
	return nil
}

func (e *Engine) State() string {
	return e.sm.Current()
}

func (e *Engine) Generation() uint64 {
	return e.generation
}

func (e *Engine) Message() string {
	return e.message
}

// Pending reports whether Advance has a step to perform.
func (e *Engine) Pending() bool {
	return e.sm.Is(State__PROCESSING_AI) || e.sm.Is(State__REVEALING)
}

func (e *Engine) reject(action string) error {
	err := UnexpectedStateError{State: e.sm.Current(), Action: action}
	e.logger.Info().Str(logging.StateKey, err.State).Msg(err.Error())
	return err
}

// StartGame collects the ante from every seat and draws the first card.
func (e *Engine) StartGame(ante int) error {
	if !e.sm.Is(State__IDLE) {
		return e.reject("start game")
	}
	if ante <= 0 {
		return errors.Wrapf(ErrInvalidAmount, "ante %d", ante)
	}
	if e.purse.Balance() < ante {
		e.message = "Not enough gold!"
		return errors.Wrapf(wallet.ErrInsufficientFunds, "ante %d, balance %d", ante, e.purse.Balance())
	}

	players := make([]*Player, 0, e.opponents+1)
	players = append(players, &Player{Name: HumanName, IsHuman: true, Bet: ante})
	for i := 1; i <= e.opponents; i++ {
		players = append(players, &Player{Name: opponentName(i), Bet: ante})
	}
	rolls, err := e.roller.Roll(len(players), DieForRound(1))
	if err != nil {
		return errors.Wrap(err, "first draw")
	}
	if err := e.purse.Debit(ante); err != nil {
		e.message = "Not enough gold!"
		return err
	}

	e.generation++
	e.ante = ante
	e.table = Table{Pot: ante * len(players), Round: 1, Players: players}
	e.log = make([]string, 0)
	e.outcome = nil
	e.opponentsActed = false
	e.applyDraw(rolls)
	e.message = roundBanner(1)
	return e.event(Event__START)
}

// SubmitHumanDecision applies the human's choice for the current round.
func (e *Engine) SubmitHumanDecision(decision Decision) error {
	if !e.sm.Is(State__AWAITING_HUMAN) {
		return e.reject(fmt.Sprintf("human %s", decision.Action))
	}
	human := e.table.human()

	switch decision.Action {
	case ActionRaise:
		if decision.Amount <= 0 {
			return errors.Wrapf(ErrInvalidAmount, "raise %d", decision.Amount)
		}
		if err := e.purse.Debit(decision.Amount); err != nil {
			e.message = "Not enough gold to raise!"
			return err
		}
		human.Bet += decision.Amount
		e.table.Pot += decision.Amount
		e.appendLog("You raised %d gp", decision.Amount)

	case ActionStandPat:
		e.appendLog("You stand pat")

	case ActionFold:
		human.Folded = true
		e.appendLog("You folded")
		if len(e.table.active()) == 1 {
			return e.finish()
		}

	default:
		return errors.Wrapf(ErrInvalidAction, "%q", decision.Action)
	}
	return e.event(Event__HUMAN_ACTED)
}

// Advance performs the single pending step, if any.
func (e *Engine) Advance() error {
	switch e.sm.Current() {
	case State__PROCESSING_AI:
		if !e.opponentsActed {
			e.runOpponents()
			e.opponentsActed = true
			if len(e.table.active()) == 1 {
				return e.finish()
			}
		}
		if e.table.Round >= NumRounds {
			e.opponentsActed = false
			return e.event(Event__REVEAL)
		}
		return e.nextRound()

	case State__REVEALING:
		return e.finish()
	}
	return e.reject("advance")
}

// AdvanceGeneration advances only when gen still names the current game.
// A step scheduled before a reset or a new game is dropped.
func (e *Engine) AdvanceGeneration(gen uint64) (bool, error) {
	if gen != e.generation {
		e.logger.Debug().
			Uint64(logging.GenerationKey, gen).
			Msgf("Dropping stale step. Current generation: %d", e.generation)
		return false, nil
	}
	return true, e.Advance()
}

func (e *Engine) Reset() {
	e.generation++
	e.table = Table{}
	e.ante = 0
	e.log = nil
	e.message = ""
	e.outcome = nil
	e.opponentsActed = false
	if !e.sm.Is(State__IDLE) {
		// reset is legal from every state but idle
		_ = e.event(Event__RESET)
	}
}

func (e *Engine) runOpponents() {
	for _, p := range e.table.Players {
		if p.IsHuman || p.Folded {
			continue
		}
		decision := e.policy.Decide(Turn{
			Player:      p.Name,
			Round:       e.table.Round,
			LastRoll:    p.lastRoll(),
			MaxPossible: DieForRound(e.table.Round),
			Ante:        e.ante,
		})
		switch {
		case decision.Action == ActionRaise && decision.Amount > 0:
			p.Bet += decision.Amount
			e.table.Pot += decision.Amount
			e.appendLog("%s raised %d gp", p.Name, decision.Amount)
		case decision.Action == ActionFold:
			p.Folded = true
			e.appendLog("%s folded", p.Name)
			if len(e.table.active()) == 1 {
				return
			}
		case decision.Action == ActionRaise:
			e.logger.Warn().
				Str(logging.PlayerNameKey, p.Name).
				Msgf("Ignoring raise of %d gp", decision.Amount)
			e.appendLog("%s stands pat", p.Name)
		default:
			e.appendLog("%s stands pat", p.Name)
		}
	}
}

func (e *Engine) nextRound() error {
	round := e.table.Round + 1
	rolls, err := e.roller.Roll(len(e.table.active()), DieForRound(round))
	if err != nil {
		return errors.Wrapf(err, "draw for round %d", round)
	}
	e.opponentsActed = false
	e.table.Round = round
	e.message = roundBanner(round)
	e.applyDraw(rolls)
	if e.table.human().Folded {
		// nobody to wait for, the opponents play on
		return nil
	}
	return e.event(Event__NEXT_ROUND)
}

func (e *Engine) applyDraw(rolls []int) {
	i := 0
	for _, p := range e.table.Players {
		if p.Folded {
			continue
		}
		p.draw(rolls[i])
		e.appendLog("%s drew %d", p.Name, rolls[i])
		i++
	}
}

func (e *Engine) finish() error {
	players := make([]Player, len(e.table.Players))
	for i, p := range e.table.Players {
		players[i] = p.clone()
	}
	outcome := Resolve(players, e.table.Pot)
	if outcome.HumanCredit > 0 {
		if err := e.purse.Credit(outcome.HumanCredit); err != nil {
			return errors.Wrap(err, "credit winnings")
		}
	}
	e.outcome = &outcome
	e.message = outcome.Message
	e.opponentsActed = false
	e.logger.Info().
		Uint64(logging.GenerationKey, e.generation).
		Str("outcome", string(outcome.Kind)).
		Int("pot", outcome.Pot).
		Int("credit", outcome.HumanCredit).
		Msg(outcome.Message)
	return e.event(Event__FINISH)
}

func (e *Engine) appendLog(format string, args ...interface{}) {
	e.log = append(e.log, fmt.Sprintf(format, args...))
}

func roundBanner(round int) string {
	switch round {
	case 1:
		return fmt.Sprintf("First draw! Each player draws one card (d%d).", DieForRound(1))
	case 2:
		return fmt.Sprintf("Second draw! Each player draws another card (d%d).", DieForRound(2))
	case 3:
		return fmt.Sprintf("Third draw! Each player draws the final card (d%d).", DieForRound(3))
	}
	return ""
}
