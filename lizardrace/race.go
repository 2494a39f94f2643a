package lizardrace

import (
	"fmt"

	mapset "github.com/deckarep/golang-set"
	"github.com/looplab/fsm"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tavern.com/gameserver/dice"
	"tavern.com/gameserver/logging"
	"tavern.com/gameserver/wallet"
)

var raceLogger = log.With().Str("logger_name", "lizardrace::race").Logger()

const (
	MinBet       = 10
	RollsPerRace = 3
)

var LizardNames = []string{"Red Runner", "Blue Bolt", "Green Flash"}

const (
	State__IDLE     = "idle"
	State__RACING   = "racing"
	State__COMPLETE = "complete"
)

const (
	Event__START  = "start"
	Event__FINISH = "finish"
	Event__RESET  = "reset"
)

var (
	ErrInvalidState  = errors.New("invalid state")
	ErrInvalidLizard = errors.New("invalid lizard")
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

type Lizard struct {
	Name  string `json:"name"`
	Rolls []int  `json:"rolls"`
	Total int    `json:"total"`
}

type Snapshot struct {
	State       string   `json:"state"`
	Generation  uint64   `json:"generation"`
	Bet         int      `json:"bet"`
	Selected    int      `json:"selected"`
	Lizards     []Lizard `json:"lizards"`
	Winners     []int    `json:"winners"`
	SecondPlace []int    `json:"secondPlace"`
	Payout      int      `json:"payout"`
	Message     string   `json:"message"`
}

// Race runs Quon-a-Drensal. Every lizard rolls 3d4; the highest totals win
// double the bet, the next highest get half the bet back.
type Race struct {
	roller dice.Roller
	purse  Purse
	logger *zerolog.Logger
	sm     *fsm.FSM

	generation  uint64
	bet         int
	selected    int
	lizards     []Lizard
	winners     []int
	secondPlace []int
	payout      int
	message     string
}

func NewRace(roller dice.Roller, purse Purse, logger *zerolog.Logger) *Race {
	if logger == nil {
		logger = &raceLogger
	}
	r := &Race{
		roller:   roller,
		purse:    purse,
		logger:   logger,
		selected: -1,
		lizards:  freshLizards(),
	}
	r.sm = fsm.NewFSM(
		State__IDLE,
		fsm.Events{
			{Name: Event__START, Src: []string{State__IDLE}, Dst: State__RACING},
			{Name: Event__FINISH, Src: []string{State__RACING}, Dst: State__COMPLETE},
			{Name: Event__RESET, Src: []string{State__RACING, State__COMPLETE}, Dst: State__IDLE},
		},
		fsm.Callbacks{
			"enter_state": func(ev *fsm.Event) {
				r.logger.Debug().Uint64(logging.GenerationKey, r.generation).Msgf("[%s] ===> [%s]", ev.Src, ev.Dst)
			},
		},
	)
	return r
}

func freshLizards() []Lizard {
	lizards := make([]Lizard, len(LizardNames))
	for i, name := range LizardNames {
		lizards[i] = Lizard{Name: name, Rolls: []int{}}
	}
	return lizards
}

func (r *Race) State() string {
	return r.sm.Current()
}

func (r *Race) Generation() uint64 {
	return r.generation
}

func (r *Race) Pending() bool {
	return r.sm.Is(State__RACING)
}

func (r *Race) reject(action string) error {
	err := UnexpectedStateError{State: r.sm.Current(), Action: action}
	r.logger.Info().Str(logging.StateKey, err.State).Msg(err.Error())
	return err
}

func (r *Race) event(name string) error {
	if err := r.sm.Event(name); err != nil {
		r.logger.Error().Msgf("Error from state machine: %s", err.Error())
		return errors.Wrapf(err, "race event %s", name)
	}
	return nil
}

// StartRace takes the bet on one lizard. The race itself runs on Advance.
func (r *Race) StartRace(bet int, lizard int) error {
	if !r.sm.Is(State__IDLE) {
		return r.reject("start race")
	}
	if lizard < 0 || lizard >= len(LizardNames) {
		r.message = "Please select a lizard to bet on!"
		return errors.Wrapf(ErrInvalidLizard, "lizard %d", lizard)
	}
	if bet < MinBet {
		r.message = fmt.Sprintf("The minimum bet is %d gp.", MinBet)
		return errors.Wrapf(ErrInvalidAmount, "bet %d below minimum %d", bet, MinBet)
	}
	if err := r.purse.Debit(bet); err != nil {
		r.message = "Not enough gold!"
		return err
	}

	r.generation++
	r.bet = bet
	r.selected = lizard
	r.lizards = freshLizards()
	r.winners = nil
	r.secondPlace = nil
	r.payout = 0
	r.message = "The lizards are racing..."
	return r.event(Event__START)
}

// Advance runs the race and pays out.
func (r *Race) Advance() error {
	if !r.sm.Is(State__RACING) {
		return r.reject("advance")
	}
	rolls, err := r.roller.Roll(RollsPerRace*len(r.lizards), dice.D4)
	if err != nil {
		return errors.Wrap(err, "race rolls")
	}
	for i := range r.lizards {
		r.lizards[i].Rolls = rolls[i*RollsPerRace : (i+1)*RollsPerRace]
		r.lizards[i].Total = dice.Sum(r.lizards[i].Rolls)
	}

	winners, second := r.placings()
	r.winners = indexes(winners, len(r.lizards))
	r.secondPlace = indexes(second, len(r.lizards))

	name := r.lizards[r.selected].Name
	switch {
	case winners.Contains(r.selected):
		r.payout = r.bet * 2
		r.message = fmt.Sprintf("%s wins! You win %d gp!", name, r.payout)
	case second.Contains(r.selected):
		r.payout = r.bet / 2
		r.message = fmt.Sprintf("%s came in second. You get back %d gp.", name, r.payout)
	default:
		r.message = fmt.Sprintf("%s lost. You lose %d gp.", name, r.bet)
	}
	if r.payout > 0 {
		if err := r.purse.Credit(r.payout); err != nil {
			return errors.Wrap(err, "credit payout")
		}
	}
	r.logger.Info().Uint64(logging.GenerationKey, r.generation).Int("payout", r.payout).Msg(r.message)
	return r.event(Event__FINISH)
}

// AdvanceGeneration drops a race step scheduled for an earlier race.
func (r *Race) AdvanceGeneration(gen uint64) (bool, error) {
	if gen != r.generation {
		r.logger.Debug().Uint64(logging.GenerationKey, gen).Msgf("Dropping stale step. Current generation: %d", r.generation)
		return false, nil
	}
	return true, r.Advance()
}

// placings returns the lizards at the best total and the lizards at the
// best total among the rest. second is empty when every lizard ties.
func (r *Race) placings() (mapset.Set, mapset.Set) {
	winners := mapset.NewSet()
	second := mapset.NewSet()

	best := 0
	for _, l := range r.lizards {
		if l.Total > best {
			best = l.Total
		}
	}
	for i, l := range r.lizards {
		if l.Total == best {
			winners.Add(i)
		}
	}

	runnerUp := 0
	for i, l := range r.lizards {
		if !winners.Contains(i) && l.Total > runnerUp {
			runnerUp = l.Total
		}
	}
	for i, l := range r.lizards {
		if !winners.Contains(i) && l.Total == runnerUp {
			second.Add(i)
		}
	}
	return winners, second
}

func indexes(set mapset.Set, size int) []int {
	result := make([]int, 0, set.Cardinality())
	for i := 0; i < size; i++ {
		if set.Contains(i) {
			result = append(result, i)
		}
	}
	return result
}

func (r *Race) Reset() {
	r.generation++
	r.bet = 0
	r.selected = -1
	r.lizards = freshLizards()
	r.winners = nil
	r.secondPlace = nil
	r.payout = 0
	r.message = ""
	if !r.sm.Is(State__IDLE) {
		_ = r.event(Event__RESET)
	}
}

func (r *Race) Snapshot() Snapshot {
	lizards := make([]Lizard, len(r.lizards))
	for i, l := range r.lizards {
		rolls := make([]int, len(l.Rolls))
		copy(rolls, l.Rolls)
		lizards[i] = Lizard{Name: l.Name, Rolls: rolls, Total: l.Total}
	}
	return Snapshot{
		State:       r.sm.Current(),
		Generation:  r.generation,
		Bet:         r.bet,
		Selected:    r.selected,
		Lizards:     lizards,
		Winners:     append([]int{}, r.winners...),
		SecondPlace: append([]int{}, r.secondPlace...),
		Payout:      r.payout,
		Message:     r.message,
	}
}
