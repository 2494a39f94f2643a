package bot

import (
	"sync"

	"github.com/rs/zerolog/log"

	"tavern.com/gameserver/dice"
	"tavern.com/gameserver/gambit"
	"tavern.com/gameserver/logging"
)

var policyLogger = log.With().Str("logger_name", "bot::policy").Logger()

const (
	minRaise   = 5
	foldChance = dice.D4
)

// RandomPolicy is the house opponent. It only looks at the card it drew
// last: the higher that card is against the round's die, the likelier it
// raises. When it does not raise it folds one time in four.
type RandomPolicy struct {
	roller dice.Roller
}

func NewRandomPolicy(roller dice.Roller) *RandomPolicy {
	return &RandomPolicy{roller: roller}
}

func (p *RandomPolicy) Decide(turn gambit.Turn) gambit.Decision {
	threshold, err := p.rollOne(turn.MaxPossible)
	if err != nil {
		return p.fallback(turn, err)
	}
	if turn.LastRoll >= threshold {
		amount, err := p.raiseAmount(turn.Ante)
		if err != nil {
			return p.fallback(turn, err)
		}
		return gambit.Raise(amount)
	}

	fold, err := p.rollOne(foldChance)
	if err != nil {
		return p.fallback(turn, err)
	}
	if fold == 1 {
		return gambit.Fold()
	}
	return gambit.StandPat()
}

// raiseAmount is uniform in [5, ante*3].
func (p *RandomPolicy) raiseAmount(ante int) (int, error) {
	max := ante * 3
	if max <= minRaise {
		return minRaise, nil
	}
	offset, err := p.rollOne(max - minRaise + 1)
	if err != nil {
		return 0, err
	}
	return minRaise + offset - 1, nil
}

func (p *RandomPolicy) rollOne(sides int) (int, error) {
	if sides <= 0 {
		sides = 1
	}
	rolls, err := p.roller.Roll(1, sides)
	if err != nil {
		return 0, err
	}
	return rolls[0], nil
}

func (p *RandomPolicy) fallback(turn gambit.Turn, err error) gambit.Decision {
	policyLogger.Warn().
		Str(logging.PlayerNameKey, turn.Player).
		Int(logging.RoundKey, turn.Round).
		Msgf("Could not roll for a decision, standing pat. Error: %s", err.Error())
	return gambit.StandPat()
}

// ScriptedPolicy hands out decisions in order and stands pat once it runs
// out.
type ScriptedPolicy struct {
	lock      sync.Mutex
	decisions []gambit.Decision
	turns     []gambit.Turn
}

func NewScriptedPolicy(decisions ...gambit.Decision) *ScriptedPolicy {
	d := make([]gambit.Decision, len(decisions))
	copy(d, decisions)
	return &ScriptedPolicy{decisions: d}
}

func (p *ScriptedPolicy) Push(decisions ...gambit.Decision) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.decisions = append(p.decisions, decisions...)
}

func (p *ScriptedPolicy) Decide(turn gambit.Turn) gambit.Decision {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.turns = append(p.turns, turn)
	if len(p.decisions) == 0 {
		return gambit.StandPat()
	}
	d := p.decisions[0]
	p.decisions = p.decisions[1:]
	return d
}

// Turns returns every turn the policy was asked to decide.
func (p *ScriptedPolicy) Turns() []gambit.Turn {
	p.lock.Lock()
	defer p.lock.Unlock()
	turns := make([]gambit.Turn, len(p.turns))
	copy(turns, p.turns)
	return turns
}

func (p *ScriptedPolicy) Remaining() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.decisions)
}
