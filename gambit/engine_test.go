package gambit

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavern.com/gameserver/dice"
	"tavern.com/gameserver/wallet"
)

func standPatPolicy() Policy {
	return PolicyFunc(func(turn Turn) Decision { return StandPat() })
}

func foldPolicy(calls *int) Policy {
	return PolicyFunc(func(turn Turn) Decision {
		*calls++
		return Fold()
	})
}

func newTestEngine(balance int, opponents int, policy Policy, rolls ...int) (*Engine, *wallet.Purse, *dice.ScriptedRoller) {
	roller := dice.NewScriptedRoller(rolls...)
	purse := wallet.NewPurse(balance)
	return NewEngine(roller, purse, policy, Config{Opponents: opponents}), purse, roller
}

// playOut stands pat whenever the human is asked and advances otherwise.
func playOut(t *testing.T, e *Engine) {
	for i := 0; i < 20 && e.State() != State__COMPLETE; i++ {
		if e.State() == State__AWAITING_HUMAN {
			require.NoError(t, e.SubmitHumanDecision(StandPat()))
			continue
		}
		require.NoError(t, e.Advance())
	}
	require.Equal(t, State__COMPLETE, e.State())
}

func TestHumanWinsWithHighestTotal(t *testing.T) {
	e, purse, roller := newTestEngine(1000, 3, standPatPolicy(),
		8, 1, 1, 1, // d8
		6, 1, 1, 1, // d6
		4, 1, 1, 1, // d4
	)
	require.NoError(t, e.StartGame(DefaultAnte))
	assert.Equal(t, 950, purse.Balance())
	assert.Equal(t, "First draw! Each player draws one card (d8).", e.Message())

	playOut(t, e)
	assert.Equal(t, 0, roller.Remaining())

	snapshot := e.Snapshot()
	require.NotNil(t, snapshot.Outcome)
	assert.Equal(t, OutcomeWinner, snapshot.Outcome.Kind)
	assert.Equal(t, []string{HumanName}, snapshot.Outcome.Winners)
	assert.Equal(t, 200, snapshot.Pot)
	assert.Equal(t, 1150, purse.Balance())
	assert.Equal(t, "You win with a total of 18! You win 200 gp!", snapshot.Message)
	assert.Equal(t, []int{8, 6, 4}, snapshot.Players[0].Hand)
}

func TestHumanRaise(t *testing.T) {
	e, purse, _ := newTestEngine(150, 3, standPatPolicy(), 5, 5, 5, 5)
	require.NoError(t, e.StartGame(DefaultAnte))
	require.Equal(t, 100, purse.Balance())

	require.NoError(t, e.SubmitHumanDecision(Raise(25)))
	snapshot := e.Snapshot()
	assert.Equal(t, 75, purse.Balance())
	assert.Equal(t, 225, snapshot.Pot)
	assert.Equal(t, 75, snapshot.Players[0].Bet)
	assert.Equal(t, "You raised 25 gp", snapshot.Log[len(snapshot.Log)-1])
	assert.Equal(t, State__PROCESSING_AI, snapshot.State)
}

func TestHumanRaiseInsufficientFunds(t *testing.T) {
	e, purse, _ := newTestEngine(150, 3, standPatPolicy(), 5, 5, 5, 5)
	require.NoError(t, e.StartGame(DefaultAnte))
	before := e.Snapshot()

	err := e.SubmitHumanDecision(Raise(200))
	require.Error(t, err)
	assert.True(t, errors.Is(err, wallet.ErrInsufficientFunds))
	assert.Equal(t, 100, purse.Balance())

	after := e.Snapshot()
	assert.Equal(t, "Not enough gold to raise!", after.Message)
	after.Message = before.Message
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("state changed after a rejected raise (-before +after):\n%s", diff)
	}
}

func TestHumanRaiseInvalidAmount(t *testing.T) {
	e, purse, _ := newTestEngine(1000, 3, standPatPolicy(), 5, 5, 5, 5)
	require.NoError(t, e.StartGame(DefaultAnte))
	for _, amount := range []int{0, -10} {
		err := e.SubmitHumanDecision(Raise(amount))
		assert.True(t, errors.Is(err, ErrInvalidAmount))
	}
	assert.Equal(t, 950, purse.Balance())
	assert.Equal(t, State__AWAITING_HUMAN, e.State())
}

func TestHumanFoldsAndOpponentsPlayOn(t *testing.T) {
	e, purse, roller := newTestEngine(1000, 2, standPatPolicy(),
		3, 2, 7, // d8
		5, 1, // d6
		2, 4, // d4
	)
	require.NoError(t, e.StartGame(DefaultAnte))
	require.NoError(t, e.SubmitHumanDecision(Fold()))
	assert.Equal(t, State__PROCESSING_AI, e.State())

	// round 2 and 3 draws never wait for the human
	require.NoError(t, e.Advance())
	assert.Equal(t, State__PROCESSING_AI, e.State())
	assert.Equal(t, 2, e.Snapshot().Round)
	require.NoError(t, e.Advance())
	assert.Equal(t, State__PROCESSING_AI, e.State())
	require.NoError(t, e.Advance())
	assert.Equal(t, State__REVEALING, e.State())
	require.NoError(t, e.Advance())
	assert.Equal(t, State__COMPLETE, e.State())
	assert.Equal(t, 0, roller.Remaining())

	snapshot := e.Snapshot()
	assert.Equal(t, 950, purse.Balance())
	assert.Equal(t, []int{3}, snapshot.Players[0].Hand)
	assert.Equal(t, []string{"Opponent 2"}, snapshot.Outcome.Winners)
	assert.Equal(t, 12, snapshot.Outcome.WinningTotal)
	assert.Equal(t, "Opponent 2 wins with a total of 12. You lose 50 gp.", snapshot.Message)
}

func TestHumanFoldLeavingOnePlayerEndsGame(t *testing.T) {
	e, purse, _ := newTestEngine(1000, 1, standPatPolicy(), 3, 2)
	require.NoError(t, e.StartGame(DefaultAnte))
	require.NoError(t, e.SubmitHumanDecision(Fold()))

	assert.Equal(t, State__COMPLETE, e.State())
	snapshot := e.Snapshot()
	assert.Equal(t, OutcomeUncontested, snapshot.Outcome.Kind)
	assert.Equal(t, "Opponent 1 wins! Everyone else folded. You lose 50 gp.", snapshot.Message)
	assert.Equal(t, 950, purse.Balance())
}

func TestOpponentFoldsAreSequential(t *testing.T) {
	calls := 0
	e, purse, _ := newTestEngine(1000, 3, foldPolicy(&calls), 3, 2, 7, 1)
	require.NoError(t, e.StartGame(DefaultAnte))
	require.NoError(t, e.SubmitHumanDecision(Fold()))
	require.NoError(t, e.Advance())

	assert.Equal(t, State__COMPLETE, e.State())
	assert.Equal(t, 2, calls)
	snapshot := e.Snapshot()
	assert.False(t, snapshot.Players[3].Folded)
	assert.Equal(t, []string{"Opponent 3"}, snapshot.Outcome.Winners)
	assert.Equal(t, 950, purse.Balance())
}

func TestEveryoneElseFolds(t *testing.T) {
	calls := 0
	e, purse, _ := newTestEngine(1000, 3, foldPolicy(&calls), 3, 2, 7, 1)
	require.NoError(t, e.StartGame(DefaultAnte))
	require.NoError(t, e.SubmitHumanDecision(StandPat()))
	require.NoError(t, e.Advance())

	assert.Equal(t, State__COMPLETE, e.State())
	assert.Equal(t, "Everyone else folded! You win the pot of 200 gp!", e.Message())
	assert.Equal(t, 1150, purse.Balance())
}

func TestOpponentRaisesGrowThePot(t *testing.T) {
	policy := PolicyFunc(func(turn Turn) Decision {
		assert.Equal(t, DieForRound(turn.Round), turn.MaxPossible)
		assert.Equal(t, DefaultAnte, turn.Ante)
		return Raise(10)
	})
	e, purse, _ := newTestEngine(1000, 3, policy, 3, 2, 7, 1, 1, 1, 1, 1)
	require.NoError(t, e.StartGame(DefaultAnte))
	require.NoError(t, e.SubmitHumanDecision(StandPat()))
	require.NoError(t, e.Advance())

	snapshot := e.Snapshot()
	assert.Equal(t, 230, snapshot.Pot)
	assert.Equal(t, 60, snapshot.Players[1].Bet)
	assert.Equal(t, 950, purse.Balance())
	assert.Contains(t, snapshot.Log, "Opponent 2 raised 10 gp")
	assert.Equal(t, 2, snapshot.Round)
	assert.Equal(t, State__AWAITING_HUMAN, snapshot.State)
}

func TestOpponentRaiseWithoutAmountStandsPat(t *testing.T) {
	amounts := map[string]int{"Opponent 1": 0, "Opponent 2": -5, "Opponent 3": 0}
	policy := PolicyFunc(func(turn Turn) Decision { return Raise(amounts[turn.Player]) })
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	roller := dice.NewScriptedRoller(3, 2, 7, 1, 1, 1, 1, 1)
	purse := wallet.NewPurse(1000)
	e := NewEngine(roller, purse, policy, Config{Opponents: 3, Logger: &logger})

	require.NoError(t, e.StartGame(DefaultAnte))
	require.NoError(t, e.SubmitHumanDecision(StandPat()))
	require.NoError(t, e.Advance())

	snapshot := e.Snapshot()
	assert.Equal(t, 200, snapshot.Pot)
	assert.Equal(t, DefaultAnte, snapshot.Players[2].Bet)
	assert.Contains(t, snapshot.Log, "Opponent 1 stands pat")
	assert.Contains(t, snapshot.Log, "Opponent 2 stands pat")
	assert.Contains(t, buf.String(), "Ignoring raise of -5 gp")
	assert.Contains(t, buf.String(), `"playerName":"Opponent 2"`)
	assert.Equal(t, State__AWAITING_HUMAN, snapshot.State)
}

func TestStartGameRejections(t *testing.T) {
	e, purse, roller := newTestEngine(40, 3, standPatPolicy(), 1, 1, 1, 1)

	err := e.StartGame(DefaultAnte)
	assert.True(t, errors.Is(err, wallet.ErrInsufficientFunds))
	assert.Equal(t, "Not enough gold!", e.Message())
	assert.Equal(t, 40, purse.Balance())
	assert.Equal(t, 4, roller.Remaining())
	assert.Equal(t, State__IDLE, e.State())

	err = e.StartGame(0)
	assert.True(t, errors.Is(err, ErrInvalidAmount))

	require.NoError(t, e.StartGame(10))
	err = e.StartGame(10)
	var stateErr UnexpectedStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, State__AWAITING_HUMAN, stateErr.State)
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestActionsOutsideTheirState(t *testing.T) {
	e, _, _ := newTestEngine(1000, 3, standPatPolicy(), 1, 1, 1, 1)
	assert.True(t, errors.Is(e.SubmitHumanDecision(StandPat()), ErrInvalidState))
	assert.True(t, errors.Is(e.Advance(), ErrInvalidState))

	require.NoError(t, e.StartGame(DefaultAnte))
	assert.False(t, e.Pending())
	assert.True(t, errors.Is(e.Advance(), ErrInvalidState))

	require.NoError(t, e.SubmitHumanDecision(StandPat()))
	assert.True(t, e.Pending())
	assert.True(t, errors.Is(e.SubmitHumanDecision(StandPat()), ErrInvalidState))
}

func TestDrawFailureIsRetried(t *testing.T) {
	e, _, roller := newTestEngine(1000, 3, standPatPolicy(), 1, 1, 1, 1)
	require.NoError(t, e.StartGame(DefaultAnte))
	require.NoError(t, e.SubmitHumanDecision(StandPat()))

	err := e.Advance()
	assert.True(t, errors.Is(err, dice.ErrScriptExhausted))
	logSize := len(e.Snapshot().Log)

	roller.Push(2, 2, 2, 2)
	require.NoError(t, e.Advance())
	snapshot := e.Snapshot()
	assert.Equal(t, 2, snapshot.Round)
	// the opponents do not decide twice
	assert.Len(t, snapshot.Log, logSize+4)
}

func TestResetFromEveryState(t *testing.T) {
	reachers := map[string]func(e *Engine){
		State__IDLE: func(e *Engine) {},
		State__AWAITING_HUMAN: func(e *Engine) {
			require.NoError(t, e.StartGame(DefaultAnte))
		},
		State__PROCESSING_AI: func(e *Engine) {
			require.NoError(t, e.StartGame(DefaultAnte))
			require.NoError(t, e.SubmitHumanDecision(StandPat()))
		},
		State__COMPLETE: func(e *Engine) {
			require.NoError(t, e.StartGame(DefaultAnte))
			playOut(t, e)
		},
	}
	for state, reach := range reachers {
		e, _, _ := newTestEngine(1000, 3, standPatPolicy(), 4, 4, 4, 4, 3, 3, 3, 3, 2, 2, 2, 2)
		reach(e)
		require.Equal(t, state, e.State())
		gen := e.Generation()

		for i := 0; i < 2; i++ {
			e.Reset()
			snapshot := e.Snapshot()
			assert.Equal(t, State__IDLE, snapshot.State, state)
			assert.Equal(t, 0, snapshot.Pot, state)
			assert.Equal(t, 0, snapshot.Round, state)
			assert.Empty(t, snapshot.Players, state)
			assert.Nil(t, snapshot.Outcome, state)
		}
		assert.Equal(t, gen+2, e.Generation())
	}
}

func TestStaleStepIsDropped(t *testing.T) {
	e, _, _ := newTestEngine(1000, 3, standPatPolicy(), 4, 4, 4, 4, 3, 3, 3, 3, 2, 2, 2, 2)
	require.NoError(t, e.StartGame(DefaultAnte))
	require.NoError(t, e.SubmitHumanDecision(StandPat()))
	gen := e.Generation()

	e.Reset()
	applied, err := e.AdvanceGeneration(gen)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, State__IDLE, e.State())

	require.NoError(t, e.StartGame(DefaultAnte))
	require.NoError(t, e.SubmitHumanDecision(StandPat()))
	applied, err = e.AdvanceGeneration(e.Generation())
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 2, e.Snapshot().Round)
}

func TestMaskedSnapshot(t *testing.T) {
	e, _, _ := newTestEngine(1000, 3, standPatPolicy(), 4, 5, 6, 7)
	require.NoError(t, e.StartGame(DefaultAnte))

	masked := e.Snapshot().Masked()
	assert.Equal(t, []int{4}, masked.Players[0].Hand)
	for _, p := range masked.Players[1:] {
		assert.Nil(t, p.Hand)
		assert.Equal(t, 0, p.Total)
		assert.Equal(t, 1, p.Cards)
	}
	// the engine's own view is untouched
	assert.Equal(t, []int{5}, e.Snapshot().Players[1].Hand)
}

func TestTableInvariantsHoldForRandomGames(t *testing.T) {
	for seed := int64(1); seed <= 200; seed++ {
		rng := rand.New(rand.NewSource(seed))
		policy := PolicyFunc(func(turn Turn) Decision {
			switch rng.Intn(4) {
			case 0:
				return Raise(5 + rng.Intn(turn.Ante*3-4))
			case 1:
				return Fold()
			}
			return StandPat()
		})
		purse := wallet.NewPurse(200)
		e := NewEngine(dice.NewRandomRoller(seed), purse, policy, Config{})
		require.NoError(t, e.StartGame(DefaultAnte))

		folded := map[string]bool{}
		for step := 0; step < 50 && e.State() != State__COMPLETE; step++ {
			if e.State() == State__AWAITING_HUMAN {
				var d Decision
				switch rng.Intn(4) {
				case 0:
					d = Raise(1 + rng.Intn(150))
				case 1:
					d = Fold()
				default:
					d = StandPat()
				}
				err := e.SubmitHumanDecision(d)
				if err != nil {
					require.True(t, errors.Is(err, wallet.ErrInsufficientFunds), "seed %d: %v", seed, err)
				}
			} else {
				require.NoError(t, e.Advance(), "seed %d", seed)
			}

			snapshot := e.Snapshot()
			bets := 0
			for _, p := range snapshot.Players {
				bets += p.Bet
				if folded[p.Name] {
					require.True(t, p.Folded, "seed %d: %s unfolded", seed, p.Name)
				}
				folded[p.Name] = p.Folded
				if !p.Folded {
					require.Len(t, p.Hand, snapshot.Round, "seed %d: %s", seed, p.Name)
				} else {
					require.True(t, len(p.Hand) <= snapshot.Round)
				}
				require.Equal(t, dice.Sum(p.Hand), p.Total)
			}
			require.Equal(t, bets, snapshot.Pot, "seed %d", seed)
			require.True(t, snapshot.Pot >= DefaultAnte*4)
		}
		require.Equal(t, State__COMPLETE, e.State(), "seed %d", seed)
	}
}
