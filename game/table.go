package game

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"tavern.com/gameserver/dice"
	"tavern.com/gameserver/favor"
	"tavern.com/gameserver/gambit"
	"tavern.com/gameserver/lizardrace"
	"tavern.com/gameserver/wallet"
)

// table puts one engine behind the command set of a session.
type table interface {
	apply(cmd Command) error
	pending() bool
	advance(gen uint64) (bool, error)
	stepDelay(delays Delays) time.Duration
	generation() uint64
	state() string
	complete() bool
	message() string
	snapshot() interface{}
}

type tableDeps struct {
	roller    dice.Roller
	purse     *wallet.Purse
	policy    gambit.Policy
	opponents int
	logger    *zerolog.Logger
}

func newTable(gameType GameType, deps tableDeps) (table, error) {
	switch gameType {
	case GameType__GAMBIT_OF_ORD:
		return &gambitTable{
			engine: gambit.NewEngine(deps.roller, deps.purse, deps.policy, gambit.Config{
				Opponents: deps.opponents,
				Logger:    deps.logger,
			}),
		}, nil
	case GameType__AVANDRAS_FAVOR:
		return &favorTable{engine: favor.NewEngine(deps.roller, deps.purse, deps.logger)}, nil
	case GameType__QUON_A_DRENSAL:
		return &raceTable{race: lizardrace.NewRace(deps.roller, deps.purse, deps.logger)}, nil
	}
	return nil, errors.Wrapf(ErrUnknownGameType, "%q", gameType)
}

func unsupported(gameType GameType, cmd Command) error {
	return UnsupportedCommandError{GameType: gameType, Command: cmd.Type}
}

type gambitTable struct {
	engine *gambit.Engine
}

func (t *gambitTable) apply(cmd Command) error {
	switch cmd.Type {
	case Command__START:
		ante := cmd.Amount
		if ante == 0 {
			ante = gambit.DefaultAnte
		}
		return t.engine.StartGame(ante)
	case Command__RAISE:
		return t.engine.SubmitHumanDecision(gambit.Raise(cmd.Amount))
	case Command__STAND_PAT:
		return t.engine.SubmitHumanDecision(gambit.StandPat())
	case Command__FOLD:
		return t.engine.SubmitHumanDecision(gambit.Fold())
	case Command__RESET:
		t.engine.Reset()
		return nil
	}
	return unsupported(GameType__GAMBIT_OF_ORD, cmd)
}

func (t *gambitTable) pending() bool {
	return t.engine.Pending()
}

func (t *gambitTable) advance(gen uint64) (bool, error) {
	return t.engine.AdvanceGeneration(gen)
}

func (t *gambitTable) stepDelay(delays Delays) time.Duration {
	if t.engine.State() == gambit.State__REVEALING {
		return millis(delays.Reveal)
	}
	snapshot := t.engine.Snapshot()
	if len(snapshot.Players) > 0 && snapshot.Players[0].Folded {
		// the opponents play the remaining rounds alone
		return millis(delays.NextRound)
	}
	return millis(delays.OpponentsAct)
}

func (t *gambitTable) generation() uint64 {
	return t.engine.Generation()
}

func (t *gambitTable) state() string {
	return t.engine.State()
}

func (t *gambitTable) complete() bool {
	return t.engine.State() == gambit.State__COMPLETE
}

func (t *gambitTable) message() string {
	return t.engine.Message()
}

func (t *gambitTable) snapshot() interface{} {
	return t.engine.Snapshot().Masked()
}

type favorTable struct {
	engine *favor.Engine
}

func (t *favorTable) apply(cmd Command) error {
	switch cmd.Type {
	case Command__START:
		bet := cmd.Amount
		if bet == 0 {
			bet = favor.MinBet
		}
		return t.engine.StartGame(bet)
	case Command__ROLL_AGAIN:
		return t.engine.RollAgain()
	case Command__STAND_PAT:
		return t.engine.StandPat()
	case Command__RESET:
		t.engine.Reset()
		return nil
	}
	return unsupported(GameType__AVANDRAS_FAVOR, cmd)
}

func (t *favorTable) pending() bool {
	return false
}

func (t *favorTable) advance(gen uint64) (bool, error) {
	return false, nil
}

func (t *favorTable) stepDelay(delays Delays) time.Duration {
	return 0
}

func (t *favorTable) generation() uint64 {
	return t.engine.Generation()
}

func (t *favorTable) state() string {
	return t.engine.State()
}

func (t *favorTable) complete() bool {
	state := t.engine.State()
	return state == favor.State__WON || state == favor.State__LOST
}

func (t *favorTable) message() string {
	return t.engine.Snapshot().Message
}

func (t *favorTable) snapshot() interface{} {
	return t.engine.Snapshot()
}

type raceTable struct {
	race *lizardrace.Race
}

func (t *raceTable) apply(cmd Command) error {
	switch cmd.Type {
	case Command__START:
		bet := cmd.Amount
		if bet == 0 {
			bet = lizardrace.MinBet
		}
		lizard := -1
		if cmd.Lizard != nil {
			lizard = *cmd.Lizard
		}
		return t.race.StartRace(bet, lizard)
	case Command__RESET:
		t.race.Reset()
		return nil
	}
	return unsupported(GameType__QUON_A_DRENSAL, cmd)
}

func (t *raceTable) pending() bool {
	return t.race.Pending()
}

func (t *raceTable) advance(gen uint64) (bool, error) {
	return t.race.AdvanceGeneration(gen)
}

func (t *raceTable) stepDelay(delays Delays) time.Duration {
	return millis(delays.RaceFinish)
}

func (t *raceTable) generation() uint64 {
	return t.race.Generation()
}

func (t *raceTable) state() string {
	return t.race.State()
}

func (t *raceTable) complete() bool {
	return t.race.State() == lizardrace.State__COMPLETE
}

func (t *raceTable) message() string {
	return t.race.Snapshot().Message
}

func (t *raceTable) snapshot() interface{} {
	return t.race.Snapshot()
}
