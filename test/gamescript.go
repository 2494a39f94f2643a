package test

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"tavern.com/gameserver/bot"
	"tavern.com/gameserver/dice"
	"tavern.com/gameserver/gambit"
	"tavern.com/gameserver/game"
	"tavern.com/gameserver/gamescript"
	"tavern.com/gameserver/lizardrace"
)

// GameScript plays one script against a real session. Dice and opponent
// decisions come from the script.
type GameScript struct {
	*gamescript.Script
	filename string
	result   *ScriptTestResult

	roller  *dice.ScriptedRoller
	policy  *bot.ScriptedPolicy
	manager *game.Manager
	session *game.Session
}

func (g *GameScript) run() error {
	err := g.configure()
	if err != nil {
		return err
	}
	defer g.manager.Close()

	var view game.TableView
	if g.Game == string(game.GameType__GAMBIT_OF_ORD) {
		view, err = g.playRounds()
	} else {
		view, err = g.playSteps()
	}
	if err != nil {
		return err
	}

	g.verify(g.Result, "result", view)
	if g.roller.Remaining() != 0 {
		g.result.addError(fmt.Errorf("[result section] %d scripted rolls were never used", g.roller.Remaining()))
	}
	if g.policy.Remaining() != 0 {
		g.result.addError(fmt.Errorf("[result section] %d opponent decisions were never used", g.policy.Remaining()))
	}
	return nil
}

// configures the session with the scripted dice and opponents
func (g *GameScript) configure() error {
	rolls := g.Rolls
	if g.Game == string(game.GameType__GAMBIT_OF_ORD) {
		rolls = g.AllDraws()
	}
	g.roller = dice.NewScriptedRoller(rolls...)

	opponentDecisions := make([]gambit.Decision, 0)
	for _, d := range g.AllOpponentDecisions() {
		opponentDecisions = append(opponentDecisions, gambit.Decision{Action: gambit.Action(d.Action), Amount: d.Amount})
	}
	g.policy = bot.NewScriptedPolicy(opponentDecisions...)

	manager, err := game.NewManager(game.ManagerConfig{
		DisableDelays: true,
		StartingGold:  g.Balance,
		Opponents:     g.Opponents,
		Roller:        g.roller,
		Policy:        g.policy,
	})
	if err != nil {
		return errors.Wrap(err, "Error while creating game manager")
	}
	g.manager = manager

	session, err := manager.NewSession(game.GameType(g.Game))
	if err != nil {
		return errors.Wrapf(err, "Error while creating %s session", g.Game)
	}
	g.session = session
	return nil
}

func (g *GameScript) playRounds() (game.TableView, error) {
	view, err := g.session.Apply(game.Command{Type: game.Command__START, Amount: g.Ante})
	if err != nil {
		return view, errors.Wrap(err, "Could not start the game")
	}

	for i, round := range g.Rounds {
		where := fmt.Sprintf("round %d", i+1)
		for _, attempt := range round.Attempts {
			view, err = g.session.Apply(decisionCommand(attempt))
			g.checkError(where, attempt.Action, attempt.ExpectError, err)
		}
		if round.Human != nil {
			view, err = g.session.Apply(decisionCommand(*round.Human))
			g.checkError(where, round.Human.Action, round.Human.ExpectError, err)
		}
		g.verify(round.Verify, where, view)
	}
	return g.session.View(), nil
}

func (g *GameScript) playSteps() (game.TableView, error) {
	view := g.session.View()
	for i, step := range g.Steps {
		where := fmt.Sprintf("step %d", i+1)
		var err error
		view, err = g.session.Apply(game.Command{
			Type:   game.CommandType(step.Action),
			Amount: step.Amount,
			Lizard: step.Lizard,
		})
		g.checkError(where, step.Action, step.ExpectError, err)
		g.verify(step.Verify, where, view)
	}
	return g.session.View(), nil
}

func decisionCommand(d gamescript.Decision) game.Command {
	return game.Command{Type: game.CommandType(d.Action), Amount: d.Amount}
}

func (g *GameScript) checkError(where string, action string, expected string, err error) {
	if err == nil {
		if expected != "" {
			g.result.addError(fmt.Errorf("[%s section] %s should have been rejected with %s", where, action, expected))
		}
		return
	}
	actual := game.RejectReason(err)
	if expected == "" {
		g.result.addError(fmt.Errorf("[%s section] %s was rejected: %s", where, action, err.Error()))
	} else if actual != expected {
		g.result.addError(fmt.Errorf("[%s section] %s was rejected with %s, expected %s", where, action, actual, expected))
	}
}

func (g *GameScript) verify(v gamescript.Verification, where string, view game.TableView) {
	if v.State != "" && v.State != view.State {
		g.result.addError(fmt.Errorf("[%s section] Expected state %s, actual %s", where, v.State, view.State))
	}
	if v.Balance != nil && *v.Balance != view.Balance {
		g.result.addError(fmt.Errorf("[%s section] Expected balance %d, actual %d", where, *v.Balance, view.Balance))
	}
	if v.MessageContains != "" && !strings.Contains(view.Message, v.MessageContains) {
		g.result.addError(fmt.Errorf("[%s section] Message [%s] does not contain [%s]", where, view.Message, v.MessageContains))
	}
	if v.Pot == nil && v.Round == nil && v.Winners == nil && v.LogContains == nil {
		return
	}

	switch view.GameType {
	case game.GameType__GAMBIT_OF_ORD:
		var snapshot gambit.Snapshot
		if err := unmarshalTable(view, &snapshot); err != nil {
			g.result.addError(fmt.Errorf("[%s section] %s", where, err.Error()))
			return
		}
		g.verifyGambit(v, where, snapshot)
	case game.GameType__QUON_A_DRENSAL:
		var snapshot lizardrace.Snapshot
		if err := unmarshalTable(view, &snapshot); err != nil {
			g.result.addError(fmt.Errorf("[%s section] %s", where, err.Error()))
			return
		}
		winners := make([]string, len(snapshot.Winners))
		for i, idx := range snapshot.Winners {
			winners[i] = snapshot.Lizards[idx].Name
		}
		g.verifyWinners(v, where, winners)
	default:
		g.result.addError(fmt.Errorf("[%s section] %s has no pot, round, winners or log to verify", where, view.GameType))
	}
}

func (g *GameScript) verifyGambit(v gamescript.Verification, where string, snapshot gambit.Snapshot) {
	if v.Pot != nil && *v.Pot != snapshot.Pot {
		g.result.addError(fmt.Errorf("[%s section] Expected pot %d, actual %d", where, *v.Pot, snapshot.Pot))
	}
	if v.Round != nil && *v.Round != snapshot.Round {
		g.result.addError(fmt.Errorf("[%s section] Expected round %d, actual %d", where, *v.Round, snapshot.Round))
	}
	for _, entry := range v.LogContains {
		found := false
		for _, logEntry := range snapshot.Log {
			if logEntry == entry {
				found = true
				break
			}
		}
		if !found {
			g.result.addError(fmt.Errorf("[%s section] Log does not contain [%s]", where, entry))
		}
	}
	var winners []string
	if snapshot.Outcome != nil {
		winners = snapshot.Outcome.Winners
	}
	g.verifyWinners(v, where, winners)
}

func (g *GameScript) verifyWinners(v gamescript.Verification, where string, winners []string) {
	if v.Winners == nil {
		return
	}
	if strings.Join(v.Winners, ",") != strings.Join(winners, ",") {
		g.result.addError(fmt.Errorf("[%s section] Expected winners %v, actual %v", where, v.Winners, winners))
	}
}
