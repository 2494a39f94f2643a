package gamescript

import (
	"fmt"
	"io/ioutil"

	mapset "github.com/deckarep/golang-set"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Script contains game script YAML content.
type Script struct {
	Disabled    bool   `yaml:"disabled"`
	Description string `yaml:"description"`
	Game        string `yaml:"game"`
	Balance     int    `yaml:"balance"`
	Opponents   int    `yaml:"opponents"`
	Ante        int    `yaml:"ante"`
	// Gambit of Ord is scripted round by round.
	Rounds []Round `yaml:"rounds"`
	// The dice games are scripted as a flat list of rolls and steps.
	Rolls  []int        `yaml:"rolls"`
	Steps  []Step       `yaml:"steps"`
	Result Verification `yaml:"result"`
}

// Round scripts one betting round. Draws are the cards dealt for the round
// in table order, opponents are the opponents' decisions in table order.
// Attempts are human decisions that must be rejected before Human is made.
type Round struct {
	Draws     []int        `yaml:"draws"`
	Attempts  []Decision   `yaml:"attempts"`
	Human     *Decision    `yaml:"human"`
	Opponents []Decision   `yaml:"opponents"`
	Verify    Verification `yaml:"verify"`
}

type Decision struct {
	Action      string `yaml:"action"`
	Amount      int    `yaml:"amount"`
	ExpectError string `yaml:"expect-error"`
}

type Step struct {
	Action      string       `yaml:"action"`
	Amount      int          `yaml:"amount"`
	Lizard      *int         `yaml:"lizard"`
	ExpectError string       `yaml:"expect-error"`
	Verify      Verification `yaml:"verify"`
}

type Verification struct {
	State           string   `yaml:"state"`
	Balance         *int     `yaml:"balance"`
	Pot             *int     `yaml:"pot"`
	Round           *int     `yaml:"round"`
	Winners         []string `yaml:"winners"`
	MessageContains string   `yaml:"message-contains"`
	LogContains     []string `yaml:"log-contains"`
}

var (
	gameTypes   = mapset.NewSet("GAMBIT_OF_ORD", "AVANDRAS_FAVOR", "QUON_A_DRENSAL")
	decisions   = mapset.NewSet("RAISE", "STAND_PAT", "FOLD")
	stepActions = mapset.NewSet("START", "RAISE", "STAND_PAT", "FOLD", "ROLL_AGAIN", "RESET")
)

// ReadGameScript reads game script yaml file.
func ReadGameScript(fileName string) (*Script, error) {
	bytes, err := ioutil.ReadFile(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "Error reading game script file [%s]", fileName)
	}

	var script Script
	err = yaml.Unmarshal(bytes, &script)
	if err != nil {
		return nil, errors.Wrapf(err, "Error parsing YAML file [%s]", fileName)
	}

	err = script.Validate()
	if err != nil {
		return nil, errors.Wrapf(err, "Error validating script [%s]", fileName)
	}
	return &script, nil
}

func (s *Script) Validate() error {
	if !gameTypes.Contains(s.Game) {
		return fmt.Errorf("Invalid game [%s]", s.Game)
	}
	if s.Game == "GAMBIT_OF_ORD" {
		if len(s.Rounds) == 0 || len(s.Rounds) > 3 {
			return fmt.Errorf("A gambit script needs 1 to 3 rounds, got %d", len(s.Rounds))
		}
		if len(s.Steps) > 0 {
			return fmt.Errorf("A gambit script is scripted with rounds, not steps")
		}
		for i, round := range s.Rounds {
			for _, d := range round.Attempts {
				if !decisions.Contains(d.Action) || d.ExpectError == "" {
					return fmt.Errorf("Attempt [%s] in round %d needs a valid action and expect-error", d.Action, i+1)
				}
			}
			if round.Human != nil && !decisions.Contains(round.Human.Action) {
				return fmt.Errorf("Invalid human action [%s] in round %d", round.Human.Action, i+1)
			}
			for _, d := range round.Opponents {
				if !decisions.Contains(d.Action) {
					return fmt.Errorf("Invalid opponent action [%s] in round %d", d.Action, i+1)
				}
			}
		}
		return nil
	}

	if len(s.Rounds) > 0 {
		return fmt.Errorf("Only gambit scripts have rounds")
	}
	for i, step := range s.Steps {
		if !stepActions.Contains(step.Action) {
			return fmt.Errorf("Invalid action [%s] in step %d", step.Action, i+1)
		}
	}
	return nil
}

// AllDraws returns the draws of every round in the order they are dealt.
func (s *Script) AllDraws() []int {
	draws := make([]int, 0)
	for _, round := range s.Rounds {
		draws = append(draws, round.Draws...)
	}
	return draws
}

// AllOpponentDecisions returns the opponent decisions of every round in the
// order they are asked for.
func (s *Script) AllOpponentDecisions() []Decision {
	all := make([]Decision, 0)
	for _, round := range s.Rounds {
		all = append(all, round.Opponents...)
	}
	return all
}
