package game

import (
	"encoding/json"
	"time"
)

type GameType string

const (
	GameType__GAMBIT_OF_ORD  GameType = "GAMBIT_OF_ORD"
	GameType__AVANDRAS_FAVOR GameType = "AVANDRAS_FAVOR"
	GameType__QUON_A_DRENSAL GameType = "QUON_A_DRENSAL"
)

var GameTypes = []GameType{
	GameType__GAMBIT_OF_ORD,
	GameType__AVANDRAS_FAVOR,
	GameType__QUON_A_DRENSAL,
}

func (t GameType) Valid() bool {
	for _, gt := range GameTypes {
		if gt == t {
			return true
		}
	}
	return false
}

type CommandType string

const (
	Command__START      CommandType = "START"
	Command__RAISE      CommandType = "RAISE"
	Command__STAND_PAT  CommandType = "STAND_PAT"
	Command__FOLD       CommandType = "FOLD"
	Command__ROLL_AGAIN CommandType = "ROLL_AGAIN"
	Command__RESET      CommandType = "RESET"
)

// Command is one player input. Amount is the ante, bet or raise depending on
// the command; zero means the game's default for START. Lizard is only
// read when starting a race.
type Command struct {
	Type   CommandType `json:"type" yaml:"type"`
	Amount int         `json:"amount,omitempty" yaml:"amount"`
	Lizard *int        `json:"lizard,omitempty" yaml:"lizard"`
}

// TableView is what observers get after every transition. Table holds the
// game specific snapshot, with opponent cards hidden until the reveal.
type TableView struct {
	GameCode   string          `json:"gameCode"`
	GameType   GameType        `json:"gameType"`
	State      string          `json:"state"`
	Generation uint64          `json:"generation"`
	Balance    int             `json:"balance"`
	Message    string          `json:"message"`
	Table      json.RawMessage `json:"table"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type ViewReceiver func(view TableView)
