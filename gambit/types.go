package gambit

import (
	"fmt"

	"tavern.com/gameserver/dice"
)

const (
	DefaultAnte      = 50
	DefaultOpponents = 3
	NumRounds        = 3
	HumanName        = "You"
)

// DieForRound: round 1 draws a d8, round 2 a d6 and round 3 a d4.
func DieForRound(round int) int {
	switch round {
	case 1:
		return dice.D8
	case 2:
		return dice.D6
	case 3:
		return dice.D4
	}
	return dice.D6
}

func opponentName(i int) string {
	return fmt.Sprintf("Opponent %d", i)
}

type Action string

const (
	ActionRaise    Action = "RAISE"
	ActionStandPat Action = "STAND_PAT"
	ActionFold     Action = "FOLD"
)

// Decision is what a player does with a betting turn. Amount is only used
// by raises.
type Decision struct {
	Action Action `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

func Raise(amount int) Decision {
	return Decision{Action: ActionRaise, Amount: amount}
}

func StandPat() Decision {
	return Decision{Action: ActionStandPat}
}

func Fold() Decision {
	return Decision{Action: ActionFold}
}

// Turn is everything an opponent may look at when deciding.
type Turn struct {
	Player      string
	Round       int
	LastRoll    int
	MaxPossible int
	Ante        int
}

// Policy decides for the opponents. It is called once per active opponent
// per round.
type Policy interface {
	Decide(turn Turn) Decision
}

type PolicyFunc func(turn Turn) Decision

func (f PolicyFunc) Decide(turn Turn) Decision {
	return f(turn)
}

// Purse is the human player's gold.
type Purse interface {
	Debit(amount int) error
	Credit(amount int) error
	Balance() int
}

type Player struct {
	Name    string `json:"name"`
	IsHuman bool   `json:"isHuman"`
	Hand    []int  `json:"hand"`
	Cards   int    `json:"cards"`
	Total   int    `json:"total"`
	Bet     int    `json:"bet"`
	Folded  bool   `json:"folded"`
}

func (p *Player) draw(value int) {
	p.Hand = append(p.Hand, value)
	p.Cards = len(p.Hand)
	p.Total = dice.Sum(p.Hand)
}

func (p *Player) lastRoll() int {
	if len(p.Hand) == 0 {
		return 0
	}
	return p.Hand[len(p.Hand)-1]
}

func (p *Player) clone() Player {
	c := *p
	c.Hand = make([]int, len(p.Hand))
	copy(c.Hand, p.Hand)
	return c
}

type Table struct {
	Pot     int
	Round   int
	Players []*Player
}

func (t *Table) human() *Player {
	for _, p := range t.Players {
		if p.IsHuman {
			return p
		}
	}
	return nil
}

func (t *Table) active() []*Player {
	active := make([]*Player, 0, len(t.Players))
	for _, p := range t.Players {
		if !p.Folded {
			active = append(active, p)
		}
	}
	return active
}

func (t *Table) totalBets() int {
	total := 0
	for _, p := range t.Players {
		total += p.Bet
	}
	return total
}
