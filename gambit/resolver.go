package gambit

import (
	"fmt"
	"strings"
)

type OutcomeKind string

const (
	OutcomeUncontested OutcomeKind = "UNCONTESTED"
	OutcomeWinner      OutcomeKind = "WINNER"
	OutcomeSplit       OutcomeKind = "SPLIT"
)

// Outcome is the settled result of a table. HumanCredit is what has to be
// paid back to the human's purse; losses were already debited while betting.
type Outcome struct {
	Kind         OutcomeKind `json:"kind"`
	Winners      []string    `json:"winners"`
	WinningTotal int         `json:"winningTotal"`
	Pot          int         `json:"pot"`
	Share        int         `json:"share"`
	Remainder    int         `json:"remainder"`
	HumanWon     bool        `json:"humanWon"`
	HumanCredit  int         `json:"humanCredit"`
	Message      string      `json:"message"`
}

// Resolve settles the pot among the players that have not folded. A split
// pot is divided with floor division and the remainder goes to nobody.
func Resolve(players []Player, pot int) Outcome {
	active := make([]Player, 0, len(players))
	humanBet := 0
	for _, p := range players {
		if p.IsHuman {
			humanBet = p.Bet
		}
		if !p.Folded {
			active = append(active, p)
		}
	}

	if len(active) == 0 {
		return Outcome{Pot: pot, Remainder: pot, Message: "Nobody is left at the table."}
	}

	if len(active) == 1 {
		winner := active[0]
		outcome := Outcome{
			Kind:         OutcomeUncontested,
			Winners:      []string{winner.Name},
			WinningTotal: winner.Total,
			Pot:          pot,
			Share:        pot,
		}
		if winner.IsHuman {
			outcome.HumanWon = true
			outcome.HumanCredit = pot
			outcome.Message = fmt.Sprintf("Everyone else folded! You win the pot of %d gp!", pot)
		} else {
			outcome.Message = fmt.Sprintf("%s wins! Everyone else folded. You lose %d gp.", winner.Name, humanBet)
		}
		return outcome
	}

	maxTotal := active[0].Total
	for _, p := range active[1:] {
		if p.Total > maxTotal {
			maxTotal = p.Total
		}
	}
	winners := make([]Player, 0, len(active))
	for _, p := range active {
		if p.Total == maxTotal {
			winners = append(winners, p)
		}
	}
	names := make([]string, len(winners))
	humanWon := false
	for i, w := range winners {
		names[i] = w.Name
		if w.IsHuman {
			humanWon = true
		}
	}

	outcome := Outcome{
		Winners:      names,
		WinningTotal: maxTotal,
		Pot:          pot,
		HumanWon:     humanWon,
	}
	if len(winners) == 1 {
		outcome.Kind = OutcomeWinner
		outcome.Share = pot
		if humanWon {
			outcome.HumanCredit = pot
			outcome.Message = fmt.Sprintf("You win with a total of %d! You win %d gp!", maxTotal, pot)
		} else {
			outcome.Message = fmt.Sprintf("%s wins with a total of %d. You lose %d gp.", names[0], maxTotal, humanBet)
		}
		return outcome
	}

	share := pot / len(winners)
	outcome.Kind = OutcomeSplit
	outcome.Share = share
	outcome.Remainder = pot - share*len(winners)
	if humanWon {
		outcome.HumanCredit = share
		outcome.Message = fmt.Sprintf("Tie at %d! You split the pot and win %d gp.", maxTotal, share)
	} else {
		outcome.Message = fmt.Sprintf("%s tie at %d and split the pot. You lose %d gp.",
			strings.Join(names, " and "), maxTotal, humanBet)
	}
	return outcome
}
