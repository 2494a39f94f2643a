package gambit

// Snapshot is a copy of the table taken after a transition. It carries
// everything needed to draw the table without resolving anything again.
type Snapshot struct {
	State         string   `json:"state"`
	Generation    uint64   `json:"generation"`
	Round         int      `json:"round"`
	Pot           int      `json:"pot"`
	Ante          int      `json:"ante"`
	AwaitingHuman bool     `json:"awaitingHuman"`
	Players       []Player `json:"players"`
	Log           []string `json:"log"`
	Message       string   `json:"message"`
	Outcome       *Outcome `json:"outcome,omitempty"`
}

func (e *Engine) Snapshot() Snapshot {
	players := make([]Player, len(e.table.Players))
	for i, p := range e.table.Players {
		players[i] = p.clone()
	}
	logEntries := make([]string, len(e.log))
	copy(logEntries, e.log)

	snapshot := Snapshot{
		State:         e.sm.Current(),
		Generation:    e.generation,
		Round:         e.table.Round,
		Pot:           e.table.Pot,
		Ante:          e.ante,
		AwaitingHuman: e.sm.Is(State__AWAITING_HUMAN),
		Players:       players,
		Log:           logEntries,
		Message:       e.message,
	}
	if e.outcome != nil {
		outcome := *e.outcome
		snapshot.Outcome = &outcome
	}
	return snapshot
}

// Masked hides the opponents' cards until the reveal. Only the number of
// cards drawn stays visible.
func (s Snapshot) Masked() Snapshot {
	if s.State == State__REVEALING || s.State == State__COMPLETE {
		return s
	}
	players := make([]Player, len(s.Players))
	for i, p := range s.Players {
		if !p.IsHuman {
			p.Hand = nil
			p.Total = 0
		}
		players[i] = p
	}
	s.Players = players
	return s
}
