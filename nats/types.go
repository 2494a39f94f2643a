package nats

import "tavern.com/gameserver/game"

// NewGameRequest is sent on the new game subject to open a table.
type NewGameRequest struct {
	GameType game.GameType `json:"gameType"`
}

// CommandReply answers a command or a new game request. Reason is the
// rejection reason when Error is set.
type CommandReply struct {
	View   *game.TableView `json:"view,omitempty"`
	Error  string          `json:"error,omitempty"`
	Reason string          `json:"reason,omitempty"`
}
