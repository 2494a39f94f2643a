package nats

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"tavern.com/gameserver/game"
	"tavern.com/gameserver/logging"
)

var natsLogger = log.With().Str("logger_name", "nats::game").Logger()

var json = jsoniter.ConfigCompatibleWithStandardLibrary

/**
Subjects used by the game server.
game.new            : request/reply, opens a table and replies with its first view
game.<code>.player  : request/reply, a player command for the table
game.<code>.table   : every view of the table is published here
*/
const (
	NewGameSubject       = "game.new"
	playerSubjectPattern = "game.*.player"
)

func PlayerSubject(gameCode string) string {
	return fmt.Sprintf("game.%s.player", gameCode)
}

func TableSubject(gameCode string) string {
	return fmt.Sprintf("game.%s.table", gameCode)
}

func gameCodeFromSubject(subject string) (string, error) {
	tokens := strings.Split(subject, ".")
	if len(tokens) != 3 || tokens[0] != "game" || tokens[2] != "player" || tokens[1] == "" {
		return "", fmt.Errorf("Invalid player subject: %s", subject)
	}
	return tokens[1], nil
}

// messages sent from player to game
func (gm *GameManager) player2Game(msg *natsgo.Msg) {
	gameCode, err := gameCodeFromSubject(msg.Subject)
	if err != nil {
		natsLogger.Error().Msg(err.Error())
		return
	}
	natsLogger.Debug().Str(logging.GameCodeKey, gameCode).
		Msg(fmt.Sprintf("Player->Game: %s", string(msg.Data)))
	gm.respond(msg, gm.handleCommand(gameCode, msg.Data))
}

func (gm *GameManager) newGame(msg *natsgo.Msg) {
	gm.respond(msg, gm.handleNewGame(msg.Data))
}

func (gm *GameManager) handleCommand(gameCode string, data []byte) CommandReply {
	var cmd game.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return CommandReply{Error: fmt.Sprintf("Invalid command: %s", err.Error()), Reason: "invalid_input"}
	}
	view, err := gm.manager.Apply(gameCode, cmd)
	if err != nil {
		reply := CommandReply{Error: err.Error(), Reason: game.RejectReason(err)}
		if view.GameCode != "" {
			reply.View = &view
		}
		return reply
	}
	return CommandReply{View: &view}
}

func (gm *GameManager) handleNewGame(data []byte) CommandReply {
	var req NewGameRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return CommandReply{Error: fmt.Sprintf("Invalid request: %s", err.Error()), Reason: "invalid_input"}
	}
	session, err := gm.manager.NewSession(req.GameType)
	if err != nil {
		return CommandReply{Error: err.Error(), Reason: game.RejectReason(err)}
	}
	view := session.View()
	return CommandReply{View: &view}
}

func (gm *GameManager) respond(msg *natsgo.Msg, reply CommandReply) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		natsLogger.Error().Msgf("Could not encode reply: %s", err.Error())
		return
	}
	if err := msg.Respond(data); err != nil {
		natsLogger.Error().Msgf("Could not send reply to %s: %s", msg.Reply, err.Error())
	}
}

// BroadcastTableView publishes a view to everyone watching the table.
func (gm *GameManager) BroadcastTableView(view game.TableView) {
	natsLogger.Debug().Str(logging.GameCodeKey, view.GameCode).
		Msg(fmt.Sprintf("Game->Table: %s", view.State))
	data, err := json.Marshal(view)
	if err != nil {
		natsLogger.Error().Msgf("Could not encode view: %s", err.Error())
		return
	}
	if err := gm.nc.Publish(TableSubject(view.GameCode), data); err != nil {
		natsLogger.Error().Str(logging.GameCodeKey, view.GameCode).Msgf("Could not publish view: %s", err.Error())
	}
}
