package nats

import (
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"tavern.com/gameserver/game"
)

// GameManager connects the sessions of a game.Manager to NATS. Commands come
// in on the player subjects and every view goes out on the table subject.
type GameManager struct {
	nc      *natsgo.Conn
	manager *game.Manager
	subs    []*natsgo.Subscription
}

func NewGameManager(url string, manager *game.Manager) (*GameManager, error) {
	// let us try to connect to nats server
	nc, err := natsgo.Connect(url)
	if err != nil {
		natsLogger.Error().Msg(fmt.Sprintf("Failed to connect to nats server: %v", err))
		return nil, errors.Wrapf(err, "connect %s", url)
	}

	gm := &GameManager{nc: nc, manager: manager}
	for subject, handler := range map[string]natsgo.MsgHandler{
		playerSubjectPattern: gm.player2Game,
		NewGameSubject:       gm.newGame,
	} {
		sub, err := nc.Subscribe(subject, handler)
		if err != nil {
			natsLogger.Error().Msg(fmt.Sprintf("Failed to subscribe to %s", subject))
			gm.Close()
			return nil, errors.Wrapf(err, "subscribe %s", subject)
		}
		gm.subs = append(gm.subs, sub)
	}
	manager.AddReceiver(gm.BroadcastTableView)
	natsLogger.Info().Msgf("Listening for players on %s", url)
	return gm, nil
}

func (gm *GameManager) Close() {
	for _, sub := range gm.subs {
		sub.Unsubscribe()
	}
	gm.subs = nil
	gm.nc.Close()
}
