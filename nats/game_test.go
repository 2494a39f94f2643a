package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavern.com/gameserver/bot"
	"tavern.com/gameserver/dice"
	"tavern.com/gameserver/favor"
	"tavern.com/gameserver/game"
)

func newTestGameManager(t *testing.T, rolls ...int) *GameManager {
	manager, err := game.NewManager(game.ManagerConfig{
		DisableDelays: true,
		StartingGold:  100,
		Roller:        dice.NewScriptedRoller(rolls...),
		Policy:        bot.NewScriptedPolicy(),
	})
	require.NoError(t, err)
	return &GameManager{manager: manager}
}

func TestGameCodeFromSubject(t *testing.T) {
	testCases := []struct {
		subject  string
		gameCode string
		valid    bool
	}{
		{"game.abc.player", "abc", true},
		{PlayerSubject("f00d"), "f00d", true},
		{"game.abc.table", "", false},
		{"game..player", "", false},
		{"game.abc.player.extra", "", false},
		{"table.abc.player", "", false},
	}
	for _, tc := range testCases {
		gameCode, err := gameCodeFromSubject(tc.subject)
		if tc.valid {
			assert.NoError(t, err, tc.subject)
			assert.Equal(t, tc.gameCode, gameCode)
		} else {
			assert.Error(t, err, tc.subject)
		}
	}
	assert.Equal(t, "game.abc.table", TableSubject("abc"))
}

func TestNewGameAndCommands(t *testing.T) {
	gm := newTestGameManager(t, 2, 3, 1)

	reply := gm.handleNewGame([]byte(`{"gameType":"AVANDRAS_FAVOR"}`))
	require.Empty(t, reply.Error)
	require.NotNil(t, reply.View)
	gameCode := reply.View.GameCode
	assert.Equal(t, favor.State__IDLE, reply.View.State)

	reply = gm.handleCommand(gameCode, []byte(`{"type":"START","amount":25}`))
	require.Empty(t, reply.Error)
	assert.Equal(t, favor.State__PLAYING, reply.View.State)
	assert.Equal(t, 75, reply.View.Balance)

	reply = gm.handleCommand(gameCode, []byte(`{"type":"FOLD"}`))
	assert.NotEmpty(t, reply.Error)
	assert.Equal(t, "invalid_input", reply.Reason)
	require.NotNil(t, reply.View)
	assert.Equal(t, favor.State__PLAYING, reply.View.State)

	reply = gm.handleCommand(gameCode, []byte(`{"type":"ROLL_AGAIN"}`))
	require.Empty(t, reply.Error)
	assert.Equal(t, 50, reply.View.Balance)
}

func TestBadRequests(t *testing.T) {
	gm := newTestGameManager(t)

	reply := gm.handleNewGame([]byte(`{"gameType":"BLACKJACK"}`))
	assert.Equal(t, "invalid_input", reply.Reason)
	assert.Nil(t, reply.View)

	reply = gm.handleNewGame([]byte(`not json`))
	assert.Equal(t, "invalid_input", reply.Reason)

	reply = gm.handleCommand("missing", []byte(`{"type":"START"}`))
	assert.NotEmpty(t, reply.Error)
	assert.Equal(t, "session_not_found", reply.Reason)
	assert.Nil(t, reply.View)

	reply = gm.handleCommand("missing", []byte(`{"type":`))
	assert.Equal(t, "invalid_input", reply.Reason)
}
