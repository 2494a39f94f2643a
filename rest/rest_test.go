package rest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"tavern.com/gameserver/bot"
	"tavern.com/gameserver/dice"
	"tavern.com/gameserver/favor"
	"tavern.com/gameserver/game"
	"tavern.com/gameserver/lizardrace"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, commandRate int, rolls ...int) *Server {
	manager, err := game.NewManager(game.ManagerConfig{
		DisableDelays: true,
		StartingGold:  100,
		Roller:        dice.NewScriptedRoller(rolls...),
		Policy:        bot.NewScriptedPolicy(),
	})
	require.NoError(t, err)
	return NewServer(manager, commandRate)
}

func doRequest(s *Server, method string, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func createGame(t *testing.T, s *Server, gameType game.GameType) game.TableView {
	w := doRequest(s, http.MethodPost, "/games", `{"gameType":"`+string(gameType)+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view game.TableView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view
}

func TestReady(t *testing.T) {
	s := newTestServer(t, 0)
	w := doRequest(s, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ready")

	w = doRequest(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFavorGameOverHTTP(t *testing.T) {
	s := newTestServer(t, 0, 3, 3, 6)
	view := createGame(t, s, game.GameType__AVANDRAS_FAVOR)
	assert.Equal(t, favor.State__IDLE, view.State)
	path := "/games/" + view.GameCode

	w := doRequest(s, http.MethodPost, path+"/commands", `{"type":"START","amount":25}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, favor.State__PLAYING, view.State)
	assert.Equal(t, 75, view.Balance)

	w = doRequest(s, http.MethodPost, path+"/commands", `{"type":"ROLL_AGAIN"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, favor.State__WON, view.State)
	assert.Equal(t, 150, view.Balance)

	w = doRequest(s, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "You rolled 6 for a total of 12! You win 100 gp!", view.Message)

	w = doRequest(s, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doRequest(s, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doRequest(s, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRejectedCommands(t *testing.T) {
	s := newTestServer(t, 100, 3, 3)
	view := createGame(t, s, game.GameType__AVANDRAS_FAVOR)
	path := "/games/" + view.GameCode + "/commands"

	testCases := []struct {
		name   string
		body   string
		status int
		reason string
	}{
		{"not json", `{"type":`, http.StatusBadRequest, "invalid_input"},
		{"below minimum", `{"type":"START","amount":5}`, http.StatusBadRequest, "invalid_input"},
		{"too much", `{"type":"START","amount":500}`, http.StatusPaymentRequired, "insufficient_funds"},
		{"wrong game", `{"type":"FOLD"}`, http.StatusBadRequest, "invalid_input"},
		{"not playing", `{"type":"STAND_PAT"}`, http.StatusConflict, "invalid_state"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(s, http.MethodPost, path, tc.body)
			assert.Equal(t, tc.status, w.Code)
			var appErr appError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &appErr))
			assert.Equal(t, tc.status, appErr.Code)
			assert.Equal(t, tc.reason, appErr.Reason)
		})
	}

	assert.Equal(t, 1, s.limiters.Count())

	for _, code := range []string{"missing", "also-missing", "still-missing"} {
		w := doRequest(s, http.MethodPost, "/games/"+code+"/commands", `{"type":"START"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	assert.Equal(t, 1, s.limiters.Count())

	w := doRequest(s, http.MethodDelete, "/games/"+view.GameCode, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, s.limiters.Count())
	w = doRequest(s, http.MethodPost, "/games", `{"gameType":"BLACKJACK"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doRequest(s, http.MethodPost, "/games", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommandRateLimit(t *testing.T) {
	s := newTestServer(t, 1, 3, 3)
	view := createGame(t, s, game.GameType__AVANDRAS_FAVOR)
	path := "/games/" + view.GameCode + "/commands"

	w := doRequest(s, http.MethodPost, path, `{"type":"START","amount":25}`)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doRequest(s, http.MethodPost, path, `{"type":"STAND_PAT"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limited")
}

func TestWatchGame(t *testing.T) {
	s := newTestServer(t, 0, 4, 4, 4, 1, 1, 1, 2, 2, 2)
	view := createGame(t, s, game.GameType__QUON_A_DRENSAL)
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/games/" + view.GameCode + "/watch"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var watched game.TableView
	require.NoError(t, wsjson.Read(ctx, conn, &watched))
	assert.Equal(t, lizardrace.State__IDLE, watched.State)

	resp, err := http.Post(server.URL+"/games/"+view.GameCode+"/commands", "application/json",
		bytes.NewBufferString(`{"type":"START","amount":10,"lizard":0}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	states := make([]string, 0)
	for len(states) == 0 || states[len(states)-1] != lizardrace.State__COMPLETE {
		require.NoError(t, wsjson.Read(ctx, conn, &watched))
		states = append(states, watched.State)
	}
	assert.Equal(t, []string{lizardrace.State__RACING, lizardrace.State__COMPLETE}, states)
	assert.Equal(t, 110, watched.Balance)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/games/"+view.GameCode, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, _, err = conn.Read(ctx)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
}

func TestWatchMissingGame(t *testing.T) {
	s := newTestServer(t, 0)
	w := doRequest(s, http.MethodGet, "/games/missing/watch", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, s.hub.Count())
}

func TestEvictedGameDropsLimiterAndWatchers(t *testing.T) {
	manager, err := game.NewManager(game.ManagerConfig{
		DisableDelays: true,
		MaxSessions:   1,
		Roller:        dice.NewScriptedRoller(3, 3),
	})
	require.NoError(t, err)
	s := NewServer(manager, 100)

	first := createGame(t, s, game.GameType__AVANDRAS_FAVOR)
	w := doRequest(s, http.MethodPost, "/games/"+first.GameCode+"/commands", `{"type":"START","amount":25}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	watcher := s.hub.Watch(first.GameCode)
	assert.Equal(t, 1, s.limiters.Count())

	createGame(t, s, game.GameType__QUON_A_DRENSAL)
	assert.Equal(t, 0, s.limiters.Count())
	assert.Equal(t, 0, s.hub.Count())
	select {
	case <-watcher.done:
	default:
		t.Fatal("watcher of an evicted game is still open")
	}

	w = doRequest(s, http.MethodPost, "/games/"+first.GameCode+"/commands", `{"type":"STAND_PAT"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, s.limiters.Count())
}
