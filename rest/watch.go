package rest

import (
	"sync"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map"

	"tavern.com/gameserver/game"
	"tavern.com/gameserver/logging"
)

// watcherBuffer is how many views a slow watcher may fall behind before
// views are dropped for it.
const watcherBuffer = 16

type Watcher struct {
	id       string
	gameCode string
	views    chan game.TableView
	done     chan struct{}
	once     sync.Once
}

func (w *Watcher) close() {
	w.once.Do(func() { close(w.done) })
}

// WatchHub fans the views of every session out to the websocket watchers
// of that session.
type WatchHub struct {
	watchers cmap.ConcurrentMap
}

func NewWatchHub() *WatchHub {
	return &WatchHub{watchers: cmap.New()}
}

func (h *WatchHub) Watch(gameCode string) *Watcher {
	w := &Watcher{
		id:       uuid.New().String(),
		gameCode: gameCode,
		views:    make(chan game.TableView, watcherBuffer),
		done:     make(chan struct{}),
	}
	h.watchers.Set(w.id, w)
	return w
}

func (h *WatchHub) Unwatch(w *Watcher) {
	h.watchers.Remove(w.id)
	w.close()
}

// Broadcast is a game.ViewReceiver. It never blocks the session.
func (h *WatchHub) Broadcast(view game.TableView) {
	for item := range h.watchers.IterBuffered() {
		w := item.Val.(*Watcher)
		if w.gameCode != view.GameCode {
			continue
		}
		select {
		case w.views <- view:
		default:
			restLogger.Warn().Str(logging.GameCodeKey, view.GameCode).Msg("Watcher is too slow. Dropping view.")
		}
	}
}

// CloseGame disconnects every watcher of a game.
func (h *WatchHub) CloseGame(gameCode string) {
	for item := range h.watchers.IterBuffered() {
		w := item.Val.(*Watcher)
		if w.gameCode == gameCode {
			h.Unwatch(w)
		}
	}
}

func (h *WatchHub) Count() int {
	return h.watchers.Count()
}
