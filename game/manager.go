package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"tavern.com/gameserver/bot"
	caches "tavern.com/gameserver/caching"
	"tavern.com/gameserver/dice"
	"tavern.com/gameserver/gambit"
	"tavern.com/gameserver/logging"
	"tavern.com/gameserver/util"
	"tavern.com/gameserver/wallet"
)

var managerLogger = log.With().Str("logger_name", "game::manager").Logger()

type ManagerConfig struct {
	Delays        Delays
	DisableDelays bool
	StartingGold  int
	MaxSessions   int
	Opponents     int
	Persist       PersistTableState
	// TableStateTTL bounds how long the default memory tracker keeps a view.
	TableStateTTL time.Duration
	// Roller and Policy default to fair dice and the house opponent.
	Roller dice.Roller
	Policy gambit.Policy
}

// Manager owns the live sessions. The least recently used session is
// ended when more than MaxSessions are open.
type Manager struct {
	cfg      ManagerConfig
	sessions *caches.SessionCache

	receiversLock sync.RWMutex
	receivers     []ViewReceiver
	endReceivers  []SessionEndReceiver
}

// SessionEndReceiver is told the game code of every session that ends,
// whether it was evicted, ended or closed.
type SessionEndReceiver func(gameCode string)

func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Roller == nil {
		cfg.Roller = dice.NewRoller()
	}
	if cfg.Policy == nil {
		cfg.Policy = bot.NewRandomPolicy(cfg.Roller)
	}
	if cfg.Persist == nil {
		cfg.Persist = NewMemoryTableStateTracker(cfg.TableStateTTL)
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if cfg.StartingGold <= 0 {
		cfg.StartingGold = 1000
	}

	gm := &Manager{cfg: cfg}
	sessions, err := caches.NewSessionCache(cfg.MaxSessions, func(gameCode string, session interface{}) {
		managerLogger.Info().Str(logging.GameCodeKey, gameCode).Msg("Session evicted")
		session.(*Session).End()
		gm.dispatchEnd(gameCode)
	})
	if err != nil {
		return nil, errors.Wrap(err, "Error while creating session cache")
	}
	gm.sessions = sessions
	return gm, nil
}

// AddReceiver registers r for the views of every session.
func (gm *Manager) AddReceiver(r ViewReceiver) {
	gm.receiversLock.Lock()
	defer gm.receiversLock.Unlock()
	gm.receivers = append(gm.receivers, r)
}

// AddEndReceiver registers r for the end of every session.
func (gm *Manager) AddEndReceiver(r SessionEndReceiver) {
	gm.receiversLock.Lock()
	defer gm.receiversLock.Unlock()
	gm.endReceivers = append(gm.endReceivers, r)
}

func (gm *Manager) dispatchEnd(gameCode string) {
	gm.receiversLock.RLock()
	defer gm.receiversLock.RUnlock()
	for _, r := range gm.endReceivers {
		r(gameCode)
	}
}

func (gm *Manager) dispatch(view TableView) {
	gm.receiversLock.RLock()
	defer gm.receiversLock.RUnlock()
	for _, r := range gm.receivers {
		r(view)
	}
}

// NewSession opens a table of the given type with a fresh purse.
func (gm *Manager) NewSession(gameType GameType) (*Session, error) {
	if !gameType.Valid() {
		return nil, errors.Wrapf(ErrUnknownGameType, "%q", gameType)
	}
	gameCode := uuid.New().String()
	session, err := newSession(
		gameCode,
		gameType,
		wallet.NewPurse(gm.cfg.StartingGold),
		tableDeps{
			roller:    gm.cfg.Roller,
			policy:    gm.cfg.Policy,
			opponents: gm.cfg.Opponents,
		},
		sessionConfig{
			delays:        gm.cfg.Delays,
			disableDelays: gm.cfg.DisableDelays,
			persist:       gm.cfg.Persist,
			publish:       gm.dispatch,
		},
	)
	if err != nil {
		return nil, err
	}
	if _, err := gm.sessions.Add(gameCode, session); err != nil {
		session.End()
		return nil, err
	}
	util.Metrics.SetActiveSessions(gm.sessions.Len())
	managerLogger.Info().
		Str(logging.GameCodeKey, gameCode).
		Str(logging.GameTypeKey, string(gameType)).
		Msg("Session created")
	return session, nil
}

func (gm *Manager) Session(gameCode string) (*Session, error) {
	v, ok := gm.sessions.Get(gameCode)
	if !ok {
		return nil, errors.Wrapf(ErrSessionNotFound, "game %s", gameCode)
	}
	return v.(*Session), nil
}

func (gm *Manager) Apply(gameCode string, cmd Command) (TableView, error) {
	session, err := gm.Session(gameCode)
	if err != nil {
		return TableView{}, err
	}
	return session.Apply(cmd)
}

// View returns the live view of a session, or the last saved view of a
// session that is no longer held.
func (gm *Manager) View(gameCode string) (TableView, error) {
	session, err := gm.Session(gameCode)
	if err == nil {
		return session.View(), nil
	}
	view, loadErr := gm.cfg.Persist.Load(gameCode)
	if loadErr != nil {
		if errors.Is(loadErr, ErrTableStateNotFound) {
			return TableView{}, err
		}
		return TableView{}, errors.Wrapf(loadErr, "game %s", gameCode)
	}
	return *view, nil
}

// EndSession ends the session and forgets its saved view.
func (gm *Manager) EndSession(gameCode string) error {
	if !gm.sessions.Remove(gameCode) {
		return errors.Wrapf(ErrSessionNotFound, "game %s", gameCode)
	}
	util.Metrics.SetActiveSessions(gm.sessions.Len())
	return gm.cfg.Persist.Remove(gameCode)
}

func (gm *Manager) ActiveSessions() int {
	return gm.sessions.Len()
}

// Close ends every live session.
func (gm *Manager) Close() {
	for _, gameCode := range gm.sessions.GameCodes() {
		gm.sessions.Remove(gameCode)
	}
	util.Metrics.SetActiveSessions(0)
}
