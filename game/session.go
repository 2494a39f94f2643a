package game

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tavern.com/gameserver/logging"
	"tavern.com/gameserver/timer"
	"tavern.com/gameserver/util"
	"tavern.com/gameserver/wallet"
)

var sessionLogger = log.With().Str("logger_name", "game::session").Logger()

// maxSyncSteps bounds the steps run back to back when delays are disabled.
const maxSyncSteps = 16

type sessionConfig struct {
	delays        Delays
	disableDelays bool
	persist       PersistTableState
	publish       ViewReceiver
}

// Session is one player's seat at one game. Every command and every timed
// step goes through the session lock, so the engine has a single writer.
type Session struct {
	lock sync.Mutex

	gameCode string
	gameType GameType
	purse    *wallet.Purse
	table    table
	cfg      sessionConfig
	logger   *zerolog.Logger

	stepTimer *timer.StepTimer
	stepSeq   uint64
	ended     bool
	lastView  TableView
}

func newSession(gameCode string, gameType GameType, purse *wallet.Purse, deps tableDeps, cfg sessionConfig) (*Session, error) {
	logger := sessionLogger.With().
		Str(logging.GameCodeKey, gameCode).
		Str(logging.GameTypeKey, string(gameType)).
		Logger()
	deps.purse = purse
	deps.logger = &logger
	t, err := newTable(gameType, deps)
	if err != nil {
		return nil, err
	}

	s := &Session{
		gameCode: gameCode,
		gameType: gameType,
		purse:    purse,
		table:    t,
		cfg:      cfg,
		logger:   &logger,
	}
	if !cfg.disableDelays {
		s.stepTimer = timer.NewStepTimer(gameCode, s.onStep, s.crashed)
		s.stepTimer.Run()
	}

	s.lock.Lock()
	s.publishLocked()
	s.lock.Unlock()
	return s, nil
}

func (s *Session) GameCode() string {
	return s.gameCode
}

func (s *Session) GameType() GameType {
	return s.gameType
}

func (s *Session) View() TableView {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.lastView
}

// Apply runs one player command. A rejected command leaves the table as
// it was; the returned view then carries the explanation.
func (s *Session) Apply(cmd Command) (TableView, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.ended {
		return s.lastView, errors.Wrapf(ErrSessionEnded, "game %s", s.gameCode)
	}

	wasComplete := s.table.complete()
	err := s.table.apply(cmd)
	if err != nil {
		util.Metrics.CommandRejected(string(s.gameType), RejectReason(err))
		s.logger.Info().
			Str(logging.StateKey, s.table.state()).
			Msgf("Command %s rejected: %s", cmd.Type, err.Error())
		return s.publishLocked(), err
	}

	if cmd.Type == Command__START {
		util.Metrics.GameStarted(string(s.gameType))
	}
	s.checkCompletedLocked(wasComplete)

	// anything still scheduled belongs to the table as it was
	s.stepSeq++
	view := s.publishLocked()
	s.scheduleLocked()
	if s.cfg.disableDelays {
		view = s.lastView
	}
	return view, nil
}

func (s *Session) checkCompletedLocked(wasComplete bool) {
	if !wasComplete && s.table.complete() {
		util.Metrics.GameCompleted(string(s.gameType))
	}
}

func (s *Session) scheduleLocked() {
	if !s.table.pending() {
		return
	}
	if s.cfg.disableDelays {
		s.runPendingLocked()
		return
	}

	msg := timer.StepMsg{
		GameCode:   s.gameCode,
		Generation: s.table.generation(),
		Seq:        s.stepSeq,
		ExpireAt:   time.Now().Add(s.table.stepDelay(s.cfg.delays)),
	}
	if err := s.stepTimer.Reset(msg); err != nil {
		s.logger.Error().Msgf("Could not schedule the next step: %s", err.Error())
	}
}

func (s *Session) runPendingLocked() {
	for i := 0; i < maxSyncSteps && s.table.pending(); i++ {
		wasComplete := s.table.complete()
		if _, err := s.table.advance(s.table.generation()); err != nil {
			s.logger.Error().Msgf("Table step failed: %s", err.Error())
			s.publishLocked()
			return
		}
		s.checkCompletedLocked(wasComplete)
		s.publishLocked()
	}
}

func (s *Session) onStep(msg timer.StepMsg) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.ended {
		return
	}
	if msg.Seq != s.stepSeq {
		util.Metrics.StaleStepDropped()
		s.logger.Debug().Msgf("Dropping step %d. Current step: %d", msg.Seq, s.stepSeq)
		return
	}

	wasComplete := s.table.complete()
	applied, err := s.table.advance(msg.Generation)
	if !applied {
		util.Metrics.StaleStepDropped()
		return
	}
	if err != nil {
		s.logger.Error().Msgf("Table step failed: %s", err.Error())
		s.publishLocked()
		return
	}
	s.checkCompletedLocked(wasComplete)
	s.stepSeq++
	s.publishLocked()
	s.scheduleLocked()
}

func (s *Session) crashed() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.logger.Error().Msg("Table step crashed. Ending the session.")
	s.ended = true
	if s.stepTimer != nil {
		s.stepTimer.Destroy()
	}
}

func (s *Session) publishLocked() TableView {
	view := TableView{
		GameCode:   s.gameCode,
		GameType:   s.gameType,
		State:      s.table.state(),
		Generation: s.table.generation(),
		Balance:    s.purse.Balance(),
		Message:    s.table.message(),
		UpdatedAt:  time.Now().UTC(),
	}
	raw, err := viewCodec.Marshal(s.table.snapshot())
	if err != nil {
		s.logger.Error().Msgf("Could not encode the table: %s", err.Error())
	} else {
		view.Table = raw
	}
	s.lastView = view

	if s.cfg.persist != nil {
		if err := s.cfg.persist.Save(s.gameCode, &view); err != nil {
			s.logger.Error().Msgf("Could not save the table state: %s", err.Error())
		}
	}
	if s.cfg.publish != nil {
		s.cfg.publish(view)
	}
	return view
}

// End stops the step timer. The last view stays in persistence.
func (s *Session) End() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	if s.stepTimer != nil {
		s.stepTimer.Destroy()
	}
	s.logger.Info().Msg("Session ended")
}
