package timer

import (
	"runtime/debug"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"tavern.com/gameserver/logging"
)

var stepTimerLogger = log.With().Str("logger_name", "timer::step_timer").Logger()

const pollInterval = 20 * time.Millisecond

// StepMsg names one scheduled engine step. Generation and Seq let the
// receiver tell whether the step is still the one it is waiting for.
type StepMsg struct {
	GameCode   string
	Generation uint64
	Seq        uint64
	ExpireAt   time.Time
}

// StepTimer holds at most one pending step per session. Resetting it
// replaces the pending step.
type StepTimer struct {
	gameCode string

	chReset   chan StepMsg
	chCancel  chan bool
	chEndLoop chan bool
	done      chan struct{}

	callback     func(StepMsg)
	crashHandler func()
}

func NewStepTimer(gameCode string, callback func(StepMsg), crashHandler func()) *StepTimer {
	return &StepTimer{
		gameCode:     gameCode,
		chReset:      make(chan StepMsg),
		chCancel:     make(chan bool),
		chEndLoop:    make(chan bool, 10),
		done:         make(chan struct{}),
		callback:     callback,
		crashHandler: crashHandler,
	}
}

func (a *StepTimer) Run() {
	go a.loop()
}

func (a *StepTimer) Destroy() {
	a.chEndLoop <- true
}

func (a *StepTimer) loop() {
	defer func() {
		close(a.done)
		err := recover()
		if err != nil {
			stepTimerLogger.Error().
				Str(logging.GameCodeKey, a.gameCode).
				Msgf("Step timer loop returning due to panic: %s\nStack Trace:\n%s", err, string(debug.Stack()))
			if a.crashHandler != nil {
				a.crashHandler()
			}
		} else {
			stepTimerLogger.Debug().Str(logging.GameCodeKey, a.gameCode).Msg("Step timer loop returning")
		}
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var current StepMsg
	paused := true
	for {
		select {
		case <-a.chEndLoop:
			return
		case <-a.chCancel:
			paused = true
		case msg := <-a.chReset:
			current = msg
			paused = false
		case <-ticker.C:
			if paused || time.Now().Before(current.ExpireAt) {
				continue
			}
			paused = true
			// the callback takes the session lock, which a caller of Reset may hold
			go a.fire(current)
		}
	}
}

// fire runs one step. A panicking step is reported to the crash handler
// instead of taking the process down.
func (a *StepTimer) fire(msg StepMsg) {
	defer func() {
		err := recover()
		if err == nil {
			return
		}
		stepTimerLogger.Error().
			Str(logging.GameCodeKey, a.gameCode).
			Uint64(logging.GenerationKey, msg.Generation).
			Msgf("Step %d panicked: %s\nStack Trace:\n%s", msg.Seq, err, string(debug.Stack()))
		if a.crashHandler != nil {
			a.crashHandler()
		}
	}()
	a.callback(msg)
}

// Reset schedules msg, replacing any step still pending.
func (a *StepTimer) Reset(msg StepMsg) error {
	var errMsgs []string
	if msg.GameCode == "" {
		errMsgs = append(errMsgs, "invalid gameCode")
	}
	if msg.ExpireAt.IsZero() {
		errMsgs = append(errMsgs, "invalid expireAt")
	}
	if len(errMsgs) > 0 {
		return errors.New(strings.Join(errMsgs, "; "))
	}
	select {
	case a.chReset <- msg:
		return nil
	case <-a.done:
		return errors.Errorf("step timer for %s is destroyed", a.gameCode)
	}
}

// Cancel drops the pending step, if any.
func (a *StepTimer) Cancel() {
	select {
	case a.chCancel <- true:
	case <-a.done:
	}
}
