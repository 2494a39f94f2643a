package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	cmap "github.com/orcaman/concurrent-map"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"tavern.com/gameserver/game"
	"tavern.com/gameserver/logging"
)

var restLogger = log.With().Str("logger_name", "game::rest").Logger()

//
// APP error definition
//
type appError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Reason  string          `json:"reason,omitempty"`
	View    *game.TableView `json:"view,omitempty"`
}

type newGameRequest struct {
	GameType game.GameType `json:"gameType" binding:"required"`
}

// Server is the HTTP front of a game.Manager.
type Server struct {
	manager     *game.Manager
	hub         *WatchHub
	commandRate int
	// per game command limiters
	limiters cmap.ConcurrentMap
	router   *gin.Engine
}

// NewServer builds the routes. commandRate is the number of commands per
// second accepted for one game; zero or less disables the limit.
func NewServer(manager *game.Manager, commandRate int) *Server {
	s := &Server{
		manager:     manager,
		hub:         NewWatchHub(),
		commandRate: commandRate,
		limiters:    cmap.New(),
	}
	manager.AddReceiver(s.hub.Broadcast)
	manager.AddEndReceiver(s.sessionEnded)

	r := gin.Default()
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready", "sessions": manager.ActiveSessions()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/games", s.newGame)
	r.GET("/games/:code", s.getGame)
	r.POST("/games/:code/commands", s.applyCommand)
	r.DELETE("/games/:code", s.endGame)
	r.GET("/games/:code/watch", s.watchGame)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func RunRestServer(manager *game.Manager, port int, commandRate int) error {
	s := NewServer(manager, commandRate)
	restLogger.Info().Msgf("Listening on port %d", port)
	return s.router.Run(fmt.Sprintf(":%d", port))
}

func statusCode(err error) int {
	switch game.RejectReason(err) {
	case "insufficient_funds":
		return http.StatusPaymentRequired
	case "invalid_state":
		return http.StatusConflict
	case "invalid_input":
		return http.StatusBadRequest
	case "session_not_found", "session_ended":
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error, view *game.TableView) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		restLogger.Error().Msgf("Request %s %s failed: %s", c.Request.Method, c.Request.URL.Path, err.Error())
	}
	c.AbortWithStatusJSON(code, appError{
		Code:    code,
		Message: err.Error(),
		Reason:  game.RejectReason(err),
		View:    view,
	})
}

func (s *Server) newGame(c *gin.Context) {
	var req newGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		restLogger.Error().Msgf("Failed to parse new game request. Error: %v", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, appError{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
			Reason:  "invalid_input",
		})
		return
	}
	session, err := s.manager.NewSession(req.GameType)
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, session.View())
}

func (s *Server) getGame(c *gin.Context) {
	view, err := s.manager.View(c.Param("code"))
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) limiter(gameCode string) *rate.Limiter {
	v := s.limiters.Upsert(gameCode, nil, func(exist bool, valueInMap interface{}, newValue interface{}) interface{} {
		if exist {
			return valueInMap
		}
		return rate.NewLimiter(rate.Limit(s.commandRate), s.commandRate)
	})
	return v.(*rate.Limiter)
}

func (s *Server) applyCommand(c *gin.Context) {
	gameCode := c.Param("code")
	var cmd game.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, appError{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
			Reason:  "invalid_input",
		})
		return
	}
	session, err := s.manager.Session(gameCode)
	if err != nil {
		abortWithError(c, err, nil)
		return
	}
	if s.commandRate > 0 && !s.limiter(gameCode).Allow() {
		restLogger.Warn().Str(logging.GameCodeKey, gameCode).Msg("Too many commands")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, appError{
			Code:    http.StatusTooManyRequests,
			Message: "Too many commands. Slow down.",
			Reason:  "rate_limited",
		})
		return
	}

	view, err := session.Apply(cmd)
	if err != nil {
		if errors.Is(err, game.ErrSessionEnded) {
			// evicted after the lookup
			s.limiters.Remove(gameCode)
		}
		var v *game.TableView
		if view.GameCode != "" {
			v = &view
		}
		abortWithError(c, err, v)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) endGame(c *gin.Context) {
	gameCode := c.Param("code")
	if err := s.manager.EndSession(gameCode); err != nil {
		abortWithError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// sessionEnded forgets the limiter and the watchers of a game that is gone.
func (s *Server) sessionEnded(gameCode string) {
	s.limiters.Remove(gameCode)
	s.hub.CloseGame(gameCode)
}

// watchGame streams every view of a game over a websocket, starting with
// the current one.
func (s *Server) watchGame(c *gin.Context) {
	gameCode := c.Param("code")
	w := s.hub.Watch(gameCode)
	defer s.hub.Unwatch(w)

	view, err := s.manager.View(gameCode)
	if err != nil {
		abortWithError(c, err, nil)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		restLogger.Error().Str(logging.GameCodeKey, gameCode).Msgf("Could not accept websocket: %s", err.Error())
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	ctx := conn.CloseRead(c.Request.Context())
	if err := wsjson.Write(ctx, conn, view); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			conn.Close(websocket.StatusNormalClosure, "game ended")
			return
		case v := <-w.views:
			if err := wsjson.Write(ctx, conn, v); err != nil {
				restLogger.Debug().Str(logging.GameCodeKey, gameCode).Msgf("Watcher left: %s", err.Error())
				return
			}
		}
	}
}
