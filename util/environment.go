package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var environmentLogger = log.With().Str("logger_name", "util::environment").Logger()

type gameServerEnvironment struct {
	PersistMethod string
	RedisHost     string
	RedisPort     string
	RedisPW       string
	RedisDB       string
	NatsURL       string
	HTTPPort      string
	DisableDelays string
	LogLevel      string
	StartingGold  string
	MaxSessions   string
	CommandRate   string
	TableStateTTL string
}

// Env is a helper object for accessing environment variables.
var Env = &gameServerEnvironment{
	PersistMethod: "PERSIST_METHOD",
	RedisHost:     "REDIS_HOST",
	RedisPort:     "REDIS_PORT",
	RedisPW:       "REDIS_PW",
	RedisDB:       "REDIS_DB",
	NatsURL:       "NATS_URL",
	HTTPPort:      "HTTP_PORT",
	DisableDelays: "DISABLE_DELAYS",
	LogLevel:      "LOG_LEVEL",
	StartingGold:  "STARTING_GOLD",
	MaxSessions:   "MAX_SESSIONS",
	CommandRate:   "COMMAND_RATE",
	TableStateTTL: "TABLE_STATE_TTL",
}

func (g *gameServerEnvironment) GetPersistMethod() string {
	method := os.Getenv(g.PersistMethod)
	if method == "" {
		return "memory"
	}
	method = strings.ToLower(method)
	if method != "memory" && method != "redis" {
		msg := fmt.Sprintf("Invalid %s: %s", g.PersistMethod, method)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return method
}

func (g *gameServerEnvironment) GetRedisHost() string {
	host := os.Getenv(g.RedisHost)
	if host == "" {
		msg := fmt.Sprintf("%s is not defined", g.RedisHost)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return host
}

func (g *gameServerEnvironment) GetRedisPort() int {
	return g.requiredInt(g.RedisPort)
}

func (g *gameServerEnvironment) GetRedisPW() string {
	return os.Getenv(g.RedisPW)
}

func (g *gameServerEnvironment) GetRedisDB() int {
	return g.optionalInt(g.RedisDB, 0)
}

// GetNatsURL returns an empty string when NATS is not configured.
func (g *gameServerEnvironment) GetNatsURL() string {
	return os.Getenv(g.NatsURL)
}

func (g *gameServerEnvironment) GetHTTPPort() int {
	return g.optionalInt(g.HTTPPort, 8080)
}

func (g *gameServerEnvironment) ShouldDisableDelays() bool {
	return g.optionalBool(g.DisableDelays)
}

func (g *gameServerEnvironment) GetStartingGold() int {
	gold := g.optionalInt(g.StartingGold, 1000)
	if gold < 0 {
		msg := fmt.Sprintf("Invalid %s: %d", g.StartingGold, gold)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return gold
}

func (g *gameServerEnvironment) GetMaxSessions() int {
	max := g.optionalInt(g.MaxSessions, 1000)
	if max <= 0 {
		msg := fmt.Sprintf("Invalid %s: %d", g.MaxSessions, max)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return max
}

// GetCommandRate returns the number of commands per second the REST API accepts.
func (g *gameServerEnvironment) GetCommandRate() int {
	return g.optionalInt(g.CommandRate, 20)
}

// GetTableStateTTL returns how long persisted table views live, in seconds.
func (g *gameServerEnvironment) GetTableStateTTL() int {
	return g.optionalInt(g.TableStateTTL, 3600)
}

func (g *gameServerEnvironment) GetZeroLogLogLevel() zerolog.Level {
	v := strings.ToLower(os.Getenv(g.LogLevel))
	switch v {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled":
		return zerolog.Disabled
	}
	environmentLogger.Warn().Msgf("Unknown %s [%s]. Using info.", g.LogLevel, v)
	return zerolog.InfoLevel
}

func (g *gameServerEnvironment) requiredInt(name string) int {
	s := os.Getenv(name)
	if s == "" {
		msg := fmt.Sprintf("%s is not defined", name)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		msg := fmt.Sprintf("Invalid %s %s", name, s)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return v
}

func (g *gameServerEnvironment) optionalInt(name string, defaultValue int) int {
	s := os.Getenv(name)
	if s == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		msg := fmt.Sprintf("Invalid %s %s", name, s)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return v
}

func (g *gameServerEnvironment) optionalBool(name string) bool {
	s := strings.ToLower(os.Getenv(name))
	return s == "1" || s == "true"
}
