package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"tavern.com/gameserver/game"
	"tavern.com/gameserver/logging"
	"tavern.com/gameserver/nats"
	"tavern.com/gameserver/rest"
	"tavern.com/gameserver/test"
	"tavern.com/gameserver/util"
)

var runServer *bool
var runGameScriptTests *bool
var gameScriptsFileOrDir *string
var delayConfigFile *string
var testName *string
var mainLogger = logging.GetZeroLogger("main::main", nil)

func init() {
	runServer = flag.Bool("server", true, "runs game server")
	runGameScriptTests = flag.Bool("script-tests", false, "runs script tests")
	gameScriptsFileOrDir = flag.String("game-script", "test/game-scripts", "runs tests with game script files")
	delayConfigFile = flag.String("delays", "delays.yaml", "YAML file containing pause times")
	testName = flag.String("testname", "", "runs a specific test")
}

func main() {
	err := run()
	if err != nil {
		mainLogger.Error().Msg(err.Error())
		os.Exit(1)
	}
}

func run() error {
	logLevel := util.Env.GetZeroLogLogLevel()
	fmt.Printf("Setting log level to %s\n", logLevel)
	zerolog.SetGlobalLevel(logLevel)
	flag.Parse()

	if *runGameScriptTests {
		return test.RunGameScriptTests(*gameScriptsFileOrDir, *testName)
	}
	if !*runServer {
		return nil
	}

	delays, err := game.ParseDelayConfig(*delayConfigFile)
	if err != nil {
		return errors.Wrap(err, "Error while parsing delay config")
	}

	persist, err := tableStateTracker()
	if err != nil {
		return err
	}
	if closer, ok := persist.(io.Closer); ok {
		defer closer.Close()
	}
	gameManager, err := game.NewManager(game.ManagerConfig{
		Delays:        delays,
		DisableDelays: util.Env.ShouldDisableDelays(),
		StartingGold:  util.Env.GetStartingGold(),
		MaxSessions:   util.Env.GetMaxSessions(),
		Persist:       persist,
	})
	if err != nil {
		return errors.Wrap(err, "Error while creating game manager")
	}
	defer gameManager.Close()

	natsURL := util.Env.GetNatsURL()
	if natsURL != "" {
		mainLogger.Info().Msgf("NATS URL: %s", natsURL)
		natsGameManager, err := nats.NewGameManager(natsURL, gameManager)
		if err != nil {
			return errors.Wrap(err, "Error creating NATS game manager")
		}
		defer natsGameManager.Close()
	} else {
		mainLogger.Warn().Msg("NATS_URL is not set. Running without NATS.")
	}

	chErr := make(chan error, 1)
	go func() {
		chErr <- rest.RunRestServer(gameManager, util.Env.GetHTTPPort(), util.Env.GetCommandRate())
	}()

	chSignal := make(chan os.Signal, 1)
	signal.Notify(chSignal, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-chErr:
		return errors.Wrap(err, "REST server stopped")
	case sig := <-chSignal:
		mainLogger.Info().Msgf("Received %s. Shutting down.", sig)
	}
	return nil
}

func tableStateTracker() (game.PersistTableState, error) {
	ttl := time.Duration(util.Env.GetTableStateTTL()) * time.Second
	if util.Env.GetPersistMethod() != "redis" {
		mainLogger.Info().Msgf("Keeping table state in memory for %s", ttl)
		return game.NewMemoryTableStateTracker(ttl), nil
	}
	redisURL := fmt.Sprintf("%s:%d", util.Env.GetRedisHost(), util.Env.GetRedisPort())
	mainLogger.Info().Msgf("Keeping table state in redis at %s", redisURL)
	return game.NewRedisTableStateTracker(redisURL, util.Env.GetRedisPW(), util.Env.GetRedisDB(), ttl), nil
}
