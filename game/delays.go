package game

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Delays are the pauses, in milliseconds, before a pending table step runs.
type Delays struct {
	OpponentsAct uint32 `yaml:"opponentsAct"`
	NextRound    uint32 `yaml:"nextRound"`
	Reveal       uint32 `yaml:"reveal"`
	RaceFinish   uint32 `yaml:"raceFinish"`
}

func DefaultDelays() Delays {
	return Delays{
		OpponentsAct: 800,
		NextRound:    1000,
		Reveal:       1000,
		RaceFinish:   1500,
	}
}

func ParseDelayConfig(delaysFile string) (Delays, error) {
	bytes, err := ioutil.ReadFile(delaysFile)
	if err != nil {
		return Delays{}, errors.Wrap(err, fmt.Sprintf("Error reading delay config file [%s]", delaysFile))
	}

	data := DefaultDelays()
	err = yaml.Unmarshal(bytes, &data)
	if err != nil {
		return Delays{}, errors.Wrap(err, fmt.Sprintf("Error parsing delays YAML file [%s]", delaysFile))
	}

	return data, nil
}

func millis(ms uint32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
