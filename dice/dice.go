// Package dice provides the randomness source used by every game.
//
// Games never call math/rand directly. They take a Roller, so tests and
// game scripts can replace it with a ScriptedRoller and replay exact games.
package dice

import (
	"math/rand"
	"sync"

	"github.com/pkg/errors"
)

const (
	D4   = 4
	D6   = 6
	D8   = 8
	D10  = 10
	D12  = 12
	D20  = 20
	D100 = 100
)

var (
	ErrInvalidQuantity = errors.New("dice quantity must be positive")
	ErrInvalidSides    = errors.New("dice sides must be positive")
	ErrScriptExhausted = errors.New("scripted dice have no values left")
)

// Roller produces quantity independent results, each uniform in [1, sides].
type Roller interface {
	Roll(quantity int, sides int) ([]int, error)
}

func validate(quantity int, sides int) error {
	if quantity <= 0 {
		return errors.Wrapf(ErrInvalidQuantity, "quantity %d", quantity)
	}
	if sides <= 0 {
		return errors.Wrapf(ErrInvalidSides, "sides %d", sides)
	}
	return nil
}

// RandomRoller rolls with a math/rand source. It is safe for concurrent use.
type RandomRoller struct {
	lock sync.Mutex
	rng  *rand.Rand
}

// NewRoller returns a RandomRoller seeded from crypto/rand.
func NewRoller() *RandomRoller {
	return NewRandomRoller(newSeed())
}

// NewRandomRoller returns a RandomRoller with a fixed seed. The same seed
// produces the same sequence of rolls.
func NewRandomRoller(seed int64) *RandomRoller {
	return &RandomRoller{
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (r *RandomRoller) Roll(quantity int, sides int) ([]int, error) {
	if err := validate(quantity, sides); err != nil {
		return nil, err
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	rolls := make([]int, quantity)
	for i := range rolls {
		rolls[i] = r.rng.Intn(sides) + 1
	}
	return rolls, nil
}

// Sum adds up the given results.
func Sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
