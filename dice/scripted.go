package dice

import (
	"sync"

	"github.com/pkg/errors"
)

// ScriptedRoller hands out a fixed sequence of results in order.
type ScriptedRoller struct {
	lock   sync.Mutex
	values []int
}

func NewScriptedRoller(values ...int) *ScriptedRoller {
	v := make([]int, len(values))
	copy(v, values)
	return &ScriptedRoller{values: v}
}

// Push appends more results to the end of the script.
func (s *ScriptedRoller) Push(values ...int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.values = append(s.values, values...)
}

// Remaining returns how many scripted results have not been rolled yet.
func (s *ScriptedRoller) Remaining() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.values)
}

// Roll consumes quantity values. Nothing is consumed when the script is too
// short or a value does not fit the die.
func (s *ScriptedRoller) Roll(quantity int, sides int) ([]int, error) {
	if err := validate(quantity, sides); err != nil {
		return nil, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.values) < quantity {
		return nil, errors.Wrapf(ErrScriptExhausted, "wanted %d, have %d", quantity, len(s.values))
	}
	rolls := make([]int, quantity)
	for i := 0; i < quantity; i++ {
		v := s.values[i]
		if v < 1 || v > sides {
			return nil, errors.Errorf("scripted value %d does not fit a d%d", v, sides)
		}
		rolls[i] = v
	}
	s.values = s.values[quantity:]
	return rolls, nil
}
