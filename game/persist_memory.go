package game

import (
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var viewCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultTableStateTTL is how long a saved view outlives its last update.
const DefaultTableStateTTL = time.Hour

type savedTable struct {
	view    []byte
	savedAt time.Time
}

// MemoryTableStateTracker keeps views in process. Views expire ttl after
// their last save, the same way the redis tracker's keys do.
type MemoryTableStateTracker struct {
	lock      sync.RWMutex
	tables    map[string]savedTable
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryTableStateTracker(ttl time.Duration) *MemoryTableStateTracker {
	if ttl <= 0 {
		ttl = DefaultTableStateTTL
	}
	return &MemoryTableStateTracker{
		tables:    make(map[string]savedTable),
		ttl:       ttl,
		now:       time.Now,
		lastSweep: time.Now(),
	}
}

func (m *MemoryTableStateTracker) expired(t savedTable, now time.Time) bool {
	return now.Sub(t.savedAt) >= m.ttl
}

func (m *MemoryTableStateTracker) Load(gameCode string) (*TableView, error) {
	m.lock.RLock()
	saved, ok := m.tables[gameCode]
	now := m.now()
	m.lock.RUnlock()
	if ok && m.expired(saved, now) {
		m.lock.Lock()
		// it may have been saved again in between
		if current, found := m.tables[gameCode]; found && m.expired(current, now) {
			delete(m.tables, gameCode)
		}
		m.lock.Unlock()
		ok = false
	}
	if !ok {
		return nil, errors.Wrapf(ErrTableStateNotFound, "Table state for game: %s is not found", gameCode)
	}
	view := &TableView{}
	err := viewCodec.Unmarshal(saved.view, view)
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (m *MemoryTableStateTracker) Save(gameCode string, view *TableView) error {
	viewBytes, err := viewCodec.Marshal(view)
	if err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	now := m.now()
	m.tables[gameCode] = savedTable{view: viewBytes, savedAt: now}
	if now.Sub(m.lastSweep) >= m.ttl/2 {
		m.sweepLocked(now)
	}
	return nil
}

func (m *MemoryTableStateTracker) sweepLocked(now time.Time) {
	for gameCode, saved := range m.tables {
		if m.expired(saved, now) {
			delete(m.tables, gameCode)
		}
	}
	m.lastSweep = now
}

func (m *MemoryTableStateTracker) Remove(gameCode string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.tables, gameCode)
	return nil
}

// Len returns the number of views held, expired ones included until the
// next sweep.
func (m *MemoryTableStateTracker) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.tables)
}
