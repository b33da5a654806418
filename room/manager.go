package room

import (
	"crypto/rand"
	"math/big"
	"sync"

	"github.com/elliotchance/orderedmap/v2"
	"go.uber.org/zap"

	"mallathon/logging"
)

// RoomInfo is returned by the API for the room list.
type RoomInfo struct {
	Code      string `json:"code"`
	SessionID string `json:"sessionId"`
	Players   int    `json:"players"`
	Seed      uint64 `json:"seed"`
}

// Manager holds multiple rooms by code, in creation order. Rooms are created
// on first join or via CreateRoom, and removed when the last player leaves.
type Manager struct {
	mu       sync.RWMutex
	rooms    *orderedmap.OrderedMap[string, *Room]
	settings Settings
	log      *zap.Logger
}

func NewManager(s Settings) *Manager {
	return &Manager{
		rooms:    orderedmap.NewOrderedMap[string, *Room](),
		settings: s,
		log:      logging.OrNop(s.Logger),
	}
}

// GetOrCreateRoom returns the room for the given code, creating it if needed.
func (m *Manager) GetOrCreateRoom(code string) *Room {
	if code == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms.Get(code); ok {
		return r
	}
	return m.startRoom(code)
}

// Get returns an existing room.
func (m *Manager) Get(code string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms.Get(code)
}

const codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CreateRoom generates a unique 6-char code, creates the room, and returns the code.
func (m *Manager) CreateRoom() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		code := generateCode(6)
		if _, exists := m.rooms.Get(code); exists {
			continue
		}
		m.startRoom(code)
		return code
	}
}

// startRoom expects m.mu to be held.
func (m *Manager) startRoom(code string) *Room {
	r := New(code, m.settings)
	r.OnEmpty = func(c string) {
		m.removeRoom(c)
	}
	m.rooms.Set(code, r)
	go r.Run()
	m.log.Debug("room created", zap.String("room", code), zap.Int("rooms", m.rooms.Len()))
	return r
}

func (m *Manager) removeRoom(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms.Get(code); ok {
		r.Stop()
		m.rooms.Delete(code)
	}
}

// ListRooms returns all active rooms, oldest first.
func (m *Manager) ListRooms() []RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RoomInfo, 0, m.rooms.Len())
	for el := m.rooms.Front(); el != nil; el = el.Next() {
		r := el.Value
		out = append(out, RoomInfo{Code: el.Key, SessionID: r.SessionID, Players: r.NumPlayers(), Seed: r.Seed()})
	}
	return out
}

// Close stops every room and waits for their loops to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	rooms := make([]*Room, 0, m.rooms.Len())
	for el := m.rooms.Front(); el != nil; el = el.Next() {
		rooms = append(rooms, el.Value)
	}
	m.rooms = orderedmap.NewOrderedMap[string, *Room]()
	m.mu.Unlock()

	for _, r := range rooms {
		r.Stop()
		<-r.Done()
	}
}

func generateCode(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, _ := rand.Int(rand.Reader, max)
		b[i] = codeChars[idx.Int64()]
	}
	return string(b)
}
