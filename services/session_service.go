// PlannerSession is the application controller for one connected client:
// it owns the displayed (year, month), the live month and settings
// subscriptions, and the cached MonthView, and it reacts to user intents
// coming off the WebSocket. All session state is touched only inside Run(),
// so snapshots and intents never race on the cache.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cloutQuestAPI/internal/grid"
	"cloutQuestAPI/internal/progress"
	"cloutQuestAPI/internal/types/endeavor"
	"cloutQuestAPI/internal/types/entry"
	"cloutQuestAPI/middleware"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Budget for a single store mutation.
	mutationTimeout = 5 * time.Second

	// A month subscription that has produced no snapshot within this
	// window after connect is reported as a hard failure. Load UX only,
	// never a correctness gate.
	initialLoadTimeout = 10 * time.Second

	sendBuffer = 16
)

// Intent is the inbound WebSocket payload. Action selects the operation;
// the remaining fields are read per action.
type Intent struct {
	Action    string              `json:"action"`
	Year      int                 `json:"year,omitempty"`
	Month     int                 `json:"month,omitempty"`
	ID        string              `json:"id,omitempty"`
	Date      string              `json:"date,omitempty"`
	Done      bool                `json:"done,omitempty"`
	Day       *entry.Fields       `json:"day,omitempty"`
	Endeavors []endeavor.Endeavor `json:"endeavors,omitempty"`
}

type monthSnapshot struct {
	seq  int
	view entry.MonthView
	err  error
}

type settingsSnapshot struct {
	list []endeavor.Endeavor
	err  error
}

type calendarPayload struct {
	Action     string                `json:"action"`
	Year       int                   `json:"year"`
	Month      int                   `json:"month"`
	MonthLabel string                `json:"monthLabel"`
	Grid       grid.Model            `json:"grid"`
	Weeks      []progress.WeekBucket `json:"weeks"`
	Quest      progress.QuestPath    `json:"quest"`
}

type endeavorsPayload struct {
	Action      string              `json:"action"`
	Endeavors   []endeavor.Endeavor `json:"endeavors"`
	IconPresets []string            `json:"iconPresets"`
}

type statusPayload struct {
	Action string     `json:"action"`
	Status SyncStatus `json:"status"`
}

type PlannerSession struct {
	ID      string
	manager *SessionManager
	store   EntryStore
	conn    *websocket.Conn

	send    chan []byte
	intents chan Intent

	monthSnaps    chan monthSnapshot
	settingsSnaps chan settingsSnapshot

	ctx    context.Context
	cancel context.CancelFunc

	// Owned by Run().
	year         int
	month        int
	view         entry.MonthView
	endeavors    []endeavor.Endeavor
	stopMonth    func()
	stopSettings func()
	subSeq       int
	loaded       bool
	bootstrapped bool
}

// SessionManager tracks the live planner sessions and hands the shared
// EntryStore to each of them.
type SessionManager struct {
	store    EntryStore
	sessions map[string]*PlannerSession
	mu       sync.RWMutex
}

func NewSessionManager(store EntryStore) *SessionManager {
	return &SessionManager{
		store:    store,
		sessions: make(map[string]*PlannerSession),
	}
}

func (m *SessionManager) newSession() *PlannerSession {
	now := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	s := &PlannerSession{
		ID:            uuid.NewString(),
		manager:       m,
		store:         m.store,
		send:          make(chan []byte, sendBuffer),
		intents:       make(chan Intent, 8),
		monthSnaps:    make(chan monthSnapshot, 8),
		settingsSnaps: make(chan settingsSnapshot, 8),
		ctx:           ctx,
		cancel:        cancel,
		year:          now.Year(),
		month:         int(now.Month()),
		view:          entry.MonthView{},
		endeavors:     endeavor.Defaults(),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	middleware.SessionOpened()
	return s
}

func (m *SessionManager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Serve runs a planner session over an upgraded WebSocket connection and
// blocks until the peer goes away.
func (m *SessionManager) Serve(conn *websocket.Conn) {
	s := m.newSession()
	s.conn = conn

	log.Printf("[PlannerSession %s] connected. Active: %d", s.ID, m.Count())

	go s.Run()
	go s.writePump()
	s.readPump()
}

// Shutdown cancels every live session, used on server stop.
func (m *SessionManager) Shutdown() {
	m.mu.RLock()
	sessions := make([]*PlannerSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		s.cancel()
	}
}

// Run is the session's single control loop. Every cache mutation and every
// outbound push happens here.
func (s *PlannerSession) Run() {
	defer s.teardown()

	s.subscribeSettings()
	s.subscribeMonth()

	loadTimer := time.NewTimer(initialLoadTimeout)
	defer loadTimer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case in := <-s.intents:
			s.handleIntent(in)

		case snap := <-s.monthSnaps:
			if snap.seq != s.subSeq {
				// Snapshot from an abandoned subscription.
				continue
			}
			if snap.err != nil {
				s.pushStatus(SyncError)
				continue
			}
			s.loaded = true
			s.view = snap.view
			s.pushCalendar()
			s.pushStatus(SyncSynced)

		case snap := <-s.settingsSnaps:
			if snap.err != nil {
				s.pushStatus(SyncError)
				continue
			}
			s.applySettings(snap.list)

		case <-loadTimer.C:
			if !s.loaded {
				log.Printf("[PlannerSession %s] no snapshot within %s of load", s.ID, initialLoadTimeout)
				s.pushStatus(SyncError)
			}
		}
	}
}

func (s *PlannerSession) teardown() {
	if s.stopMonth != nil {
		s.stopMonth()
	}
	if s.stopSettings != nil {
		s.stopSettings()
	}
	s.cancel()
	close(s.send)
	s.manager.remove(s.ID)
	middleware.SessionClosed()
	log.Printf("[PlannerSession %s] closed. Active: %d", s.ID, s.manager.Count())
}

// subscribeMonth releases the previous month listener before starting the
// next one, so at most one is live and two listeners never race to
// overwrite the cached view. The sequence number fences out snapshots that
// were already in flight when the old subscription was stopped.
func (s *PlannerSession) subscribeMonth() {
	if s.stopMonth != nil {
		s.stopMonth()
	}
	s.subSeq++
	s.loaded = false
	seq := s.subSeq

	s.stopMonth = s.store.SubscribeMonth(s.ctx, s.year, s.month, func(view entry.MonthView, err error) {
		select {
		case s.monthSnaps <- monthSnapshot{seq: seq, view: view, err: err}:
		case <-s.ctx.Done():
		}
	})
	s.pushStatus(SyncSyncing)
}

func (s *PlannerSession) subscribeSettings() {
	s.stopSettings = s.store.SubscribeSettings(s.ctx, func(list []endeavor.Endeavor, err error) {
		select {
		case s.settingsSnaps <- settingsSnapshot{list: list, err: err}:
		case <-s.ctx.Done():
		}
	})
}

// applySettings swaps in the endeavor triple (defaults when the persisted
// list is absent or malformed) and persists the defaults back once per
// session so a fresh install becomes editable. Two clients bootstrapping
// simultaneously converge by last-write-wins on the single settings doc.
func (s *PlannerSession) applySettings(list []endeavor.Endeavor) {
	norm, fellBack := endeavor.Normalize(list)
	s.endeavors = norm
	s.pushEndeavors()
	if s.loaded {
		s.pushCalendar()
	}

	if fellBack && !s.bootstrapped {
		s.bootstrapped = true
		ctx, cancelFn := context.WithTimeout(s.ctx, mutationTimeout)
		defer cancelFn()
		if err := s.store.SaveSettings(ctx, norm); err != nil {
			log.Printf("[PlannerSession %s] settings bootstrap write failed: %v", s.ID, err)
		}
	}
}

func (s *PlannerSession) handleIntent(in Intent) {
	switch in.Action {
	case "prev_month":
		s.month--
		if s.month < 1 {
			s.month = 12
			s.year--
		}
		s.subscribeMonth()

	case "next_month":
		s.month++
		if s.month > 12 {
			s.month = 1
			s.year++
		}
		s.subscribeMonth()

	case "goto_month":
		if in.Month < 1 || in.Month > 12 || in.Year < 1 {
			log.Printf("[PlannerSession %s] goto_month rejected: %04d-%02d", s.ID, in.Year, in.Month)
			return
		}
		s.year, s.month = in.Year, in.Month
		s.subscribeMonth()

	case "save_day":
		if in.Day == nil || in.Day.Date == "" {
			return
		}
		s.mutate("save_day", func(ctx context.Context) error {
			if in.ID != "" {
				return s.store.UpdateEntry(ctx, in.ID, *in.Day)
			}
			_, err := s.store.CreateEntry(ctx, *in.Day)
			return err
		})

	case "delete_day":
		// Delete is only dispatched with a bound id.
		if in.ID == "" {
			return
		}
		s.mutate("delete_day", func(ctx context.Context) error {
			return s.store.DeleteEntry(ctx, in.ID)
		})

	case "toggle_done":
		if in.ID == "" {
			return
		}
		s.mutate("toggle_done", func(ctx context.Context) error {
			return s.store.SetDone(ctx, in.ID, in.Done)
		})

	case "move_day":
		// A drop with a missing payload or destination is a silent no-op.
		if in.ID == "" || in.Date == "" {
			return
		}
		s.mutate("move_day", func(ctx context.Context) error {
			return s.store.MoveEntry(ctx, in.ID, in.Date)
		})

	case "save_settings":
		if len(in.Endeavors) != endeavor.Count {
			log.Printf("[PlannerSession %s] save_settings rejected: got %d endeavors", s.ID, len(in.Endeavors))
			s.pushStatus(SyncError)
			return
		}
		// Keys are re-derived by position; the list fully replaces the
		// persisted one while the settings doc itself is merge-written.
		rebuilt, _ := endeavor.Normalize(in.Endeavors)
		s.mutate("save_settings", func(ctx context.Context) error {
			return s.store.SaveSettings(ctx, rebuilt)
		})

	default:
		log.Printf("[PlannerSession %s] unknown action %q", s.ID, in.Action)
	}
}

// mutate wraps a store call with the sync status dance. A failed write
// never touches the cached view: the cache only ever reflects confirmed
// snapshots, and "synced" is pushed when the next one lands.
func (s *PlannerSession) mutate(op string, fn func(ctx context.Context) error) {
	s.pushStatus(SyncSyncing)
	ctx, cancelFn := context.WithTimeout(s.ctx, mutationTimeout)
	defer cancelFn()
	if err := fn(ctx); err != nil {
		log.Printf("[PlannerSession %s] %s failed: %v", s.ID, op, err)
		s.pushStatus(SyncError)
	}
}

func (s *PlannerSession) pushCalendar() {
	buckets := progress.ComputeWeeklyProgress(s.year, s.month, s.view)
	s.push(calendarPayload{
		Action:     "calendar",
		Year:       s.year,
		Month:      s.month,
		MonthLabel: fmt.Sprintf("%s %d", time.Month(s.month), s.year),
		Grid:       grid.RenderMonth(s.year, s.month, s.view, s.endeavors, time.Now()),
		Weeks:      buckets,
		Quest:      progress.BuildQuestPath(buckets),
	})
}

func (s *PlannerSession) pushEndeavors() {
	s.push(endeavorsPayload{
		Action:      "endeavors",
		Endeavors:   s.endeavors,
		IconPresets: endeavor.IconPresets,
	})
}

func (s *PlannerSession) pushStatus(st SyncStatus) {
	s.push(statusPayload{Action: "sync", Status: st})
}

func (s *PlannerSession) push(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[PlannerSession %s] marshal error: %v", s.ID, err)
		return
	}
	select {
	case s.send <- data:
	default:
		// Peer is not draining; drop the session rather than block Run.
		log.Printf("[PlannerSession %s] send buffer full, dropping session", s.ID)
		s.cancel()
	}
}

// readPump handles messages coming FROM the peer.
func (s *PlannerSession) readPump() {
	defer func() {
		s.cancel()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[PlannerSession %s] read error: %v", s.ID, err)
			}
			return
		}

		var in Intent
		if err := json.Unmarshal(message, &in); err != nil {
			log.Printf("[PlannerSession %s] bad intent payload: %v", s.ID, err)
			continue
		}

		select {
		case s.intents <- in:
		case <-s.ctx.Done():
			return
		}
	}
}

// writePump handles messages going TO the peer.
func (s *PlannerSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The session closed the channel.
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			// Heartbeat: keep connection alive
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
