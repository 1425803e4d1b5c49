// ABOUTME: Editor sessions of the export service
// ABOUTME: Slot contents with generations, preview tasks and WebSocket subscribers
package server

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/op1kit/op1drum/pkg/bridge"
	"github.com/op1kit/op1drum/pkg/op1"
)

// Message is the envelope of every event sent over a session's WebSocket
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// SlotEvent describes the state of one slot
type SlotEvent struct {
	Slot       int       `json:"slot"`
	Generation uint64    `json:"generation"`
	Name       string    `json:"name,omitempty"`
	Empty      bool      `json:"empty,omitempty"`
	Pending    bool      `json:"pending,omitempty"`
	Rate       int       `json:"rate,omitempty"`
	Frames     int       `json:"frames,omitempty"`
	Duration   float64   `json:"duration,omitempty"`
	Waveform   []float32 `json:"waveform,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// SessionState is the payload of the first message on a session's WebSocket
type SessionState struct {
	ID    string      `json:"id"`
	Slots []SlotEvent `json:"slots"`
}

// Slot is the content of one drum key
type Slot struct {
	Name       string
	Data       []byte
	Generation uint64
	Pending    bool
	Rate       int
	Frames     int
	Waveform   []float32
	Err        string
}

func (sl *Slot) event(n int) SlotEvent {
	ev := SlotEvent{
		Slot:       n,
		Generation: sl.Generation,
		Name:       sl.Name,
		Pending:    sl.Pending,
		Rate:       sl.Rate,
		Frames:     sl.Frames,
		Waveform:   sl.Waveform,
		Error:      sl.Err,
	}
	if sl.Rate > 0 {
		ev.Duration = float64(sl.Frames) / float64(sl.Rate)
	}
	return ev
}

// subscriber is one WebSocket connection listening to a session
type subscriber struct {
	conn     *websocket.Conn
	sendChan chan interface{}
}

// Session holds the slots of one editor and the previews decoding for it
type Session struct {
	ID      string
	Created time.Time

	ctx    context.Context
	cancel context.CancelFunc
	tasks  *errgroup.Group

	mu       sync.Mutex
	lastSeen time.Time
	slots    [op1.Slots]*Slot
	nextGen  uint64
	subs     map[*subscriber]struct{}
	closed   bool
}

func newSession(concurrency int) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	tasks, ctx := errgroup.WithContext(ctx)
	tasks.SetLimit(concurrency)

	now := time.Now()
	return &Session{
		ID:       uuid.New().String(),
		Created:  now,
		ctx:      ctx,
		cancel:   cancel,
		tasks:    tasks,
		lastSeen: now,
		subs:     make(map[*subscriber]struct{}),
	}
}

func validSlot(n int) error {
	if n < 0 || n >= op1.Slots {
		return fmt.Errorf("slot must be between 0 and %d, got %d", op1.Slots-1, n)
	}
	return nil
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// setSlot stores new content for slot n and returns its generation. Any
// preview still running for the slot becomes stale.
func (s *Session) setSlot(n int, name string, data []byte) uint64 {
	s.mu.Lock()
	s.nextGen++
	sl := &Slot{Name: name, Data: data, Generation: s.nextGen, Pending: true}
	s.slots[n] = sl
	s.lastSeen = time.Now()
	ev := sl.event(n)
	s.mu.Unlock()

	s.broadcast(Message{Type: "slot", Payload: ev})
	return ev.Generation
}

// clearSlot empties slot n, reporting whether it held anything
func (s *Session) clearSlot(n int) bool {
	s.mu.Lock()
	had := s.slots[n] != nil
	s.slots[n] = nil
	s.nextGen++
	gen := s.nextGen
	s.lastSeen = time.Now()
	s.mu.Unlock()

	if had {
		s.broadcast(Message{Type: "slot", Payload: SlotEvent{Slot: n, Generation: gen, Empty: true}})
	}
	return had
}

// completePreview records a finished preview. It returns false and changes
// nothing when the slot has moved on to another generation.
func (s *Session) completePreview(n int, gen uint64, res previewResult) bool {
	s.mu.Lock()
	sl := s.slots[n]
	if sl == nil || sl.Generation != gen {
		s.mu.Unlock()
		return false
	}
	sl.Pending = false
	if res.err != nil {
		sl.Err = res.err.Error()
	} else {
		sl.Rate = res.rate
		sl.Frames = res.frames
		sl.Waveform = res.waveform
	}
	ev := sl.event(n)
	s.mu.Unlock()

	s.broadcast(Message{Type: "slot", Payload: ev})
	return true
}

// files returns the filled slots in slot order
func (s *Session) files() []bridge.File {
	s.mu.Lock()
	defer s.mu.Unlock()

	var files []bridge.File
	for _, sl := range s.slots {
		if sl != nil {
			files = append(files, bridge.File{Name: sl.Name, Data: sl.Data})
		}
	}
	return files
}

// snapshot returns events for every filled slot
func (s *Session) snapshot() []SlotEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() []SlotEvent {
	events := []SlotEvent{}
	for n, sl := range s.slots {
		if sl != nil {
			events = append(events, sl.event(n))
		}
	}
	return events
}

func (s *Session) filled() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, sl := range s.slots {
		if sl != nil {
			n++
		}
	}
	return n
}

// subscribe registers sub and queues a snapshot of the session as its
// first message, so no slot event is missed or seen twice
func (s *Session) subscribe(sub *subscriber) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	sub.sendChan <- Message{Type: "session", Payload: SessionState{ID: s.ID, Slots: s.snapshotLocked()}}
	s.subs[sub] = struct{}{}
	return true
}

func (s *Session) unsubscribe(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub]; ok {
		delete(s.subs, sub)
		close(sub.sendChan)
	}
}

func (s *Session) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// broadcast queues msg for every subscriber without blocking
func (s *Session) broadcast(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subs {
		select {
		case sub.sendChan <- msg:
		default:
			log.Printf("Session %s: subscriber send buffer full, dropping %s event", s.ID, msg.Type)
		}
	}
}

// close cancels pending previews, waits for running ones and disconnects
// subscribers
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.tasks.Wait()

	s.mu.Lock()
	for sub := range s.subs {
		delete(s.subs, sub)
		close(sub.sendChan)
	}
	s.mu.Unlock()
}
