package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lidiakram/bottlespin/internal/model"
)

// fakeStore is an in-memory stand-in for every repository port.
type fakeStore struct {
	mu       sync.Mutex
	rooms    map[uuid.UUID]model.Room
	users    map[uuid.UUID]model.User
	states   map[uuid.UUID]model.GameState
	messages []model.Message
	bans     []model.BanRecord
	deleted  []string // media urls removed by the reaper
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:  make(map[uuid.UUID]model.Room),
		users:  make(map[uuid.UUID]model.User),
		states: make(map[uuid.UUID]model.GameState),
	}
}

func (f *fakeStore) ByKey(_ context.Context, key model.RoomKey) (model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.Key == key {
			return r, nil
		}
	}
	return model.Room{}, model.ErrRoomNotFound
}

func (f *fakeStore) Touch(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rooms[id]; ok {
		r.LastActivity = at
		f.rooms[id] = r
	}
	return nil
}

func (f *fakeStore) SetHost(_ context.Context, roomID, hostID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rooms[roomID]; ok {
		r.HostID = hostID
		f.rooms[roomID] = r
	}
	return nil
}

func (f *fakeStore) ListIdle(_ context.Context, cutoff time.Time) ([]model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var idle []model.Room
	for _, r := range f.rooms {
		if r.LastActivity.Before(cutoff) {
			idle = append(idle, r)
		}
	}
	return idle, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, id)
	return nil
}

func (f *fakeStore) Upsert(_ context.Context, user model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

func (f *fakeStore) ListByRoom(_ context.Context, roomID uuid.UUID) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []model.User
	for _, u := range f.users {
		if u.RoomID == roomID {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].JoinedAt.Before(users[j].JoinedAt) })
	return users, nil
}

func (f *fakeStore) DeleteByRoom(_ context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.users {
		if u.RoomID == roomID {
			delete(f.users, id)
		}
	}
	return nil
}

type fakeUsers struct{ *fakeStore }

func (f fakeUsers) Delete(ctx context.Context, id uuid.UUID) error { return f.DeleteUser(ctx, id) }

type fakeStates struct{ *fakeStore }

func (f fakeStates) Upsert(_ context.Context, state model.GameState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state.RoomID] = state
	return nil
}

func (f fakeStates) ByRoom(_ context.Context, roomID uuid.UUID) (model.GameState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.states[roomID]; ok {
		return s, nil
	}
	return model.GameState{}, model.ErrRoomNotFound
}

func (f fakeStates) DeleteByRoom(_ context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, roomID)
	return nil
}

type fakeMessages struct{ *fakeStore }

func (f fakeMessages) Create(_ context.Context, msg model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f fakeMessages) Recent(_ context.Context, roomID uuid.UUID, limit int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var msgs []model.Message
	for _, m := range f.messages {
		if m.RoomID == roomID {
			msgs = append(msgs, m)
		}
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (f fakeMessages) MediaURLs(_ context.Context, roomID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var urls []string
	for _, m := range f.messages {
		if m.RoomID == roomID && m.MediaURL != "" {
			urls = append(urls, m.MediaURL)
		}
	}
	return urls, nil
}

func (f fakeMessages) DeleteByRoom(_ context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.RoomID != roomID {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

type fakeBans struct{ *fakeStore }

func (f fakeBans) Create(_ context.Context, ban model.BanRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bans = append(f.bans, ban)
	return nil
}

func (f fakeBans) ByAddr(_ context.Context, roomID uuid.UUID, addr string) (model.BanRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bans {
		if b.RoomID == roomID && b.Addr == addr {
			return b, true, nil
		}
	}
	return model.BanRecord{}, false, nil
}

func (f fakeBans) Update(_ context.Context, ban model.BanRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.bans {
		if b.RoomID == ban.RoomID && b.Addr == ban.Addr {
			f.bans[i] = ban
		}
	}
	return nil
}

func (f fakeBans) DeleteByName(_ context.Context, roomID uuid.UUID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.bans[:0]
	for _, b := range f.bans {
		if !(b.RoomID == roomID && b.Name == name) {
			kept = append(kept, b)
		}
	}
	f.bans = kept
	return nil
}

func (f fakeBans) DeleteByRoom(_ context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.bans[:0]
	for _, b := range f.bans {
		if b.RoomID != roomID {
			kept = append(kept, b)
		}
	}
	f.bans = kept
	return nil
}

type fakeMedia struct{ *fakeStore }

func (f fakeMedia) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}

// fakeHub records everything the session emits.
type fakeHub struct {
	mu        sync.Mutex
	broadcast []Event
	sent      map[string][]Event
	detached  []string
}

func newFakeHub() *fakeHub {
	return &fakeHub{sent: make(map[string][]Event)}
}

func (h *fakeHub) Broadcast(_ model.RoomKey, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcast = append(h.broadcast, ev)
}

func (h *fakeHub) Send(connID string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent[connID] = append(h.sent[connID], ev)
}

func (h *fakeHub) Detach(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detached = append(h.detached, connID)
}

func (h *fakeHub) broadcastOfType(t string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Event
	for _, ev := range h.broadcast {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (h *fakeHub) sentTo(connID, t string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Event
	for _, ev := range h.sent[connID] {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (h *fakeHub) wasDetached(connID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range h.detached {
		if id == connID {
			return true
		}
	}
	return false
}

// --- harness ---

func testTimings() Timings {
	return Timings{
		SpinResolveLag:  5 * time.Millisecond,
		SpinDurationsMs: []int{1},
		VoteTimeout:     80 * time.Millisecond,
		PresenceGrace:   60 * time.Millisecond,
		InactivityWarn:  60 * time.Millisecond,
		InactivityKick:  30 * time.Millisecond,
		ReapInterval:    time.Hour,
		RoomTTL:         30 * time.Minute,
	}
}

type harness struct {
	store *fakeStore
	hub   *fakeHub
	sess  *Session
	room  model.Room
}

func newHarness(timings Timings) *harness {
	store := newFakeStore()
	hub := newFakeHub()
	now := time.Now()
	room := model.Room{
		ID:           uuid.New(),
		Key:          "123456",
		MaxSkips:     model.DefaultMaxSkips,
		CreatedAt:    now,
		LastActivity: now,
	}
	store.rooms[room.ID] = room
	state := model.GameState{RoomID: room.ID, Phase: model.PhaseWaiting}

	deps := Deps{
		Rooms:     store,
		Users:     fakeUsers{store},
		States:    fakeStates{store},
		Messages:  fakeMessages{store},
		Bans:      fakeBans{store},
		Media:     fakeMedia{store},
		Broadcast: hub,
		Logger:    slog.Default(),
		Timings:   timings,
	}
	return &harness{
		store: store,
		hub:   hub,
		sess:  newSession(room, nil, state, deps),
		room:  room,
	}
}

// inspect reads session state from inside the actor loop.
func (h *harness) inspect(fn func(s *Session)) {
	_ = h.sess.call(context.Background(), func() error {
		fn(h.sess)
		return nil
	})
}

func (h *harness) state() model.GameState {
	var state model.GameState
	h.inspect(func(s *Session) { state = s.state })
	return state
}

func (h *harness) userByName(name string) model.User {
	var user model.User
	h.inspect(func(s *Session) {
		for _, u := range s.users {
			if u.Name == name {
				user = *u
			}
		}
	})
	return user
}

func (h *harness) join(conn, addr, name string) error {
	return h.sess.Join(context.Background(), conn, addr, name)
}
