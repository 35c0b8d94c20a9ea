package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lidiakram/bottlespin/internal/model"
)

// Registry owns the live sessions, one per room key, and runs the
// periodic sweep that reaps rooms idle for longer than the TTL. The
// sweep is purely activity driven: a room full of silent online users
// is reaped all the same.
type Registry struct {
	deps Deps
	log  *slog.Logger

	mu       sync.Mutex
	sessions map[model.RoomKey]*Session

	stop     chan struct{}
	stopOnce sync.Once
}

func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Registry{
		deps:     deps,
		log:      deps.Logger,
		sessions: make(map[model.RoomKey]*Session),
		stop:     make(chan struct{}),
	}
}

// Get returns the live session for a room, creating it on first use by
// loading the room, its members and its game state from storage.
func (r *Registry) Get(ctx context.Context, key model.RoomKey) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[key]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	room, err := r.deps.Rooms.ByKey(ctx, key)
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			return nil, model.ErrRoomNotFound
		}
		return nil, errors.Join(model.ErrInternal, err)
	}
	if room.Expired {
		return nil, model.ErrRoomExpired
	}
	users, err := r.deps.Users.ListByRoom(ctx, room.ID)
	if err != nil {
		return nil, errors.Join(model.ErrInternal, err)
	}
	state, err := r.deps.States.ByRoom(ctx, room.ID)
	if err != nil {
		if !errors.Is(err, model.ErrRoomNotFound) {
			return nil, errors.Join(model.ErrInternal, err)
		}
		state = model.GameState{RoomID: room.ID, Phase: model.PhaseWaiting}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		// Lost the creation race; the winner's session is authoritative.
		return s, nil
	}
	s := newSession(room, users, state, r.deps)
	r.sessions[key] = s
	r.log.Info("session created", "room", string(key))
	return s, nil
}

// Run blocks, sweeping idle rooms every ReapInterval until Stop.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.deps.Timings.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep(ctx, time.Now())
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Sweep reaps every room whose last activity predates now-RoomTTL:
// session torn down (timers cancelled, connections detached), then
// messages, uploaded media, game state, members, bans and finally the
// room record cascade-deleted.
func (r *Registry) Sweep(ctx context.Context, now time.Time) {
	cutoff := now.Add(-r.deps.Timings.RoomTTL)
	rooms, err := r.deps.Rooms.ListIdle(ctx, cutoff)
	if err != nil {
		r.log.Error("list idle rooms failed", slog.String("error", err.Error()))
		return
	}
	for _, room := range rooms {
		r.reap(ctx, room)
	}
}

func (r *Registry) reap(ctx context.Context, room model.Room) {
	r.mu.Lock()
	s, live := r.sessions[room.Key]
	delete(r.sessions, room.Key)
	r.mu.Unlock()
	if live {
		s.Close()
	}

	urls, err := r.deps.Messages.MediaURLs(ctx, room.ID)
	if err != nil {
		r.log.Error("list media failed", slog.String("error", err.Error()))
	}
	for _, url := range urls {
		if err := r.deps.Media.Delete(ctx, url); err != nil {
			r.log.Error("delete media failed", "url", url, slog.String("error", err.Error()))
		}
	}
	if err := r.deps.Messages.DeleteByRoom(ctx, room.ID); err != nil {
		r.log.Error("delete messages failed", slog.String("error", err.Error()))
	}
	if err := r.deps.States.DeleteByRoom(ctx, room.ID); err != nil {
		r.log.Error("delete game state failed", slog.String("error", err.Error()))
	}
	if err := r.deps.Users.DeleteByRoom(ctx, room.ID); err != nil {
		r.log.Error("delete users failed", slog.String("error", err.Error()))
	}
	if err := r.deps.Bans.DeleteByRoom(ctx, room.ID); err != nil {
		r.log.Error("delete bans failed", slog.String("error", err.Error()))
	}
	if err := r.deps.Rooms.Delete(ctx, room.ID); err != nil {
		r.log.Error("delete room failed", slog.String("error", err.Error()))
	}
	r.log.Info("room reaped", "room", string(room.Key))
}

// CloseAll is called on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = map[model.RoomKey]*Session{}
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
