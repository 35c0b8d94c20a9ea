package session

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lidiakram/bottlespin/internal/model"
)

const recentMessages = 50

// Timings groups every delay the session schedules. Tests shrink them
// to keep the timer paths fast.
type Timings struct {
	// SpinResolveLag is added on top of the visual spin duration
	// before the spin resolves into the choosing phase.
	SpinResolveLag  time.Duration
	SpinDurationsMs []int
	VoteTimeout     time.Duration
	PresenceGrace   time.Duration
	InactivityWarn  time.Duration
	InactivityKick  time.Duration
	ReapInterval    time.Duration
	RoomTTL         time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		SpinResolveLag:  time.Second,
		SpinDurationsMs: model.SpinDurationsMs,
		VoteTimeout:     30 * time.Second,
		PresenceGrace:   120 * time.Second,
		InactivityWarn:  120 * time.Second,
		InactivityKick:  5 * time.Second,
		ReapInterval:    5 * time.Minute,
		RoomTTL:         model.RoomTTL,
	}
}

type Deps struct {
	Rooms     RoomRepository
	Users     UserRepository
	States    GameStateRepository
	Messages  MessageRepository
	Bans      BanRepository
	Media     MediaStore
	Broadcast Broadcaster
	Logger    *slog.Logger
	Timings   Timings
}

// Session is the single-writer owner of one room's live state. All
// mutations run on its goroutine: public methods post closures into
// the inbox and wait, timer callbacks post fire-and-forget commands.
// Nothing outside the loop ever touches users, state or votes.
type Session struct {
	room model.Room
	deps Deps
	log  *slog.Logger
	rng  *rand.Rand

	inbox chan func()
	done  chan struct{}
	once  sync.Once

	// users holds the room membership in join order.
	users []*model.User
	state model.GameState
	votes map[uuid.UUID]*liveVote

	// turnGen invalidates scheduled spin resolutions once the turn
	// state moves on; see resolveSpin.
	turnGen uint64
	watch   map[uuid.UUID]*watcher
	grace   map[uuid.UUID]uint64
}

type liveVote struct {
	model.Vote
	timer *time.Timer
}

// watcher is the two-stage inactivity supervision armed for whoever
// must act next. gen guards against stale timer fire.
type watcher struct {
	gen  uint64
	warn *time.Timer
	kick *time.Timer
}

func newSession(room model.Room, users []model.User, state model.GameState, deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if len(deps.Timings.SpinDurationsMs) == 0 {
		deps.Timings.SpinDurationsMs = model.SpinDurationsMs
	}
	s := &Session{
		room:  room,
		deps:  deps,
		log:   deps.Logger.With("room", string(room.Key)),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		inbox: make(chan func(), 64),
		done:  make(chan struct{}),
		votes: make(map[uuid.UUID]*liveVote),
		watch: make(map[uuid.UUID]*watcher),
		grace: make(map[uuid.UUID]uint64),
	}
	sort.Slice(users, func(i, j int) bool { return users[i].JoinedAt.Before(users[j].JoinedAt) })
	for i := range users {
		u := users[i]
		// Connections did not survive the restart of this session.
		u.ConnID = ""
		s.users = append(s.users, &u)
	}
	s.state = state
	go s.run()
	return s
}

func (s *Session) run() {
	for {
		select {
		case fn := <-s.inbox:
			fn()
		case <-s.done:
			return
		}
	}
}

// call runs fn on the session goroutine and waits for its result.
func (s *Session) call(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	select {
	case s.inbox <- func() { res <- fn() }:
	case <-s.done:
		return model.ErrRoomNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-res:
		return err
	case <-s.done:
		return model.ErrRoomNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn without waiting; used by timer callbacks.
func (s *Session) post(fn func()) {
	select {
	case s.inbox <- fn:
	case <-s.done:
	}
}

// Close tears the session down: every armed timer is stopped and all
// connections are detached, so nothing fires against reaped state.
func (s *Session) Close() {
	s.once.Do(func() {
		stopped := make(chan struct{})
		select {
		case s.inbox <- func() { s.teardown(); close(stopped) }:
			<-stopped
		case <-s.done:
		}
		close(s.done)
	})
}

func (s *Session) teardown() {
	for _, v := range s.votes {
		v.timer.Stop()
	}
	s.votes = map[uuid.UUID]*liveVote{}
	for id := range s.watch {
		s.disarmWatch(id)
	}
	for id := range s.grace {
		s.grace[id]++
	}
	for _, u := range s.users {
		if u.ConnID != "" {
			s.deps.Broadcast.Send(u.ConnID, Event{Type: EventRoomClosed})
			s.deps.Broadcast.Detach(u.ConnID)
		}
	}
	s.log.Info("session closed")
}

func (s *Session) Key() model.RoomKey { return s.room.Key }

// --- membership ---

// Join attaches a connection to the room. A reconnect under the same
// name within the grace window resumes the existing user untouched;
// otherwise a fresh User record is created.
func (s *Session) Join(ctx context.Context, connID, addr, name string) error {
	return s.call(ctx, func() error {
		if ban, ok, err := s.deps.Bans.ByAddr(ctx, s.room.ID, addr); err != nil {
			s.log.Error("ban lookup failed", slog.String("error", err.Error()))
		} else if ok {
			if ban.Permanent {
				return model.ErrPermanentlyBanned
			}
			return model.ErrBanned
		}

		if u := s.userInGrace(name); u != nil {
			s.grace[u.ID]++ // cancel pending grace expiry
			u.ConnID = connID
			u.Addr = addr
			s.sendSnapshot(ctx, connID, u)
			s.bumpActivity(ctx)
			s.log.Info("user resumed", "user", u.Name)
			return nil
		}

		u := &model.User{
			ID:        uuid.New(),
			Name:      name,
			RoomID:    s.room.ID,
			Online:    true,
			SkipsLeft: s.room.MaxSkips,
			JoinedAt:  time.Now(),
			ConnID:    connID,
			Addr:      addr,
		}
		s.users = append(s.users, u)
		s.ensureHost(ctx)
		if err := s.deps.Users.Upsert(ctx, *u); err != nil {
			s.log.Error("persist user failed", slog.String("error", err.Error()))
		}

		s.broadcast(Event{Type: EventUserJoined, Payload: userDTO(u)})
		s.systemMessage(ctx, u.Name+" joined the room")
		s.sendSnapshot(ctx, connID, u)
		s.maybeStartTwoPlayerGame(ctx)
		s.bumpActivity(ctx)
		s.log.Info("user joined", "user", u.Name)
		return nil
	})
}

// Disconnect starts the presence grace window; the user stays online
// until it expires without a matching rejoin.
func (s *Session) Disconnect(connID string) {
	s.post(func() {
		u := s.findByConn(connID)
		if u == nil {
			return
		}
		u.ConnID = ""
		s.grace[u.ID]++
		gen := s.grace[u.ID]
		time.AfterFunc(s.deps.Timings.PresenceGrace, func() {
			s.post(func() { s.graceExpired(u.ID, gen) })
		})
		s.log.Info("connection lost, grace started", "user", u.Name)
	})
}

// SendMessage appends a chat message and broadcasts it.
func (s *Session) SendMessage(ctx context.Context, connID, text, mediaURL, mediaType string) error {
	return s.call(ctx, func() error {
		u := s.findByConn(connID)
		if u == nil {
			return model.ErrNotAuthenticated
		}
		msg := model.Message{
			ID:        uuid.New(),
			RoomID:    s.room.ID,
			UserID:    u.ID,
			Name:      u.Name,
			Text:      text,
			MediaURL:  mediaURL,
			MediaType: mediaType,
			CreatedAt: time.Now(),
		}
		if err := s.deps.Messages.Create(ctx, msg); err != nil {
			s.log.Error("persist message failed", slog.String("error", err.Error()))
		}
		s.broadcast(Event{Type: EventNewMessage, Payload: messageDTO(msg)})
		s.bumpActivity(ctx)
		return nil
	})
}

// --- helpers, session goroutine only ---

func (s *Session) findByConn(connID string) *model.User {
	if connID == "" {
		return nil
	}
	for _, u := range s.users {
		if u.ConnID == connID {
			return u
		}
	}
	return nil
}

func (s *Session) findByID(id uuid.UUID) *model.User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// userInGrace finds an online user with no connection under the given
// name, i.e. one whose grace timer has not expired yet.
func (s *Session) userInGrace(name string) *model.User {
	for _, u := range s.users {
		if u.Name == name && u.Online && u.ConnID == "" {
			return u
		}
	}
	return nil
}

// onlineUsers returns online members in join order.
func (s *Session) onlineUsers() []*model.User {
	var online []*model.User
	for _, u := range s.users {
		if u.Online {
			online = append(online, u)
		}
	}
	return online
}

func (s *Session) broadcast(ev Event) {
	s.deps.Broadcast.Broadcast(s.room.Key, ev)
}

func (s *Session) sendSnapshot(ctx context.Context, connID string, you *model.User) {
	msgs, err := s.deps.Messages.Recent(ctx, s.room.ID, recentMessages)
	if err != nil {
		s.log.Error("load messages failed", slog.String("error", err.Error()))
	}
	snap := SnapshotDTO{
		You:      userDTO(you),
		Room:     roomDTO(s.room),
		Game:     gameStateDTO(s.state),
		Users:    make([]UserDTO, 0, len(s.users)),
		Messages: make([]MessageDTO, 0, len(msgs)),
	}
	for _, u := range s.users {
		snap.Users = append(snap.Users, userDTO(u))
	}
	for _, m := range msgs {
		snap.Messages = append(snap.Messages, messageDTO(m))
	}
	s.deps.Broadcast.Send(connID, Event{Type: EventRoomJoined, Payload: snap})
}

func (s *Session) systemMessage(ctx context.Context, text string) {
	msg := model.Message{
		ID:        uuid.New(),
		RoomID:    s.room.ID,
		Name:      model.SystemInitiator,
		Text:      text,
		CreatedAt: time.Now(),
	}
	if err := s.deps.Messages.Create(ctx, msg); err != nil {
		s.log.Error("persist system message failed", slog.String("error", err.Error()))
	}
	s.broadcast(Event{Type: EventNewMessage, Payload: messageDTO(msg)})
}

func (s *Session) bumpActivity(ctx context.Context) {
	now := time.Now()
	s.room.LastActivity = now
	if err := s.deps.Rooms.Touch(ctx, s.room.ID, now); err != nil {
		s.log.Error("touch room failed", slog.String("error", err.Error()))
	}
}

func (s *Session) persistState(ctx context.Context) {
	s.state.UpdatedAt = time.Now()
	if err := s.deps.States.Upsert(ctx, s.state); err != nil {
		s.log.Error("persist game state failed", slog.String("error", err.Error()))
	}
}

func (s *Session) persistUser(ctx context.Context, u *model.User) {
	if err := s.deps.Users.Upsert(ctx, *u); err != nil {
		s.log.Error("persist user failed", slog.String("error", err.Error()))
	}
}
