package ws_room

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lidiakram/bottlespin/internal/model"
	"github.com/lidiakram/bottlespin/internal/session"
)

// Inbound event names, client -> server.
const (
	ActionJoinRoom     = "join_room"
	ActionSendMessage  = "send_message"
	ActionSpinBottle   = "spin_bottle"
	ActionChoose       = "choose_truth_or_dare"
	ActionSubmitText   = "submit_question"
	ActionNextTurn     = "next_turn"
	ActionUseSkip      = "use_skip"
	ActionInitiateVote = "initiate_vote"
	ActionCastVote     = "cast_vote"
)

type inboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	RoomKey  string `json:"room_key"`
	Username string `json:"username"`
}

type messagePayload struct {
	Text      string `json:"text"`
	MediaURL  string `json:"media_url"`
	MediaType string `json:"media_type"`
}

type choosePayload struct {
	Choice string `json:"choice"`
}

type questionPayload struct {
	Question string `json:"question"`
}

type initiateVotePayload struct {
	TargetUserID string `json:"target_user_id"`
	TargetName   string `json:"target_name"`
	Kind         string `json:"kind"`
}

type castVotePayload struct {
	VoteID string `json:"vote_id"`
	Vote   bool   `json:"vote"`
}

// RateLimiter is the per-IP, per-action admission check.
type RateLimiter interface {
	Allow(addr, action string) (bool, int, error)
}

type Controller struct {
	registry *session.Registry
	hub      *Hub
	limiter  RateLimiter
	logger   *slog.Logger

	upgrader websocket.Upgrader
}

func New(registry *session.Registry, hub *Hub, limiter RateLimiter, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		registry: registry,
		hub:      hub,
		limiter:  limiter,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", c.serve)
}

func (c *Controller) serve(ctx *gin.Context) {
	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := &Client{
		ID:   uuid.NewString(),
		Conn: conn,
		Send: make(chan session.Event, 32),
	}
	c.hub.Register(client)
	go c.hub.StartClientWriting(client)

	addr := ctx.ClientIP()
	var sess *session.Session

	defer func() {
		if sess != nil {
			sess.Disconnect(client.ID)
		}
		c.hub.Remove(client)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var ev inboundEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.sendError(client, model.ErrInvalidTransition, 0)
			continue
		}

		if ev.Type == ActionJoinRoom {
			sess = c.handleJoin(ctx, client, addr, ev.Payload, sess)
			continue
		}
		if sess == nil {
			c.sendError(client, model.ErrNotAuthenticated, 0)
			continue
		}
		if err := c.dispatch(ctx, sess, client, addr, ev); err != nil {
			retryAfter := 0
			if errors.Is(err, model.ErrRateLimited) {
				if r, ok := err.(interface{ RetryAfter() int }); ok {
					retryAfter = r.RetryAfter()
				}
			}
			c.sendError(client, err, retryAfter)
		}
	}
}

func (c *Controller) handleJoin(ctx *gin.Context, client *Client, addr string, raw json.RawMessage, prev *session.Session) *session.Session {
	var p joinPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomKey == "" || p.Username == "" {
		c.sendError(client, model.ErrInvalidTransition, 0)
		return prev
	}
	if ok, retryAfter := c.allow(addr, "join"); !ok {
		c.sendError(client, model.ErrRateLimited, retryAfter)
		return prev
	}

	sess, err := c.registry.Get(ctx, model.RoomKey(p.RoomKey))
	if err != nil {
		c.sendError(client, err, 0)
		return prev
	}
	if prev != nil && prev != sess {
		prev.Disconnect(client.ID)
		c.hub.Detach(client.ID)
	}
	if err := sess.Join(ctx, client.ID, addr, p.Username); err != nil {
		c.sendError(client, err, 0)
		return prev
	}
	c.hub.Attach(client, sess.Key())
	return sess
}

func (c *Controller) dispatch(ctx *gin.Context, sess *session.Session, client *Client, addr string, ev inboundEvent) error {
	switch ev.Type {
	case ActionSendMessage:
		if ok, retryAfter := c.allow(addr, "message"); !ok {
			return rateLimited{retryAfter}
		}
		var p messagePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return model.ErrInvalidTransition
		}
		return sess.SendMessage(ctx, client.ID, p.Text, p.MediaURL, p.MediaType)

	case ActionSpinBottle:
		return sess.Spin(ctx, client.ID)

	case ActionChoose:
		var p choosePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return model.ErrInvalidTransition
		}
		return sess.Choose(ctx, client.ID, model.Choice(p.Choice))

	case ActionSubmitText:
		var p questionPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return model.ErrInvalidTransition
		}
		return sess.SubmitQuestion(ctx, client.ID, p.Question)

	case ActionNextTurn:
		return sess.NextTurn(ctx, client.ID)

	case ActionUseSkip:
		return sess.UseSkip(ctx, client.ID)

	case ActionInitiateVote:
		if ok, retryAfter := c.allow(addr, "vote"); !ok {
			return rateLimited{retryAfter}
		}
		var p initiateVotePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return model.ErrInvalidTransition
		}
		targetID := uuid.Nil
		if p.TargetUserID != "" {
			id, err := uuid.Parse(p.TargetUserID)
			if err != nil {
				return model.ErrUserNotFound
			}
			targetID = id
		}
		return sess.InitiateVote(ctx, client.ID, targetID, p.TargetName, model.VoteKind(p.Kind))

	case ActionCastVote:
		var p castVotePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return model.ErrInvalidTransition
		}
		voteID, err := uuid.Parse(p.VoteID)
		if err != nil {
			return model.ErrVoteNotFound
		}
		return sess.CastVote(ctx, client.ID, voteID, p.Vote)

	default:
		c.logger.Debug("unknown event", "type", ev.Type)
		return model.ErrInvalidTransition
	}
}

// allow consults the limiter, failing open when redis is unreachable.
func (c *Controller) allow(addr, action string) (bool, int) {
	ok, retryAfter, err := c.limiter.Allow(addr, action)
	if err != nil {
		c.logger.Error("rate limiter failed", slog.String("error", err.Error()))
		return true, 0
	}
	return ok, retryAfter
}

// sendError goes through the hub rather than client.Send directly: a
// concurrent broadcast may have evicted the client and closed its
// channel, and only the hub knows that under its lock.
func (c *Controller) sendError(client *Client, err error, retryAfter int) {
	c.hub.Send(client.ID, session.Event{
		Type: session.EventError,
		Payload: session.ErrorDTO{
			Reason:     model.Reason(err),
			Message:    err.Error(),
			RetryAfter: retryAfter,
		},
	})
}

// rateLimited decorates ErrRateLimited with the retry-after hint.
type rateLimited struct {
	retryAfter int
}

func (r rateLimited) Error() string   { return model.ErrRateLimited.Error() }
func (r rateLimited) Unwrap() error   { return model.ErrRateLimited }
func (r rateLimited) RetryAfter() int { return r.retryAfter }
