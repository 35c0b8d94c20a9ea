package http_room

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	http_common "github.com/lidiakram/bottlespin/internal/delivery/http/common"
	"github.com/lidiakram/bottlespin/internal/model"
	usecase_room "github.com/lidiakram/bottlespin/internal/usecase/room"
)

const maxUploadBytes = 10 << 20

// Media stores uploaded room media and returns a reference URL.
type Media interface {
	Put(ctx context.Context, name, contentType string, body io.Reader) (string, error)
}

type Controller struct {
	usecase *usecase_room.Usecase
	media   Media
	logger  *slog.Logger
}

func New(usecase *usecase_room.Usecase, media Media) *Controller {
	return &Controller{
		usecase: usecase,
		media:   media,
		logger:  slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	rooms := router.Group("/rooms")
	{
		rooms.POST("", c.create)
		rooms.GET("/:key/join-check", c.joinCheck)
		rooms.POST("/:key/media", c.upload)
	}
}

type CreateRequestDTO struct {
	MaxSkips int `json:"max_skips"`
}

type CreateResponseDTO struct {
	RoomID  string `json:"room_id"`
	RoomKey string `json:"room_key"`
}

// create books a new room and returns its shareable key.
func (c *Controller) create(ctx *gin.Context) {
	var req CreateRequestDTO
	_ = ctx.ShouldBindJSON(&req)

	room, err := c.usecase.Create(ctx, req.MaxSkips)
	if err != nil {
		c.logger.Error("failed to create room", slog.String("error", err.Error()))
		switch {
		case errors.Is(err, usecase_room.ErrRoomsUnavailable):
			ctx.JSON(http.StatusServiceUnavailable, http_common.ErrorResponse{
				Message: "unavailable",
			})
		default:
			ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
				Message: "internal error",
			})
		}
		return
	}

	ctx.JSON(http.StatusCreated, CreateResponseDTO{
		RoomID:  room.ID.String(),
		RoomKey: string(room.Key),
	})
}

type JoinCheckResponseDTO struct {
	RoomKey          string `json:"room_key"`
	Banned           bool   `json:"banned"`
	CanRequestRejoin bool   `json:"can_request_rejoin"`
}

// joinCheck validates a join attempt for the caller's address before
// the websocket is ever opened.
func (c *Controller) joinCheck(ctx *gin.Context) {
	key := model.RoomKey(ctx.Param("key"))

	res, err := c.usecase.JoinPrecheck(ctx, key, ctx.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRoomNotFound):
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
				Message: "room not found",
			})
		case errors.Is(err, model.ErrRoomExpired):
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
				Message: "room expired",
			})
		case errors.Is(err, model.ErrPermanentlyBanned):
			ctx.JSON(http.StatusForbidden, http_common.ErrorResponse{
				Message: "permanently banned",
			})
		default:
			c.logger.Error("join precheck failed", slog.String("error", err.Error()))
			ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
				Message: "internal error",
			})
		}
		return
	}

	ctx.JSON(http.StatusOK, JoinCheckResponseDTO{
		RoomKey:          string(res.Room.Key),
		Banned:           res.Banned,
		CanRequestRejoin: res.CanRequestRejoin,
	})
}

type UploadResponseDTO struct {
	MediaURL  string `json:"media_url"`
	MediaType string `json:"media_type"`
}

// upload accepts one media file for a room message. Size and content
// type are validated here; the returned URL is passed back by the
// client in a following send_message event.
func (c *Controller) upload(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "file missing",
		})
		return
	}
	if file.Size > maxUploadBytes {
		ctx.JSON(http.StatusRequestEntityTooLarge, http_common.ErrorResponse{
			Message: "file too large",
		})
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") && !strings.HasPrefix(contentType, "video/") {
		ctx.JSON(http.StatusUnsupportedMediaType, http_common.ErrorResponse{
			Message: "unsupported media type",
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
			Message: "internal error",
		})
		return
	}
	defer src.Close()

	name := fmt.Sprintf("%s/%s-%s", ctx.Param("key"), uuid.NewString(), file.Filename)
	url, err := c.media.Put(ctx, name, contentType, src)
	if err != nil {
		c.logger.Error("media upload failed", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
			Message: "internal error",
		})
		return
	}

	ctx.JSON(http.StatusCreated, UploadResponseDTO{
		MediaURL:  url,
		MediaType: contentType,
	})
}
