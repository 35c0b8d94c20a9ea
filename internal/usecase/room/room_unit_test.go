package usecase_room

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/lidiakram/bottlespin/internal/model"
	ban_mocks "github.com/lidiakram/bottlespin/internal/usecase/room/mocks/bans"
	state_mocks "github.com/lidiakram/bottlespin/internal/usecase/room/mocks/gamestate"
	repo_mocks "github.com/lidiakram/bottlespin/internal/usecase/room/mocks/repository"
)

type UsecaseRoomUnitSuite struct {
	suite.Suite
}

type resources struct {
	usecase   *Usecase
	roomRepo  *repo_mocks.RoomRepository
	stateRepo *state_mocks.GameStateRepository
	banRepo   *ban_mocks.BanRepository
	ctx       context.Context
}

func initResources(t provider.T) *resources {
	roomRepo := repo_mocks.NewRoomRepository(t)
	stateRepo := state_mocks.NewGameStateRepository(t)
	banRepo := ban_mocks.NewBanRepository(t)
	usecase := New(roomRepo, stateRepo, banRepo)

	return &resources{
		usecase:   usecase,
		roomRepo:  roomRepo,
		stateRepo: stateRepo,
		banRepo:   banRepo,
		ctx:       context.Background(),
	}
}

func liveRoom() model.Room {
	now := time.Now()
	return model.Room{
		Key:          "123456",
		MaxSkips:     model.DefaultMaxSkips,
		CreatedAt:    now,
		LastActivity: now,
	}
}

func (suite *UsecaseRoomUnitSuite) TestCreate(t provider.T) {
	t.Parallel()

	storageDown := errors.New("connection refused")

	testCases := []struct {
		name          string
		maxSkips      int
		setupMocks    func(r *resources)
		expectError   bool
		expectedError error
	}{
		{
			name:     "Should create room and seed waiting state",
			maxSkips: 5,
			setupMocks: func(r *resources) {
				r.roomRepo.On("Create", r.ctx, mock.AnythingOfType("model.Room")).
					Return(nil).Once()
				r.stateRepo.On("Upsert", r.ctx, mock.MatchedBy(func(s model.GameState) bool {
					return s.Phase == model.PhaseWaiting
				})).Return(nil).Once()
			},
			expectError: false,
		},
		{
			name:     "Should retry on key conflict",
			maxSkips: 3,
			setupMocks: func(r *resources) {
				r.roomRepo.On("Create", r.ctx, mock.AnythingOfType("model.Room")).
					Return(ErrKeyConflict).Twice()
				r.roomRepo.On("Create", r.ctx, mock.AnythingOfType("model.Room")).
					Return(nil).Once()
				r.stateRepo.On("Upsert", r.ctx, mock.AnythingOfType("model.GameState")).
					Return(nil).Once()
			},
			expectError: false,
		},
		{
			name:     "Should give up after exhausting key retries",
			maxSkips: 3,
			setupMocks: func(r *resources) {
				r.roomRepo.On("Create", r.ctx, mock.AnythingOfType("model.Room")).
					Return(ErrKeyConflict).Times(3)
			},
			expectError:   true,
			expectedError: ErrRoomsUnavailable,
		},
		{
			name:     "Should wrap storage failures",
			maxSkips: 3,
			setupMocks: func(r *resources) {
				r.roomRepo.On("Create", r.ctx, mock.AnythingOfType("model.Room")).
					Return(storageDown).Once()
			},
			expectError:   true,
			expectedError: model.ErrInternal,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			tc.setupMocks(r)

			room, err := r.usecase.Create(r.ctx, tc.maxSkips)

			if tc.expectError {
				assert.ErrorIs(t, err, tc.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Len(t, string(room.Key), 6)
				assert.Equal(t, tc.maxSkips, room.MaxSkips)
			}
			r.roomRepo.AssertExpectations(t)
		})
	}
}

func (suite *UsecaseRoomUnitSuite) TestCreateDefaultsSkips(t provider.T) {
	t.Parallel()
	r := initResources(t)

	r.roomRepo.On("Create", r.ctx, mock.MatchedBy(func(room model.Room) bool {
		return room.MaxSkips == model.DefaultMaxSkips
	})).Return(nil).Once()
	r.stateRepo.On("Upsert", r.ctx, mock.AnythingOfType("model.GameState")).
		Return(nil).Once()

	room, err := r.usecase.Create(r.ctx, 0)
	assert.NoError(t, err)
	assert.Equal(t, model.DefaultMaxSkips, room.MaxSkips)
}

func (suite *UsecaseRoomUnitSuite) TestJoinPrecheck(t provider.T) {
	t.Parallel()

	addr := "203.0.113.7"

	testCases := []struct {
		name          string
		setupMocks    func(r *resources)
		check         func(t provider.T, pre Precheck)
		expectError   bool
		expectedError error
	}{
		{
			name: "Should pass a clean address through",
			setupMocks: func(r *resources) {
				room := liveRoom()
				r.roomRepo.On("ByKey", r.ctx, room.Key).Return(room, nil).Once()
				r.banRepo.On("ByAddr", r.ctx, room.ID, addr).
					Return(model.BanRecord{}, false, nil).Once()
			},
			check: func(t provider.T, pre Precheck) {
				assert.False(t, pre.Banned)
				assert.False(t, pre.CanRequestRejoin)
			},
		},
		{
			name: "Should report unknown room",
			setupMocks: func(r *resources) {
				r.roomRepo.On("ByKey", r.ctx, model.RoomKey("123456")).
					Return(model.Room{}, model.ErrRoomNotFound).Once()
			},
			expectError:   true,
			expectedError: model.ErrRoomNotFound,
		},
		{
			name: "Should report room idle past its TTL",
			setupMocks: func(r *resources) {
				room := liveRoom()
				room.LastActivity = time.Now().Add(-model.RoomTTL - time.Minute)
				r.roomRepo.On("ByKey", r.ctx, room.Key).Return(room, nil).Once()
			},
			expectError:   true,
			expectedError: model.ErrRoomExpired,
		},
		{
			name: "Should bump rejoin attempts for a banned address",
			setupMocks: func(r *resources) {
				room := liveRoom()
				r.roomRepo.On("ByKey", r.ctx, room.Key).Return(room, nil).Once()
				r.banRepo.On("ByAddr", r.ctx, room.ID, addr).
					Return(model.BanRecord{RoomID: room.ID, Addr: addr, RejoinAttempts: 3}, true, nil).Once()
				r.banRepo.On("Update", r.ctx, mock.MatchedBy(func(b model.BanRecord) bool {
					return b.RejoinAttempts == 4 && !b.Permanent
				})).Return(nil).Once()
			},
			check: func(t provider.T, pre Precheck) {
				assert.True(t, pre.Banned)
				assert.True(t, pre.CanRequestRejoin)
			},
		},
		{
			name: "Should reject a permanently banned address",
			setupMocks: func(r *resources) {
				room := liveRoom()
				r.roomRepo.On("ByKey", r.ctx, room.Key).Return(room, nil).Once()
				r.banRepo.On("ByAddr", r.ctx, room.ID, addr).
					Return(model.BanRecord{RoomID: room.ID, Addr: addr, Permanent: true}, true, nil).Once()
			},
			expectError:   true,
			expectedError: model.ErrPermanentlyBanned,
		},
		{
			name: "Should turn the ban permanent at the attempt cap",
			setupMocks: func(r *resources) {
				room := liveRoom()
				r.roomRepo.On("ByKey", r.ctx, room.Key).Return(room, nil).Once()
				r.banRepo.On("ByAddr", r.ctx, room.ID, addr).
					Return(model.BanRecord{
						RoomID:         room.ID,
						Addr:           addr,
						RejoinAttempts: model.MaxRejoinAttempts - 1,
					}, true, nil).Once()
				r.banRepo.On("Update", r.ctx, mock.MatchedBy(func(b model.BanRecord) bool {
					return b.Permanent && b.RejoinAttempts == model.MaxRejoinAttempts
				})).Return(nil).Once()
			},
			expectError:   true,
			expectedError: model.ErrPermanentlyBanned,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			tc.setupMocks(r)

			pre, err := r.usecase.JoinPrecheck(r.ctx, "123456", addr)

			if tc.expectError {
				assert.ErrorIs(t, err, tc.expectedError)
			} else {
				assert.NoError(t, err)
				if tc.check != nil {
					tc.check(t, pre)
				}
			}
			r.roomRepo.AssertExpectations(t)
			r.banRepo.AssertExpectations(t)
		})
	}
}

func TestUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(UsecaseRoomUnitSuite))
}
