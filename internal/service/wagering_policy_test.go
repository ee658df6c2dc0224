package service

import (
	"context"
	"errors"
	"testing"

	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestWageringPolicy_Contribution(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := mocks.NewMockUserDirectory(ctrl)
	p := NewWageringPolicy(
		map[string]float64{"dice": 0.5, "keno": 0},
		1.0,
		map[int]float64{0: 1.0, 3: 1.25},
		dir,
	)
	ctx := context.Background()

	dir.EXPECT().GetPlayer(ctx, int64(1)).Return(&domain.Player{ID: 1, Active: true}, nil).AnyTimes()
	dir.EXPECT().GetPlayer(ctx, int64(2)).Return(&domain.Player{ID: 2, Active: true, VIPLevel: 3}, nil).AnyTimes()

	tests := []struct {
		name  string
		user  int64
		game  string
		stake int64
		want  int64
	}{
		{"weighted game", 1, "dice", 1001, 500},
		{"default weight", 1, "mines", 1000, 1000},
		{"excluded game", 1, "keno", 1000, 0},
		{"vip multiplier", 2, "dice", 1000, 625},
		{"vip default game", 2, "slots:abc", 999, 1248},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Contribution(ctx, tt.user, tt.game, tt.stake)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWageringPolicy_NoStakeNoLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p := NewWageringPolicy(nil, 1, nil, mocks.NewMockUserDirectory(ctrl))
	got, err := p.Contribution(context.Background(), 1, "dice", 0)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestWageringPolicy_DirectoryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := mocks.NewMockUserDirectory(ctrl)
	dir.EXPECT().GetPlayer(gomock.Any(), int64(1)).Return(nil, errors.New("timeout"))

	p := NewWageringPolicy(nil, 1, nil, dir)
	_, err := p.Contribution(context.Background(), 1, "dice", 100)
	assert.Error(t, err)
}
