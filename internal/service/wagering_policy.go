package service

import (
	"context"
	"fmt"

	"casino-core/internal/core/ports"
	"casino-core/pkg/apperror"

	"github.com/shopspring/decimal"
)

// WageringPolicy decides how much of a stake counts toward bonus wagering:
// stake × game weight × VIP multiplier, rounded down.
type WageringPolicy struct {
	weights       map[string]float64
	defaultWeight float64
	vip           map[int]float64
	directory     ports.UserDirectory
}

// NewWageringPolicy creates a WageringPolicy. Games without a weight use
// defaultWeight; VIP levels without a multiplier count at 1.
func NewWageringPolicy(weights map[string]float64, defaultWeight float64, vip map[int]float64, directory ports.UserDirectory) *WageringPolicy {
	return &WageringPolicy{weights: weights, defaultWeight: defaultWeight, vip: vip, directory: directory}
}

// Contribution returns the eligible wagering of one completed stake.
func (p *WageringPolicy) Contribution(ctx context.Context, userID int64, gameCode string, stake int64) (int64, error) {
	if stake <= 0 {
		return 0, nil
	}
	weight, ok := p.weights[gameCode]
	if !ok {
		weight = p.defaultWeight
	}
	if weight <= 0 {
		return 0, nil
	}

	mult := 1.0
	if p.directory != nil {
		player, err := p.directory.GetPlayer(ctx, userID)
		if err != nil {
			return 0, apperror.InternalError(fmt.Errorf("get player: %w", err))
		}
		if player != nil {
			if m, ok := p.vip[player.VIPLevel]; ok {
				mult = m
			}
		}
	}

	return decimal.NewFromInt(stake).
		Mul(decimal.NewFromFloat(weight)).
		Mul(decimal.NewFromFloat(mult)).
		Floor().
		IntPart(), nil
}
