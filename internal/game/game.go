// Package game holds the outcome rules of the internal games. Rules are
// pure: they read a fairness stream and parameters and return a multiplier.
// Money never moves here.
package game

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"casino-core/config"
	"casino-core/internal/fairness"

	"github.com/shopspring/decimal"
)

// Game codes.
const (
	CodeDice   = "dice"
	CodeLimbo  = "limbo"
	CodeWheel  = "wheel"
	CodePlinko = "plinko"
	CodeKeno   = "keno"
	CodeMines  = "mines"
	CodeHiLo   = "hilo"
	CodeCrash  = "crash"
)

// Outcome is a resolved instant round.
type Outcome struct {
	Multiplier float64
	Detail     any // marshalled into Bet.Outcome
}

// Instant resolves a bet in one draw.
type Instant interface {
	Code() string
	Resolve(s *fairness.Stream, params json.RawMessage) (Outcome, error)
}

// ParamError reports invalid bet parameters.
type ParamError struct {
	Game   string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s", e.Game, e.Reason)
}

func paramErr(game, format string, args ...any) error {
	return &ParamError{Game: game, Reason: fmt.Sprintf(format, args...)}
}

// Limits bounds the stake of one game.
type Limits struct {
	Min int64
	Max int64
}

// Registry is the validated set of games.
type Registry struct {
	instant   map[string]Instant
	mines     *Mines
	hilo      *HiLo
	limits    map[string]Limits
	maxPayout int64
}

// NewRegistry builds every game from configuration and rejects any table
// whose return to player misses 1-edge by more than the tolerance.
func NewRegistry(cfg config.GamesConfig) (*Registry, error) {
	edge := cfg.HouseEdge
	if edge < 0 || edge >= 1 {
		return nil, fmt.Errorf("house edge %v out of range", edge)
	}

	wheel, err := NewWheel(cfg.Wheel, edge, cfg.Tolerance)
	if err != nil {
		return nil, err
	}
	plinko, err := NewPlinko(cfg.Plinko, edge, cfg.Tolerance)
	if err != nil {
		return nil, err
	}
	keno, err := NewKeno(cfg.KenoSpace, cfg.KenoDrawn, cfg.Keno, edge, cfg.Tolerance)
	if err != nil {
		return nil, err
	}
	mines, err := NewMines(cfg.MinesBoard, edge)
	if err != nil {
		return nil, err
	}
	hilo, err := NewHiLo(cfg.HiLoDeck, edge)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		instant:   make(map[string]Instant),
		mines:     mines,
		hilo:      hilo,
		limits:    make(map[string]Limits),
		maxPayout: cfg.MaxPayout,
	}
	for _, g := range []Instant{&Dice{Edge: edge}, &Limbo{Edge: edge, Max: maxLimbo}, wheel, plinko, keno} {
		r.instant[g.Code()] = g
	}
	for code, l := range cfg.Limits {
		if l.Min < 0 || (l.Max > 0 && l.Max < l.Min) {
			return nil, fmt.Errorf("limits for %s: min %d max %d", code, l.Min, l.Max)
		}
		r.limits[code] = Limits{Min: l.Min, Max: l.Max}
	}
	return r, nil
}

// Instant returns an instant game by code.
func (r *Registry) Instant(code string) (Instant, bool) {
	g, ok := r.instant[code]
	return g, ok
}

func (r *Registry) Mines() *Mines { return r.mines }
func (r *Registry) HiLo() *HiLo   { return r.hilo }

// Known reports whether code names a game the bet service runs.
func (r *Registry) Known(code string) bool {
	_, ok := r.instant[code]
	return ok || code == CodeMines || code == CodeHiLo
}

// Codes lists every game, sorted.
func (r *Registry) Codes() []string {
	out := []string{CodeMines, CodeHiLo}
	for c := range r.instant {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// CheckStake validates an amount against the configured limits.
func (r *Registry) CheckStake(code string, amount int64) error {
	if amount <= 0 {
		return paramErr(code, "amount must be positive")
	}
	l, ok := r.limits[code]
	if !ok {
		return nil
	}
	if amount < l.Min {
		return paramErr(code, "amount below minimum %d", l.Min)
	}
	if l.Max > 0 && amount > l.Max {
		return paramErr(code, "amount above maximum %d", l.Max)
	}
	return nil
}

// Payout converts a stake and multiplier into minor units, rounding down
// and applying the payout cap.
func (r *Registry) Payout(amount int64, multiplier float64) int64 {
	p := Payout(amount, multiplier)
	if r.maxPayout > 0 && p > r.maxPayout {
		return r.maxPayout
	}
	return p
}

// Payout is floor(amount × multiplier) in exact decimal arithmetic.
func Payout(amount int64, multiplier float64) int64 {
	if multiplier <= 0 || amount <= 0 {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(decimal.NewFromFloat(multiplier)).Floor().IntPart()
}

// floor2 truncates to two decimals, the precision players see.
func floor2(x float64) float64 {
	return math.Floor(x*100+1e-9) / 100
}

func floor4(x float64) float64 {
	return math.Floor(x*10000+1e-9) / 10000
}

// checkRTP compares Σ p·m with 1-edge.
func checkRTP(name string, probs, mults []float64, edge, tolerance float64) error {
	var rtp float64
	for i := range probs {
		rtp += probs[i] * mults[i]
	}
	if math.Abs(rtp-(1-edge)) > tolerance {
		return fmt.Errorf("%s: return to player %.6f, want %.6f ± %g", name, rtp, 1-edge, tolerance)
	}
	return nil
}

// binomial returns C(n, k) as a float.
func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	r := 1.0
	for i := 1; i <= k; i++ {
		r = r * float64(n-k+i) / float64(i)
	}
	return r
}

// atoiKeys converts a string-keyed config map, as viper produces, into
// an int-keyed one.
func atoiKeys[V any](name string, in map[string]V) (map[int]V, error) {
	out := make(map[int]V, len(in))
	for k, v := range in {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("%s: key %q is not a number", name, k)
		}
		out[n] = v
	}
	return out, nil
}

func decodeParams(game string, raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return paramErr(game, "malformed params: %v", err)
	}
	return nil
}
