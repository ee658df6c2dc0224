package game

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"casino-core/config"
	"casino-core/internal/fairness"
)

const maxLimbo = 1_000_000

// ---- dice ----

// Dice wins when the roll lands on the chosen side of the target.
type Dice struct {
	Edge float64
}

type DiceParams struct {
	Target float64 `json:"target"`
	Over   bool    `json:"over"`
}

type DiceResult struct {
	Roll   float64 `json:"roll"`
	Target float64 `json:"target"`
	Over   bool    `json:"over"`
	Win    bool    `json:"win"`
}

func (d *Dice) Code() string { return CodeDice }

// Multiplier is (1-edge)/chance, where chance is the share of the 0..100
// range on the chosen side.
func (d *Dice) Multiplier(p DiceParams) (float64, error) {
	chance := p.Target / 100
	if p.Over {
		chance = (100 - p.Target) / 100
	}
	if chance < 0.01 || chance > 0.98 {
		return 0, paramErr(CodeDice, "win chance %.2f%% outside 1%%..98%%", chance*100)
	}
	return floor4((1 - d.Edge) / chance), nil
}

func (d *Dice) Resolve(s *fairness.Stream, raw json.RawMessage) (Outcome, error) {
	var p DiceParams
	if err := decodeParams(CodeDice, raw, &p); err != nil {
		return Outcome{}, err
	}
	mult, err := d.Multiplier(p)
	if err != nil {
		return Outcome{}, err
	}

	roll := s.DiceRoll()
	win := roll < p.Target
	if p.Over {
		win = roll > p.Target
	}
	res := DiceResult{Roll: roll, Target: p.Target, Over: p.Over, Win: win}
	if !win {
		return Outcome{Detail: res}, nil
	}
	return Outcome{Multiplier: mult, Detail: res}, nil
}

// ---- limbo ----

// Limbo draws a crash-style multiplier; the bet wins at its target when
// the draw reaches it.
type Limbo struct {
	Edge float64
	Max  float64
}

type LimboParams struct {
	Target float64 `json:"target"`
}

type LimboResult struct {
	Result float64 `json:"result"`
	Target float64 `json:"target"`
	Win    bool    `json:"win"`
}

func (l *Limbo) Code() string { return CodeLimbo }

func (l *Limbo) Resolve(s *fairness.Stream, raw json.RawMessage) (Outcome, error) {
	var p LimboParams
	if err := decodeParams(CodeLimbo, raw, &p); err != nil {
		return Outcome{}, err
	}
	if p.Target < 1.01 || p.Target > l.Max {
		return Outcome{}, paramErr(CodeLimbo, "target must be within 1.01..%v", l.Max)
	}
	target := floor2(p.Target)

	result := s.CrashPoint(l.Edge, 1, l.Max)
	res := LimboResult{Result: result, Target: target, Win: result >= target}
	if !res.Win {
		return Outcome{Detail: res}, nil
	}
	return Outcome{Multiplier: target, Detail: res}, nil
}

// ---- wheel ----

// Wheel spins a weighted segment table.
type Wheel struct {
	weights []float64
	mults   []float64
}

type WheelResult struct {
	Segment    int     `json:"segment"`
	Multiplier float64 `json:"multiplier"`
}

func NewWheel(segments []config.WheelSegmentConfig, edge, tolerance float64) (*Wheel, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("wheel: no segments")
	}
	w := &Wheel{}
	var total float64
	for i, seg := range segments {
		if seg.Weight < 0 || seg.Multiplier < 0 {
			return nil, fmt.Errorf("wheel: segment %d has a negative value", i)
		}
		w.weights = append(w.weights, seg.Weight)
		w.mults = append(w.mults, seg.Multiplier)
		total += seg.Weight
	}
	if total <= 0 {
		return nil, fmt.Errorf("wheel: weights sum to zero")
	}
	probs := make([]float64, len(w.weights))
	for i, wt := range w.weights {
		probs[i] = wt / total
	}
	if err := checkRTP("wheel", probs, w.mults, edge, tolerance); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Wheel) Code() string { return CodeWheel }

func (w *Wheel) Resolve(s *fairness.Stream, _ json.RawMessage) (Outcome, error) {
	i, err := s.Weighted(w.weights)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Multiplier: w.mults[i], Detail: WheelResult{Segment: i, Multiplier: w.mults[i]}}, nil
}

// ---- plinko ----

// Plinko drops a ball through n rows; each row sends it right with
// probability 1/2, so slot k is hit with probability C(n,k)/2^n.
type Plinko struct {
	tables map[int][]float64
}

type PlinkoParams struct {
	Rows int `json:"rows"`
}

type PlinkoResult struct {
	Rows       int     `json:"rows"`
	Path       []bool  `json:"path"` // true = right
	Slot       int     `json:"slot"`
	Multiplier float64 `json:"multiplier"`
}

func NewPlinko(tables map[string][]float64, edge, tolerance float64) (*Plinko, error) {
	byRows, err := atoiKeys("plinko", tables)
	if err != nil {
		return nil, err
	}
	if len(byRows) == 0 {
		return nil, fmt.Errorf("plinko: no tables")
	}
	for rows, mults := range byRows {
		if rows < 1 || len(mults) != rows+1 {
			return nil, fmt.Errorf("plinko: %d rows need %d slots, got %d", rows, rows+1, len(mults))
		}
		probs := make([]float64, rows+1)
		for k := range probs {
			probs[k] = binomial(rows, k) / math.Pow(2, float64(rows))
		}
		if err := checkRTP(fmt.Sprintf("plinko/%d", rows), probs, mults, edge, tolerance); err != nil {
			return nil, err
		}
	}
	return &Plinko{tables: byRows}, nil
}

func (p *Plinko) Code() string { return CodePlinko }

// Rows lists the configured row counts.
func (p *Plinko) Rows() []int {
	out := make([]int, 0, len(p.tables))
	for r := range p.tables {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

func (p *Plinko) Resolve(s *fairness.Stream, raw json.RawMessage) (Outcome, error) {
	var params PlinkoParams
	if err := decodeParams(CodePlinko, raw, &params); err != nil {
		return Outcome{}, err
	}
	if params.Rows == 0 {
		params.Rows = p.Rows()[0]
	}
	mults, ok := p.tables[params.Rows]
	if !ok {
		return Outcome{}, paramErr(CodePlinko, "no table for %d rows", params.Rows)
	}

	res := PlinkoResult{Rows: params.Rows, Path: make([]bool, params.Rows)}
	for i := range res.Path {
		if s.Float() >= 0.5 {
			res.Path[i] = true
			res.Slot++
		}
	}
	res.Multiplier = mults[res.Slot]
	return Outcome{Multiplier: res.Multiplier, Detail: res}, nil
}

// ---- keno ----

// Keno draws Drawn distinct numbers from 1..Space and pays by hits.
type Keno struct {
	Space  int
	Drawn  int
	tables map[int]map[int]float64 // picks -> hits -> multiplier
}

type KenoParams struct {
	Picks []int `json:"picks"`
}

type KenoResult struct {
	Picks      []int   `json:"picks"`
	Drawn      []int   `json:"drawn"`
	Hits       int     `json:"hits"`
	Multiplier float64 `json:"multiplier"`
}

func NewKeno(space, drawn int, tables map[string]config.KenoConfig, edge, tolerance float64) (*Keno, error) {
	if space < 1 || drawn < 1 || drawn > space {
		return nil, fmt.Errorf("keno: %d drawn of %d", drawn, space)
	}
	byPicks, err := atoiKeys("keno", tables)
	if err != nil {
		return nil, err
	}
	k := &Keno{Space: space, Drawn: drawn, tables: make(map[int]map[int]float64)}
	for picks, tbl := range byPicks {
		if picks < 1 || picks > drawn {
			return nil, fmt.Errorf("keno: %d picks out of range", picks)
		}
		hits, err := atoiKeys(fmt.Sprintf("keno/%d", picks), tbl.Payouts)
		if err != nil {
			return nil, err
		}
		probs := make([]float64, 0, len(hits))
		mults := make([]float64, 0, len(hits))
		for h, m := range hits {
			if h < 0 || h > picks || m < 0 {
				return nil, fmt.Errorf("keno/%d: bad entry %d -> %v", picks, h, m)
			}
			probs = append(probs, k.hitProbability(picks, h))
			mults = append(mults, m)
		}
		if err := checkRTP(fmt.Sprintf("keno/%d", picks), probs, mults, edge, tolerance); err != nil {
			return nil, err
		}
		k.tables[picks] = hits
	}
	return k, nil
}

// hitProbability is the hypergeometric P(hits | picks).
func (k *Keno) hitProbability(picks, hits int) float64 {
	return binomial(k.Drawn, hits) * binomial(k.Space-k.Drawn, picks-hits) / binomial(k.Space, picks)
}

func (k *Keno) Code() string { return CodeKeno }

func (k *Keno) Resolve(s *fairness.Stream, raw json.RawMessage) (Outcome, error) {
	var p KenoParams
	if err := decodeParams(CodeKeno, raw, &p); err != nil {
		return Outcome{}, err
	}
	table, ok := k.tables[len(p.Picks)]
	if !ok {
		return Outcome{}, paramErr(CodeKeno, "no table for %d picks", len(p.Picks))
	}
	chosen := make(map[int]bool, len(p.Picks))
	for _, n := range p.Picks {
		if n < 1 || n > k.Space {
			return Outcome{}, paramErr(CodeKeno, "pick %d outside 1..%d", n, k.Space)
		}
		if chosen[n] {
			return Outcome{}, paramErr(CodeKeno, "pick %d repeated", n)
		}
		chosen[n] = true
	}

	draw, err := s.Distinct(k.Drawn, k.Space)
	if err != nil {
		return Outcome{}, err
	}
	res := KenoResult{Picks: p.Picks, Drawn: make([]int, len(draw))}
	for i, v := range draw {
		res.Drawn[i] = v + 1
		if chosen[v+1] {
			res.Hits++
		}
	}
	res.Multiplier = table[res.Hits]
	return Outcome{Multiplier: res.Multiplier, Detail: res}, nil
}
