package game

import (
	"encoding/json"
	"fmt"

	"casino-core/internal/core/domain"
	"casino-core/internal/fairness"
)

// ---- mines ----

// Mines hides Mines bombs on a board; every safe reveal raises the
// multiplier by the inverse of its survival odds.
type Mines struct {
	Board int
	Edge  float64
}

type MinesParams struct {
	Mines int `json:"mines"`
}

// RevealResult describes one opened tile.
type RevealResult struct {
	Tile       int     `json:"tile"`
	Mine       bool    `json:"mine"`
	Multiplier float64 `json:"multiplier"`
	Cleared    bool    `json:"cleared"` // every safe tile is open
}

func NewMines(board int, edge float64) (*Mines, error) {
	if board < 2 || board > 64 {
		return nil, fmt.Errorf("mines: board size %d out of range", board)
	}
	return &Mines{Board: board, Edge: edge}, nil
}

// Start places the mines. The layout stays server side until the round ends.
func (m *Mines) Start(s *fairness.Stream, raw json.RawMessage) ([]int, error) {
	var p MinesParams
	if err := decodeParams(CodeMines, raw, &p); err != nil {
		return nil, err
	}
	if p.Mines < 1 || p.Mines >= m.Board {
		return nil, paramErr(CodeMines, "mines must be within 1..%d", m.Board-1)
	}
	return s.Distinct(p.Mines, m.Board)
}

// Multiplier after safe reveals with the given number of mines:
// (1-edge) × Π (board-i)/(board-mines-i).
func (m *Mines) Multiplier(mines, safe int) float64 {
	if safe <= 0 {
		return 0
	}
	mult := 1 - m.Edge
	for i := 0; i < safe; i++ {
		mult *= float64(m.Board-i) / float64(m.Board-mines-i)
	}
	return floor4(mult)
}

// Reveal opens a tile and updates the round in place.
func (m *Mines) Reveal(r *domain.RoundState, tile int) (RevealResult, error) {
	if tile < 0 || tile >= m.Board {
		return RevealResult{}, paramErr(CodeMines, "tile %d outside 0..%d", tile, m.Board-1)
	}
	if r.HasRevealed(tile) {
		return RevealResult{}, paramErr(CodeMines, "tile %d already revealed", tile)
	}
	for _, mine := range r.Layout {
		if mine == tile {
			r.Multiplier = 0
			return RevealResult{Tile: tile, Mine: true}, nil
		}
	}

	r.Revealed = append(r.Revealed, tile)
	r.Step++
	r.Multiplier = m.Multiplier(len(r.Layout), len(r.Revealed))
	return RevealResult{
		Tile:       tile,
		Multiplier: r.Multiplier,
		Cleared:    len(r.Revealed) == m.Board-len(r.Layout),
	}, nil
}

// ---- hi-lo ----

const (
	ranks       = 13
	hiloMaxDraw = 52
)

// HiLo deals cards from an infinite deck; the player calls whether the next
// card ranks higher-or-equal or lower-or-equal than the face-up one.
type HiLo struct {
	Deck int
	Edge float64
}

// GuessResult describes one dealt card.
type GuessResult struct {
	Card       int     `json:"card"`
	Win        bool    `json:"win"`
	Multiplier float64 `json:"multiplier"`
	Exhausted  bool    `json:"exhausted"`
}

func NewHiLo(deck int, edge float64) (*HiLo, error) {
	if deck < ranks || deck%ranks != 0 {
		return nil, fmt.Errorf("hilo: deck of %d cards is not whole suits", deck)
	}
	return &HiLo{Deck: deck, Edge: edge}, nil
}

// Rank is 0 for an ace up to 12 for a king.
func Rank(card int) int { return card % ranks }

// Start deals the whole card sequence of the round. Only Layout[:Step+1]
// is ever shown to the player.
func (h *HiLo) Start(s *fairness.Stream) ([]int, error) {
	cards := make([]int, hiloMaxDraw)
	for i := range cards {
		c, err := s.Range(0, h.Deck-1)
		if err != nil {
			return nil, err
		}
		cards[i] = c
	}
	return cards, nil
}

// StepMultiplier pays (1-edge)/p for a guess that wins with probability p.
func (h *HiLo) StepMultiplier(card int, higher bool) (float64, error) {
	r := Rank(card)
	wins := r + 1
	if higher {
		wins = ranks - r
	}
	if wins == ranks {
		return 0, paramErr(CodeHiLo, "that guess cannot lose")
	}
	return floor4((1 - h.Edge) * ranks / float64(wins)), nil
}

// Guess deals the next card and updates the round in place.
func (h *HiLo) Guess(r *domain.RoundState, higher bool) (GuessResult, error) {
	if r.Step+1 >= len(r.Layout) {
		return GuessResult{}, paramErr(CodeHiLo, "no cards left")
	}
	current := r.Layout[r.Step]
	step, err := h.StepMultiplier(current, higher)
	if err != nil {
		return GuessResult{}, err
	}

	r.Step++
	next := r.Layout[r.Step]
	r.Revealed = append(r.Revealed, next)
	win := Rank(next) >= Rank(current)
	if !higher {
		win = Rank(next) <= Rank(current)
	}
	if !win {
		r.Multiplier = 0
		return GuessResult{Card: next}, nil
	}

	if r.Multiplier == 0 {
		r.Multiplier = 1
	}
	r.Multiplier = floor4(r.Multiplier * step)
	return GuessResult{
		Card:       next,
		Win:        true,
		Multiplier: r.Multiplier,
		Exhausted:  r.Step+1 >= len(r.Layout),
	}, nil
}
