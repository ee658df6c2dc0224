package domain

import "time"

// CrashRound is one round of the shared crash game. ServerSeed is only
// populated once the round has crashed.
type CrashRound struct {
	Number     int64      `json:"round"`
	SeedHash   string     `json:"server_seed_hash"`
	ServerSeed string     `json:"server_seed,omitempty"`
	ClientSeed string     `json:"client_seed"`
	BurstPoint float64    `json:"burst_point,omitempty"`
	Phase      CrashPhase `json:"phase"`
	Multiplier float64    `json:"multiplier"`
	StartedAt  time.Time  `json:"started_at"`
	CrashedAt  *time.Time `json:"crashed_at,omitempty"`
}

type CrashPhase string

const (
	CrashPhaseBetting CrashPhase = "BETTING"
	CrashPhaseRunning CrashPhase = "RUNNING"
	CrashPhaseCrashed CrashPhase = "CRASHED"
)
