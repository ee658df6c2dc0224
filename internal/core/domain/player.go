package domain

// Player is the slice of a user account the core reads from user management.
type Player struct {
	ID       int64 `json:"id"`
	Active   bool  `json:"active"`
	VIPLevel int   `json:"vip_level"`
}
