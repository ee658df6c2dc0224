package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeStruct_TrimsAndEscapes(t *testing.T) {
	req := AmountRequest{Reference: "dep-1", Amount: 100, Reason: "  manual <script>alert('x')</script> adjustment  "}
	SanitizeStruct(&req)

	assert.Contains(t, req.Reason, "&lt;script&gt;")
	assert.NotContains(t, req.Reason, "<script>")
	assert.False(t, req.Reason[0] == ' ')
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	type withPtr struct {
		Note *string
		Skip *string
	}
	note := "  vip  "
	v := withPtr{Note: &note}
	SanitizeStruct(&v)

	assert.Equal(t, "vip", *v.Note)
	assert.Nil(t, v.Skip)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

func TestSafeID_Valid(t *testing.T) {
	for _, tc := range []string{"dice", "mines", "seed_01", "a.b.c", "ABC-def_GHI.123"} {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	for _, tc := range []string{"di ce", "seed<1>", "x;DROP", "", "line\nbreak"} {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestBindingRules(t *testing.T) {
	one := 1
	yes := true
	tests := []struct {
		name  string
		req   any
		valid bool
	}{
		{"bet ok", &PlaceBetRequest{Game: "dice", Amount: 100}, true},
		{"bet zero amount", &PlaceBetRequest{Game: "dice"}, false},
		{"bet unsafe game", &PlaceBetRequest{Game: "di ce", Amount: 1}, false},
		{"reveal ok", &RevealRequest{Tile: &one}, true},
		{"reveal missing tile", &RevealRequest{}, false},
		{"guess ok", &GuessRequest{Higher: &yes}, true},
		{"crash manual", &CrashBetRequest{Amount: 5}, true},
		{"crash auto at 1", &CrashBetRequest{Amount: 5, AutoCashout: 1}, false},
		{"crash cashout bad id", &CrashCashOutRequest{BetID: "nope"}, false},
		{"rotate empty seed", &RotateSeedRequest{}, true},
		{"rotate unsafe seed", &RotateSeedRequest{ClientSeed: "a b"}, false},
		{"transfer to self", &TransferRequest{FromUserID: 1, ToUserID: 1, Amount: 5}, false},
		{"transfer ok", &TransferRequest{FromUserID: 1, ToUserID: 2, Amount: 5}, true},
		{"currency lower ok", &OpenWalletRequest{Currency: "usd"}, true},
		{"currency digits", &OpenWalletRequest{Currency: "123"}, false},
		{"deposit without reference", &AmountRequest{Amount: 5}, false},
		{"deposit ok", &AmountRequest{Reference: "dep-77", Amount: 5}, true},
		{"statement bad bucket", &StatementQuery{Bucket: "gold"}, false},
		{"statement page size cap", &StatementQuery{PageSize: 500}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(tt.req)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
