package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHMACSignatureService_SignAndVerify(t *testing.T) {
	svc := NewHMACSignatureService()
	secretKey := "bo-secret"
	payload := svc.BuildCanonicalString("POST", "/api/v1/cashier/deposits", 1708092000, "n-1", `{"user_id":7,"amount":5000}`)

	signature := svc.Sign(secretKey, payload)

	assert.Regexp(t, `^[0-9a-f]{64}$`, signature)
	assert.True(t, svc.Verify(secretKey, payload, signature))
	assert.True(t, svc.Verify(secretKey, payload, strings.ToUpper(signature)))
}

func TestHMACSignatureService_VerifyFails(t *testing.T) {
	svc := NewHMACSignatureService()

	sig := svc.Sign("correct-key", "payload")
	assert.False(t, svc.Verify("wrong-key", "payload", sig))
	assert.False(t, svc.Verify("correct-key", "tampered", sig))
	assert.False(t, svc.Verify("correct-key", "payload", "invalidsignature"))
}

func TestHMACSignatureService_BuildCanonicalString(t *testing.T) {
	svc := NewHMACSignatureService()

	result := svc.BuildCanonicalString("post", "/api/v1/cashier/deposits", 1708092000, "abc123", "")

	// sha256 of the empty body
	expected := "POST\n/api/v1/cashier/deposits\n1708092000\nabc123\n" +
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	assert.Equal(t, expected, result)
}

func TestHMACSignatureService_BodyChangesCanonicalString(t *testing.T) {
	svc := NewHMACSignatureService()

	a := svc.BuildCanonicalString("POST", "/x", 1, "n", `{"amount":1}`)
	b := svc.BuildCanonicalString("POST", "/x", 1, "n", `{"amount":2}`)
	assert.NotEqual(t, a, b)
}
