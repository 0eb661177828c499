package ipn

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyHMACSignature(t *testing.T) {
	body := []byte(`{"TransID":"RKTQDM7W6S","TransAmount":"500"}`)
	secret := "webhook-secret"
	sig := signBody(body, secret)

	assert.True(t, VerifyHMACSignature(body, sig, secret))
	assert.True(t, VerifyHMACSignature(body, strings.ToUpper(sig), secret), "hex case must not matter")
	assert.True(t, VerifyHMACSignature(body, "  "+sig+"  ", secret), "surrounding whitespace tolerated")

	assert.False(t, VerifyHMACSignature(body, sig, "other-secret"))
	assert.False(t, VerifyHMACSignature([]byte(`tampered`), sig, secret))
	assert.False(t, VerifyHMACSignature(body, "", secret))
	assert.False(t, VerifyHMACSignature(body, sig, ""))
	assert.False(t, VerifyHMACSignature(body, "not-hex!", secret))
}

func TestVerifySharedSecret(t *testing.T) {
	assert.True(t, VerifySharedSecret("token-1", "token-1"))
	assert.True(t, VerifySharedSecret(" token-1 ", "token-1"))

	assert.False(t, VerifySharedSecret("token-2", "token-1"))
	assert.False(t, VerifySharedSecret("", "token-1"))
	assert.False(t, VerifySharedSecret("token-1", ""))
	assert.False(t, VerifySharedSecret("", ""))
}

func TestIPAllowed(t *testing.T) {
	tests := []struct {
		name    string
		ip      string
		allowed string
		want    bool
	}{
		{"exact match", "196.201.214.200", "196.201.214.200", true},
		{"cidr match", "196.201.214.5", "196.201.214.0/24", true},
		{"cidr miss", "196.201.215.5", "196.201.214.0/24", false},
		{"list with spaces", "10.0.0.9", "196.201.214.0/24, 10.0.0.0/8", true},
		{"not in list", "172.16.0.1", "196.201.214.0/24,10.0.0.0/8", false},
		{"empty list", "10.0.0.9", "", false},
		{"garbage entries skipped", "10.0.0.9", "banana,10.0.0.0/8", true},
		{"unparseable remote", "not-an-ip", "10.0.0.0/8", false},
		{"ipv6 exact", "::1", "::1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IPAllowed(tt.ip, tt.allowed))
		})
	}
}
