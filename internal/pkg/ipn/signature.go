package ipn

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net"
	"strings"
)

// VerifyHMACSignature checks a hex-encoded HMAC-SHA256 signature header
// against the raw request body.
func VerifyHMACSignature(payload []byte, signatureHeader, secret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	sec := strings.TrimSpace(secret)
	if sig == "" || sec == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(sec))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}

// VerifySharedSecret compares a token header with the integration secret in
// constant time.
func VerifySharedSecret(tokenHeader, secret string) bool {
	token := strings.TrimSpace(tokenHeader)
	sec := strings.TrimSpace(secret)
	if token == "" || sec == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(sec)) == 1
}

// IPAllowed checks a remote address against a comma-separated list of CIDR
// ranges or single addresses.
func IPAllowed(remoteIP, allowedList string) bool {
	ip := net.ParseIP(strings.TrimSpace(remoteIP))
	if ip == nil {
		return false
	}

	for _, entry := range strings.Split(allowedList, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, cidr, err := net.ParseCIDR(entry)
			if err != nil {
				continue
			}
			if cidr.Contains(ip) {
				return true
			}
			continue
		}
		if allowed := net.ParseIP(entry); allowed != nil && allowed.Equal(ip) {
			return true
		}
	}
	return false
}
