// Package gate implements the one-time-link console login. An anonymous
// visit to the gate mints a short-lived hash bound to the caller's IP; only
// a request presenting a live hash from the same IP, with attempts left,
// ever sees the credential form.
package gate

import (
	"crypto/md5"
	"encoding/hex"
)

// Access log event types.
const (
	EventHashGenerated     = "hash_generated"
	EventRateLimitExceeded = "rate_limit_exceeded"
	EventInvalidHash       = "invalid_hash"
	EventAttemptsExceeded  = "attempts_exceeded"
	EventLoginAttempt      = "login_attempt"
	EventLoginSuccess      = "login_success"
	EventLoginFailed       = "login_failed"
)

// Nonce action for the credential form.
const nonceAction = "console_login"

// hashLength is the number of hex characters kept from the link HMAC.
const hashLength = 32

// LinkRecord is the transient stored per issued hash.
type LinkRecord struct {
	Attempts int    `json:"attempts"`
	IP       string `json:"ip"`
}

// Transient keys.
func linkKey(hash string) string {
	return "login_hash_" + hash
}

func issuanceKey(ip string) string {
	sum := md5.Sum([]byte(ip))
	return "ip_attempts_" + hex.EncodeToString(sum[:])
}

func failedLoginKey(ip string) string {
	return "failed_login_" + ip
}
