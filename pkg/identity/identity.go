// Package identity provides email normalization with SHA-256 hashing for
// account deduplication. Campus mail systems hand out several aliases for
// the same mailbox (e.g. mails.tsinghua.edu.cn vs mail.tsinghua.edu.cn),
// so semantically equivalent addresses must map to the same hash before a
// uniqueness check.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// aliasDomains maps known mailbox alias domains to their canonical form.
var aliasDomains = map[string]string{
	"mail.tsinghua.edu.cn": "mails.tsinghua.edu.cn",
	"googlemail.com":       "gmail.com",
}

// NormalizeEmail returns a canonical form of an email address.
//
// For all addresses:
//   - Lowercases the entire address
//   - Trims whitespace
//   - Folds known alias domains to their canonical domain
//
// For Gmail addresses additionally:
//   - Strips the "+suffix" from the local part (user+tag -> user)
//   - Removes all dots from the local part (u.s.e.r -> user)
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email // malformed, return as-is
	}

	local := email[:at]
	domain := email[at+1:]

	if canonical, ok := aliasDomains[domain]; ok {
		domain = canonical
	}

	if domain == "gmail.com" {
		if plus := strings.Index(local, "+"); plus >= 0 {
			local = local[:plus]
		}
		local = strings.ReplaceAll(local, ".", "")
	}

	return local + "@" + domain
}

// HashIdentifier returns the hex-encoded SHA-256 hash of the given string.
// Use this on already-normalized values from NormalizeEmail.
func HashIdentifier(normalized string) string {
	h := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(h[:])
}

// EmailHash normalizes the email and returns its SHA-256 hash.
func EmailHash(email string) string {
	return HashIdentifier(NormalizeEmail(email))
}
