package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GetMessageDigestOrSignature returns the hex HMAC-SHA256 of the message,
// used to sign outbound webhook bodies (X-Hub-Signature-256).
func GetMessageDigestOrSignature(message, key []byte) (string, error) {
	mac := hmac.New(sha256.New, key)
	if _, err := mac.Write(message); err != nil {
		return "", fmt.Errorf("failed to write hmac: %w", err)
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}
