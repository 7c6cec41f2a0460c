package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	ghprovider "reviewhooks/pkg/providers/github"
)

// VerifySignature reports whether header, of the form "sha256=<hex>", is the
// HMAC-SHA256 of body keyed by secret. Malformed input yields false.
func VerifySignature(secret string, body []byte, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	algo, digest, ok := strings.Cut(strings.TrimSpace(header), "=")
	if !ok || algo != "sha256" {
		return false
	}
	provided, err := hex.DecodeString(digest)
	if err != nil || len(provided) != sha256.Size {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}

// GitHubSignature returns a Verifier that checks X-Hub-Signature-256.
func GitHubSignature(secret string) Verifier {
	return Verifier{
		Check: func(header http.Header, body []byte) bool {
			return VerifySignature(secret, body, header.Get(ghprovider.SignatureHeader))
		},
		Rejection: "Invalid GitHub signature",
	}
}
