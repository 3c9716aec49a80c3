package httpx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerifyWebhookSignature checks the processor's x-signature header
// ("ts=<unix>,v1=<hmac>") against the HMAC-SHA256 of the signed manifest
//
//	id:<data.id>;request-id:<x-request-id>;ts:<ts>;
//
// keyed with the webhook secret. Returns false for any malformed header.
func VerifyWebhookSignature(secret, header, requestID, dataID string) bool {
	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			v1 = value
		}
	}
	if ts == "" || v1 == "" {
		return false
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(v1))
}
