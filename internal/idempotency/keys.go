package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// KeyPrefix namespaces every record in redis.
const KeyPrefix = "idempotency:"

// GenerateKey derives "<namespace>:<sha256>" from parts. Each part is length-prefixed,
// so ("ab", "c") and ("a", "bc") never collide.
func GenerateKey(namespace string, parts ...any) string {
	h := sha256.New()
	for _, part := range parts {
		s := fmt.Sprint(part)
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{'|'})
		h.Write([]byte(s))
	}
	return namespace + ":" + hex.EncodeToString(h.Sum(nil))
}

// DecisionKey identifies one decision on one proposal message. The decision itself is left
// out, so whichever of accept or decline lands first is the one that sticks.
func DecisionKey(senderID int64, actionName, messageHandle string, receiverID int64) string {
	return GenerateKey("iact", senderID, actionName, messageHandle, receiverID)
}

func recordKey(key string) string {
	return KeyPrefix + key
}
