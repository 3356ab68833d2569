package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

var idCounter uint64

// GenerateID generates a unique timestamp-plus-counter ID.
func GenerateID() string {
	count := atomic.AddUint64(&idCounter, 1)
	return fmt.Sprintf("%x-%x", time.Now().UnixNano(), count)
}

// GenerateRunID generates a sweep run ID with a timestamp prefix.
func GenerateRunID() string {
	timestamp := time.Now().Format("20060102-150405")
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		count := atomic.AddUint64(&idCounter, 1)
		return fmt.Sprintf("sweep-%s-%x", timestamp, count)
	}
	return fmt.Sprintf("sweep-%s-%s", timestamp, hex.EncodeToString(b))
}
