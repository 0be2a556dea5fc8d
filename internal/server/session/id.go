package session

import (
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
)

const idSize = 32 // 256 bits

// GenerateID generates a cryptographically secure, URL-safe session ID.
func GenerateID() (string, error) {
	id, err := common.MakeRandURLString(idSize)
	if err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return id, nil
}
