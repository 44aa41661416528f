package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidToken is returned when a continuation token cannot be decoded.
var ErrInvalidToken = errors.New("invalid continuation token")

// Encode wraps a store cursor into an opaque continuation token.
// A nil cursor yields an empty token, meaning "no more pages".
func Encode(cursor any) (string, error) {
	if cursor == nil {
		return "", nil
	}
	raw, err := json.Marshal(cursor)
	if err != nil {
		return "", fmt.Errorf("pagination.Encode: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// Decode unwraps a continuation token into cursor. It reports false for an
// empty token (first page).
func Decode(token string, cursor any) (bool, error) {
	if token == "" {
		return false, nil
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := json.Unmarshal(raw, cursor); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return true, nil
}
