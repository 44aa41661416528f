package authjwt

import (
	"time"

	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

// Claims identifies the caller of an operator request.
type Claims struct {
	// Subject is recorded as initiatedBy on background tasks.
	Subject   string
	EntityID  sharedtypes.EntityID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Provider defines the interface for JWT token operations.
type Provider interface {
	// GenerateToken signs a token for claims valid for ttl.
	GenerateToken(claims Claims, ttl time.Duration) (string, error)

	// ValidateToken validates a JWT token and returns the claims if valid.
	ValidateToken(tokenString string) (*Claims, error)
}
