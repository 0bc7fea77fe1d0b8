package server

import (
	"github.com/apexcompute/apex-compute/internal/laps"
)

// SessionRequest identifies one on-track session. The gp value is a grand
// prix name or round number as a string ("Bahrain" or "1"); interpretation
// is delegated to the provider.
type SessionRequest struct {
	Year    int    `json:"year" binding:"required,gte=1950,lte=2100"`
	GP      string `json:"gp" binding:"required"`
	Session string `json:"session" binding:"required,oneof=FP1 FP2 FP3 Q SQ R"`
}

// SessionMetadata is the response body for /session/info. SessionName is
// null when the provider exposes no display name; driver order is the
// provider's order.
type SessionMetadata struct {
	Year        int      `json:"year"`
	GP          string   `json:"gp"`
	Session     string   `json:"session"`
	SessionName *string  `json:"session_name"`
	Drivers     []string `json:"drivers"`
}

// LapsResponse is the response body for /session/laps. Count always equals
// the length of Data.
type LapsResponse struct {
	Count int           `json:"count"`
	Data  []laps.Record `json:"data"`
}

// ErrorResponse is the error payload for validation and upstream failures.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
