package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateRequestID generates a unique request ID for tracking.
func GenerateRequestID() string {
	return uuid.New().String()
}

// GenerateJobID generates a unique job ID.
func GenerateJobID() string {
	return uuid.New().String()
}

// FormatDuration formats a duration to a human-readable string.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
