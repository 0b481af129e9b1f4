package shortener

import (
	"regexp"
	"time"
)

const (
	MinCodeLength = 6
	MaxCodeLength = 8
)

var (
	codePattern      = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)
	targetURLPattern = regexp.MustCompile(`(?i)^https?://`)
)

// Link maps a short code to its target URL along with click statistics.
type Link struct {
	Code        string
	TargetURL   string
	TotalClicks int64
	LastClicked *time.Time
	CreatedAt   time.Time
}

// ValidCode reports whether code has the short code format.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}
