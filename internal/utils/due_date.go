package utils

import (
	"strings"
	"time"

	"github.com/yukikurage/task-tracker/internal/constants"
)

// ParseDueDate parses a YYYY-MM-DD date as midnight UTC
func ParseDueDate(value string) (time.Time, error) {
	return time.ParseInLocation(constants.DueDateLayout, strings.TrimSpace(value), time.UTC)
}
