package sqlitepg

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is one row of the copied table.
type Record struct {
	ID        int64
	Username  string
	Content   string
	Image     *string
	CreatedAt time.Time
}

// textTimestampFormats are tried in order for createdAt values stored as text.
var textTimestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// NormalizeTimestamp converts a createdAt value as returned by the SQLite
// driver into a UTC time. Integers, floats and all-digit strings are
// milliseconds since the Unix epoch.
func NormalizeTimestamp(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val.UTC(), nil
	case int64:
		return time.UnixMilli(val).UTC(), nil
	case float64:
		return time.UnixMilli(int64(val)).UTC(), nil
	case []byte:
		return parseTextTimestamp(string(val))
	case string:
		return parseTextTimestamp(val)
	case nil:
		return time.Time{}, fmt.Errorf("createdAt is NULL: %w", ErrSourceRead)
	default:
		return time.Time{}, fmt.Errorf("unsupported createdAt type %T: %w", v, ErrSourceRead)
	}
}

func parseTextTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("createdAt is empty: %w", ErrSourceRead)
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range textTimestampFormats {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised createdAt value %q: %w", s, ErrSourceRead)
}
