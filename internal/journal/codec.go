package journal

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/haasonsaas/introspect/internal/analysis"
)

// timeLayout is fixed width so lexical order of stored timestamps matches
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// legacyLayouts cover timestamps written by older builds (naive local ISO
// strings) and by SQLite's CURRENT_TIMESTAMP.
var legacyLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	for _, layout := range legacyLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// dbTime scans a timestamp stored either as text or as a native time.
type dbTime struct {
	Time time.Time
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v
		return nil
	case string:
		parsed, err := parseTime(v)
		t.Time = parsed
		return err
	case []byte:
		parsed, err := parseTime(string(v))
		t.Time = parsed
		return err
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

var _ interface{ Scan(any) error } = (*dbTime)(nil)

// encodeAnalysis stores the result as JSON.
func encodeAnalysis(result *analysis.Result) (driver.Value, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	return string(data), nil
}

// decodeAnalysis is tolerant: documents that are not JSON (older builds
// stored a Python dict repr) or that lack an insight decode to nil.
func decodeAnalysis(raw []byte) *analysis.Result {
	if len(raw) == 0 {
		return nil
	}
	var result analysis.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	if result.Insight == "" {
		return nil
	}
	return &result
}

// Round1 rounds an average the way mood statistics are reported.
func round1(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 1, 64), 64)
	if err != nil {
		return x
	}
	return v
}
