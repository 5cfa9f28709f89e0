package wire

import (
	"encoding/json"
	"strings"
	"time"
)

// Each decoder below returns the value and whether a fallback replaced bad input.

// DecodeHeaders parses a JSON object column. Absent yields nil; malformed yields an empty map.
func DecodeHeaders(raw *string) (map[string]string, bool) {
	if raw == nil {
		return nil, false
	}
	var headers map[string]string
	if err := json.Unmarshal([]byte(*raw), &headers); err != nil || headers == nil {
		return map[string]string{}, true
	}
	return headers, false
}

// DecodeStatusCodes parses a JSON int array column. Malformed or empty input yields [200].
func DecodeStatusCodes(raw string) ([]int, bool) {
	var codes []int
	if err := json.Unmarshal([]byte(raw), &codes); err != nil || len(codes) == 0 {
		return []int{200}, true
	}
	return codes, false
}

// DecodeRegions parses a JSON string array column. Absent or malformed yields an empty list.
func DecodeRegions(raw *string) ([]string, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return []string{}, false
	}
	var regions []string
	if err := json.Unmarshal([]byte(*raw), &regions); err != nil {
		return []string{}, true
	}
	if regions == nil {
		regions = []string{}
	}
	return regions, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DecodeTime parses an ISO-8601 timestamp, substituting now when it cannot.
func DecodeTime(raw string, now func() time.Time) (time.Time, bool) {
	if t, ok := parseTime(raw); ok {
		return t, false
	}
	return now(), true
}

// DecodeOptionalTime yields nil for absent or unparsable input.
func DecodeOptionalTime(raw *string) (*time.Time, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, false
	}
	t, ok := parseTime(*raw)
	if !ok {
		return nil, true
	}
	return &t, false
}

// FormatTime renders t the way the backend stores timestamps.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
