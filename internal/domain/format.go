package domain

import (
	"fmt"
	"sort"
	"time"
)

// FormatLatency renders sub-second values as whole milliseconds and the rest as seconds.
func FormatLatency(ms float64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", int(ms))
	}
	return fmt.Sprintf("%.1fs", ms/1000)
}

// FormatDuration shows the two largest units below days and hours,
// minutes alone below an hour, and seconds below a minute.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case days > 0:
		if hours > 0 {
			return fmt.Sprintf("%dd %dh", days, hours)
		}
		return fmt.Sprintf("%dd", days)
	case hours > 0:
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// FormatPercent renders a 0..1 ratio with one decimal.
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// LatencyPoint is one sample of a latency chart.
type LatencyPoint struct {
	Timestamp time.Time
	LatencyMs float64
}

// LatencySeries returns up to n latest latency samples ordered oldest first.
// Probes without a latency are skipped.
func LatencySeries(results []ProbeResult, n int) []LatencyPoint {
	if n <= 0 {
		return nil
	}
	sorted := make([]ProbeResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Timestamp.After(sorted[b].Timestamp)
	})

	points := make([]LatencyPoint, 0, n)
	for _, r := range sorted {
		if len(points) == n {
			break
		}
		if r.LatencyMs == nil {
			continue
		}
		points = append(points, LatencyPoint{Timestamp: r.Timestamp, LatencyMs: *r.LatencyMs})
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points
}

// ErrorRatePoint is the share of non-successful probes in one bucket.
type ErrorRatePoint struct {
	BucketStart time.Time
	Total       int
	ErrorRate   float64
}

// ErrorRateSeries groups results into fixed buckets, oldest first. Empty buckets are omitted.
func ErrorRateSeries(results []ProbeResult, bucket time.Duration) []ErrorRatePoint {
	if bucket <= 0 || len(results) == 0 {
		return nil
	}
	type acc struct{ total, failed int }
	buckets := make(map[int64]*acc)
	for _, r := range results {
		key := r.Timestamp.Truncate(bucket).Unix()
		a, ok := buckets[key]
		if !ok {
			a = &acc{}
			buckets[key] = a
		}
		a.total++
		if !r.IsSuccess() {
			a.failed++
		}
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a] < keys[b] })

	points := make([]ErrorRatePoint, 0, len(keys))
	for _, k := range keys {
		a := buckets[k]
		points = append(points, ErrorRatePoint{
			BucketStart: time.Unix(k, 0).UTC(),
			Total:       a.total,
			ErrorRate:   float64(a.failed) / float64(a.total),
		})
	}
	return points
}
