package usage

import "time"

// UsageData represents the root structure stored in persistence.
type UsageData struct {
	Version   string          `json:"version"`
	Aggregate AggregatedStats `json:"aggregate"`
}

// CycleEvent is one finished extraction cycle.
type CycleEvent struct {
	Timestamp     time.Time     `json:"timestamp"`
	CycleID       string        `json:"cycle_id"`
	Succeeded     bool          `json:"succeeded"`
	ErrorKind     string        `json:"error_kind,omitempty"`
	Elapsed       time.Duration `json:"elapsed"`
	ServerSeconds *float64      `json:"server_seconds,omitempty"`
	Messages      int           `json:"messages"`
}

// Outcome is the aggregation key: "result" or the error kind.
func (e CycleEvent) Outcome() string {
	if e.Succeeded {
		return OutcomeResult
	}
	if e.ErrorKind == "" {
		return "UNKNOWN"
	}
	return e.ErrorKind
}

// OutcomeResult keys successful cycles.
const OutcomeResult = "RESULT"

// AggregatedStats holds counters broken down by various dimensions.
type AggregatedStats struct {
	Total     CycleCounts            `json:"total"`
	ByOutcome map[string]CycleCounts `json:"by_outcome"` // RESULT or an error kind
	ByDay     map[string]CycleCounts `json:"by_day"`     // YYYY-MM-DD, local time
}

// CycleCounts holds cycle sums.
type CycleCounts struct {
	Cycles        int64   `json:"cycles"`
	Succeeded     int64   `json:"succeeded"`
	Failed        int64   `json:"failed"`
	ElapsedMs     int64   `json:"elapsed_ms"`
	ServerSeconds float64 `json:"server_seconds,omitempty"`
	Messages      int64   `json:"messages"`
}

func (cc *CycleCounts) Add(e CycleEvent) {
	cc.Cycles++
	if e.Succeeded {
		cc.Succeeded++
	} else {
		cc.Failed++
	}
	cc.ElapsedMs += e.Elapsed.Milliseconds()
	if e.ServerSeconds != nil {
		cc.ServerSeconds += *e.ServerSeconds
	}
	cc.Messages += int64(e.Messages)
}

// AverageElapsed returns the mean cycle duration.
func (cc CycleCounts) AverageElapsed() time.Duration {
	if cc.Cycles == 0 {
		return 0
	}
	return time.Duration(cc.ElapsedMs/cc.Cycles) * time.Millisecond
}
