package lacework

import (
	"time"

	"github.com/Checker-Finance/lacework-go-sdk/pkg/api"
)

// TimeLayout is the timestamp format accepted in time windows and filters.
const TimeLayout = "2006-01-02T15:04:05Z"

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// TimeFilter bounds a search to a time window.
type TimeFilter struct {
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
}

// Window builds a TimeFilter from two instants.
func Window(start, end time.Time) *TimeFilter {
	return &TimeFilter{StartTime: FormatTime(start), EndTime: FormatTime(end)}
}

// Filter is one field predicate. Expression is one of eq, ne, in, not_in,
// like, ilike, not_like, not_ilike, rlike, not_rlike, gt, ge, lt, le, between.
type Filter struct {
	Field      string   `json:"field"`
	Expression string   `json:"expression"`
	Value      string   `json:"value,omitempty"`
	Values     []string `json:"values,omitempty"`
}

// SearchFilter is the body of every /search endpoint.
type SearchFilter struct {
	TimeFilter *TimeFilter `json:"timeFilter,omitempty"`
	Filters    []Filter    `json:"filters,omitempty"`
	Returns    []string    `json:"returns,omitempty"`
}

// body returns the value to encode. A nil filter searches everything.
func (f *SearchFilter) body() any {
	if f == nil {
		return map[string]any{}
	}
	return f
}

// withJSON appends a JSON body option without touching the caller's slice.
func withJSON(opts []api.RequestOption, body any) []api.RequestOption {
	out := make([]api.RequestOption, 0, len(opts)+1)
	out = append(out, opts...)
	return append(out, api.WithJSON(body))
}
