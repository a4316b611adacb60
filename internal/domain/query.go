package domain

// RequestFilter selects request logs. Zero-valued fields match everything;
// set fields are AND-ed.
type RequestFilter struct {
	Service     string
	Endpoint    string
	TestPattern string
	Status      *int
	ErrorsOnly  bool
	Keyword     string
}

// IsZero reports whether the filter selects everything.
func (f RequestFilter) IsZero() bool {
	return f.Service == "" && f.Endpoint == "" && f.TestPattern == "" &&
		f.Status == nil && !f.ErrorsOnly && f.Keyword == ""
}

// TestSummary aggregates request logs sharing a test context.
type TestSummary struct {
	TestContext     string   `json:"test_context"`
	Requests        int      `json:"requests"`
	Errors          int      `json:"errors"`
	TotalDurationMs float64  `json:"total_duration_ms"`
	AvgDurationMs   float64  `json:"avg_duration_ms"`
	Services        []string `json:"services"`
}
