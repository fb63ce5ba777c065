package alert

import "time"

// Rule is a stored alert threshold for one metric. Rules are configuration
// only: the pipeline stores and lists them, it never evaluates them.
//
// A rule may carry a lower bound, an upper bound, or both. Channel and
// target describe where a breach notification would be routed (for example
// channel "email" with an address as target).
type Rule struct {
	ID        string    `json:"id"`
	Metric    string    `json:"metric"`
	MinValue  *float64  `json:"min_value"`
	MaxValue  *float64  `json:"max_value"`
	Channel   string    `json:"channel"`
	Target    string    `json:"target"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// IncomingRule is the wire payload for creating a rule. The threshold
// fields are untyped so JSON numbers and numeric strings are both accepted.
type IncomingRule struct {
	Metric   string `json:"metric"`
	MinValue any    `json:"min_value"`
	MaxValue any    `json:"max_value"`
	Channel  string `json:"channel"`
	Target   string `json:"target"`
	Enabled  *bool  `json:"enabled"`
}
