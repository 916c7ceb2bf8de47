// Package doctor runs health checks over the configuration and the table.
package doctor

import (
	"context"
	"fmt"
)

// Status is the outcome of a single check item.
type Status int

const (
	StatusPass Status = iota
	StatusWarn
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckItem is one finding of a check. Fixable findings can be repaired by
// running the check again with fixing enabled.
type CheckItem struct {
	Label   string `json:"label"`
	Status  Status `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Fixable bool   `json:"fixable,omitempty"`
}

// Result groups the findings of one check.
type Result struct {
	Name  string      `json:"name"`
	Items []CheckItem `json:"items"`
}

// Addf appends a finding with a formatted detail.
func (r *Result) Addf(status Status, label, format string, args ...any) {
	r.Items = append(r.Items, CheckItem{Label: label, Status: status, Detail: fmt.Sprintf(format, args...)})
}

// AddFixable appends a finding that a fix run can repair.
func (r *Result) AddFixable(status Status, label, detail string) {
	r.Items = append(r.Items, CheckItem{Label: label, Status: status, Detail: detail, Fixable: status != StatusPass})
}

// Check is a single diagnostic.
type Check interface {
	Name() string
	Run(ctx context.Context) Result
}

// RunAll runs checks in order. A check that reports nothing is recorded with
// an empty item list so it still appears in JSON output.
func RunAll(ctx context.Context, checks []Check) []Result {
	results := make([]Result, 0, len(checks))
	for _, check := range checks {
		result := check.Run(ctx)
		if result.Items == nil {
			result.Items = []CheckItem{}
		}
		results = append(results, result)
	}
	return results
}

// Report tallies findings across results.
type Report struct {
	Passed  int `json:"passed"`
	Warned  int `json:"warned"`
	Failed  int `json:"failed"`
	Fixable int `json:"fixable"`
}

// Healthy reports whether no finding failed.
func (r Report) Healthy() bool {
	return r.Failed == 0
}

// Summarize counts findings by status, and the unresolved ones a fix run
// could repair.
func Summarize(results []Result) Report {
	var rep Report
	for _, r := range results {
		for _, item := range r.Items {
			switch item.Status {
			case StatusPass:
				rep.Passed++
			case StatusWarn:
				rep.Warned++
			case StatusFail:
				rep.Failed++
			}
			if item.Fixable && item.Status != StatusPass {
				rep.Fixable++
			}
		}
	}
	return rep
}
