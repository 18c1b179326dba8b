package fixturestatus

import "strings"

// Outcome is the result of one enrichment run. The set of implementations is closed:
// Success, Partial and Failure.
type Outcome interface {
	outcome()
}

// Success means every required data piece was produced.
type Success struct{}

// Partial means the run finished but some required pieces were missing.
type Partial struct {
	Reason string
}

// Failure means the run did not finish.
type Failure struct {
	Err error
}

func (Success) outcome() {}
func (Partial) outcome() {}
func (Failure) outcome() {}

const missingPrefix = "Missing: "

func (p Partial) Message() string {
	reason := strings.TrimSpace(p.Reason)
	if reason == "" {
		reason = "unspecified data"
	}
	if strings.HasPrefix(reason, missingPrefix) {
		return reason
	}
	return missingPrefix + reason
}

func (f Failure) Message() string {
	if f.Err == nil {
		return "unknown error"
	}
	return f.Err.Error()
}

// OutcomeName is used for logs and metrics.
func OutcomeName(o Outcome) string {
	switch o.(type) {
	case Success:
		return string(StatusComplete)
	case Partial:
		return string(StatusPartial)
	case Failure:
		return string(StatusFailed)
	default:
		return "unknown"
	}
}
