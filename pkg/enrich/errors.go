package enrich

import "fmt"

// Status is the terminal state of one record.
type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// Reason classifies why one record failed.
type Reason string

const (
	// ReasonMissingEntity marks rows whose entity column is empty; such
	// rows never reach the search or extraction backends.
	ReasonMissingEntity Reason = "MissingEntity"
	// ReasonSearchFailed marks rows whose search call failed terminally.
	ReasonSearchFailed Reason = "SearchFailed"
	// ReasonExtractionFailed marks rows whose extraction call failed.
	ReasonExtractionFailed Reason = "ExtractionFailed"
)

// ConfigurationError reports a bad batch setup. It aborts the run before
// any record is processed; no partial output exists when it is returned.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "configuration error"
	}
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PerRecordError is recorded on a failed row. It never escapes the batch
// loop; the batch continues with the next record.
type PerRecordError struct {
	Reason Reason
	Err    error
}

func (e *PerRecordError) Error() string {
	if e == nil {
		return "record failed"
	}
	return fmt.Sprintf("record failed (%s): %v", e.Reason, e.Err)
}

func (e *PerRecordError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// SinkError reports a write-back failure. The in-memory results remain
// valid; callers decide whether the failed sink is fatal.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	if e == nil {
		return "sink error"
	}
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
