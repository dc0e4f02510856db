package diagnostics

import "time"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes raised by the engine.
const (
	TransportDown  = "ARTNET.DIAL_FAILED"
	TransportSend  = "ARTNET.SEND_FAILED"
	TransportUp    = "ARTNET.CONNECTED"
	StoreRead      = "STORE.READ_FAILED"
	StoreWrite     = "STORE.WRITE_FAILED"
	PatternSwitch  = "PATTERN.SWITCHED"
	PatternUnknown = "PATTERN.UNKNOWN"
	MirrorFailed   = "MIRROR.WRITE_FAILED"
)

type Diagnostic struct {
	Time           time.Time      `json:"time"`
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Sink receives diagnostics as they are raised.
type Sink interface {
	Push(d Diagnostic)
}

// Discard drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Push(Diagnostic) {}

// New stamps a diagnostic with the current time.
func New(sev Severity, code, summary string) Diagnostic {
	return Diagnostic{Time: time.Now(), Severity: sev, Code: code, Summary: summary}
}

// WithErr records err as the detail.
func (d Diagnostic) WithErr(err error) Diagnostic {
	if err != nil {
		d.Detail = err.Error()
	}
	return d
}

// WithHints attaches what probably went wrong and what the operator can try.
func (d Diagnostic) WithHints(causes, fixes []string) Diagnostic {
	d.LikelyCauses = causes
	d.SuggestedFixes = fixes
	return d
}

// With adds one piece of evidence.
func (d Diagnostic) With(k string, v any) Diagnostic {
	ev := make(map[string]any, len(d.Evidence)+1)
	for kk, vv := range d.Evidence {
		ev[kk] = vv
	}
	ev[k] = v
	d.Evidence = ev
	return d
}
