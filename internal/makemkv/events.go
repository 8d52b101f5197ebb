package makemkv

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultProgressMax is the denominator makemkvcon documents for PRGV lines
// that report a zero total.
const DefaultProgressMax = 65536

// Event is one classified line of makemkvcon robot output. The set of
// variants is closed: LabelEvent, ProgressEvent, MessageEvent, Unrecognized.
type Event interface {
	event()
}

// LabelEvent carries the disc volume label from a CINFO:2 line.
type LabelEvent struct {
	Label string
}

// ProgressEvent carries a PRGV progress counter pair. Max is the denominator
// and is never zero (a reported zero is replaced with DefaultProgressMax).
type ProgressEvent struct {
	Current int64
	Max     int64
}

// MessageEvent carries the unescaped human text of an MSG line plus the raw
// line for diagnostic capture.
type MessageEvent struct {
	Text string
	Raw  string
}

// Unrecognized marks a line no other variant matched.
type Unrecognized struct {
	Line string
}

func (LabelEvent) event()    {}
func (ProgressEvent) event() {}
func (MessageEvent) event()  {}
func (Unrecognized) event()  {}

var (
	labelPattern = regexp.MustCompile(`^CINFO:2,\d+(?:,\d+)?,"((?:[^"\\]|\\.)*)"`)
	prgvPattern  = regexp.MustCompile(`^PRGV:(\d+),(\d+),(\d+)\s*$`)
	quotedField  = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
)

// Classify maps a single output line onto its event variant.
func Classify(line string) Event {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "PRGV:"):
		if m := prgvPattern.FindStringSubmatch(line); m != nil {
			current, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				break
			}
			max, err := strconv.ParseInt(m[3], 10, 64)
			if err != nil {
				break
			}
			if max <= 0 {
				max = DefaultProgressMax
			}
			return ProgressEvent{Current: current, Max: max}
		}
	case strings.HasPrefix(line, "MSG:"):
		if m := quotedField.FindStringSubmatch(line); m != nil {
			return MessageEvent{Text: unescape(m[1]), Raw: line}
		}
	case strings.HasPrefix(line, "CINFO:"):
		if m := labelPattern.FindStringSubmatch(line); m != nil {
			return LabelEvent{Label: unescape(m[1])}
		}
	}
	return Unrecognized{Line: line}
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	replacer := strings.NewReplacer(`\"`, `"`, `\\`, `\`)
	return replacer.Replace(s)
}
