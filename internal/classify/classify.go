// Package classify turns an ASR transcript into one of the pipeline's
// output classes via lowercasing and regex matching.
package classify

import (
	"log"
	"regexp"
	"strings"
	"sync"
)

// Class is the detector's verdict on a window.
type Class int

const (
	Silence Class = iota
	Speech
	Filler
	Beep
	Unknown
)

func (c Class) String() string {
	switch c {
	case Silence:
		return "SILENCE"
	case Speech:
		return "SPEECH"
	case Filler:
		return "FILLER"
	case Beep:
		return "BEEP"
	default:
		return "UNKNOWN"
	}
}

// Matcher holds the compiled filler/beep patterns. An empty pattern
// explicitly disables that class (nil regex, never matches). A non-empty
// pattern that fails to compile is logged and otherwise ignored: Update
// leaves the previously compiled matcher for that class in place rather
// than disabling it, so a bad regex pushed over the control plane can't
// silently turn off detection.
type Matcher struct {
	mu     sync.RWMutex
	filler *regexp.Regexp
	beep   *regexp.Regexp
	logger *log.Logger
}

// NewMatcher compiles fillerPattern and beepPattern. An empty pattern
// disables that class. Case-insensitivity comes from lowercasing the
// transcript before matching, not from regex flags.
func NewMatcher(fillerPattern, beepPattern string, logger *log.Logger) *Matcher {
	m := &Matcher{logger: logger}
	m.Update(fillerPattern, beepPattern)
	return m
}

// Update recompiles both patterns, matching cleanstream_update()'s
// per-call regex rebuild. A pattern that fails to compile leaves that
// class's previously compiled matcher untouched.
func (m *Matcher) Update(fillerPattern, beepPattern string) {
	filler, fillerOK := m.compile(fillerPattern)
	beep, beepOK := m.compile(beepPattern)

	m.mu.Lock()
	defer m.mu.Unlock()
	if fillerOK {
		m.filler = filler
	}
	if beepOK {
		m.beep = beep
	}
}

// compile reports ok=false only when pattern is non-empty and fails to
// compile; an empty pattern is a deliberate "disable this class" and
// always succeeds with a nil regex.
func (m *Matcher) compile(pattern string) (re *regexp.Regexp, ok bool) {
	if pattern == "" {
		return nil, true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		if m.logger != nil {
			m.logger.Printf("classify: regex compile failed for %q, keeping previous matcher: %v", pattern, err)
		}
		return nil, false
	}
	return re, true
}

// Classify lowercases and right-trims text, then applies the filler and
// beep patterns in order.
func (m *Matcher) Classify(text string) Class {
	trimmed := strings.TrimRight(strings.ToLower(text), " \t\r\n")
	if trimmed == "" {
		return Silence
	}

	m.mu.RLock()
	filler, beep := m.filler, m.beep
	m.mu.RUnlock()

	if filler != nil && filler.MatchString(trimmed) {
		return Filler
	}
	if beep != nil && beep.MatchString(trimmed) {
		return Beep
	}
	return Speech
}
