package logger

import (
	"io"
	"strings"
	"sync"
)

// Sink receives operator-facing event lines: connects, disconnects and every
// relayed message. The core only appends; it never reads a Sink back.
// Implementations must be safe for concurrent LogLine calls.
type Sink interface {
	LogLine(text string)
}

// WriterSink writes each line to an io.Writer followed by a newline,
// serialising concurrent callers so lines never interleave.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink returns a Sink appending lines to w (e.g. os.Stdout).
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// LogLine implements Sink. Write errors are dropped: the display is best-effort.
func (s *WriterSink) LogLine(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, strings.TrimRight(text, "\r\n")+"\n")
}

// LoggerSink forwards each line to a Logger at info level.
type LoggerSink struct {
	logger Logger
}

// NewLoggerSink returns a Sink that records lines as info entries of l.
func NewLoggerSink(l Logger) *LoggerSink {
	return &LoggerSink{logger: l}
}

// LogLine implements Sink.
func (s *LoggerSink) LogLine(text string) {
	s.logger.Info(text)
}

// MultiSink fans every line out to several sinks in order.
type MultiSink []Sink

// LogLine implements Sink.
func (m MultiSink) LogLine(text string) {
	for _, s := range m {
		s.LogLine(text)
	}
}

type nopSink struct{}

func (nopSink) LogLine(string) {}

// NopSink returns a Sink that discards every line.
func NopSink() Sink {
	return nopSink{}
}
