package blackhole

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger splits engine output by severity, each level with its own prefix.
type Logger struct {
	info *log.Logger
	warn *log.Logger
	err  *log.Logger
	file *os.File
}

// NewLogger writes all levels to w.
func NewLogger(w io.Writer) *Logger {
	return &Logger{
		info: log.New(w, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile),
		warn: log.New(w, "WARNING: ", log.Ldate|log.Ltime|log.Lshortfile),
		err:  log.New(w, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// NewFileLogger writes to stderr and appends the same lines to path.
func NewFileLogger(path string) (*Logger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return nil, err
	}
	l := NewLogger(io.MultiWriter(os.Stderr, file))
	l.file = file
	return l, nil
}

func (l *Logger) Infof(format string, a ...interface{}) {
	l.info.Output(2, fmt.Sprintf(format, a...))
}

func (l *Logger) Warnf(format string, a ...interface{}) {
	l.warn.Output(2, fmt.Sprintf(format, a...))
}

func (l *Logger) Errorf(format string, a ...interface{}) {
	l.err.Output(2, fmt.Sprintf(format, a...))
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
