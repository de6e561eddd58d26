package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fatih/color"
)

// Logger is a lightweight console logger with a fixed component name.
// Each package creates its own instance: logger.New("TenantRegistry").
type Logger struct {
	component string
}

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	debugColor   = color.New(color.FgMagenta)
)

func New(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) format(level, msg string) string {
	_, file, line, _ := runtime.Caller(2)
	return fmt.Sprintf("%s | %-7s | %s:%d | %s | %s",
		time.Now().Format("2006-01-02 15:04:05"),
		level,
		filepath.Base(file),
		line,
		l.component,
		msg,
	)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	infoColor.Println(l.format("INFO", fmt.Sprintf(msg, args...)))
}

func (l *Logger) Success(msg string, args ...interface{}) {
	successColor.Println(l.format("SUCCESS", fmt.Sprintf(msg, args...)))
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	warnColor.Println(l.format("WARN", fmt.Sprintf(msg, args...)))
}

// Error logs the message and returns it wrapped around err so callers can
// `return log.Error("opening tenant store", err)`.
func (l *Logger) Error(msg string, err error, args ...interface{}) error {
	formatted := fmt.Sprintf(msg, args...)
	errorColor.Println(l.format("ERROR", fmt.Sprintf("%s: %v", formatted, err)))
	if err == nil {
		return fmt.Errorf("%s", formatted)
	}
	return fmt.Errorf("%s: %w", formatted, err)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	debugColor.Println(l.format("DEBUG", fmt.Sprintf(msg, args...)))
}

func (l *Logger) Fatal(msg string, err error) {
	errorColor.Println(l.format("FATAL", fmt.Sprintf("%s: %v", msg, err)))
	os.Exit(1)
}
