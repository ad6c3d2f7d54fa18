package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Level represents the log level
type Level int

const (
	LevelDebug Level = iota // Debug information (only shown with --verbose)
	LevelInfo               // Important steps
	LevelTool               // Tool call related
	LevelError              // Error messages
)

// ANSI color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
	ColorBold   = "\033[1m"
)

// Logger provides leveled logging for the anchor daemon and its loops
type Logger struct {
	writer    io.Writer
	level     Level
	showTime  bool
	colorMode bool
}

// NewLogger creates a new Logger instance
func NewLogger(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stdout
	}
	return &Logger{
		writer:    w,
		level:     level,
		showTime:  true,
		colorMode: true,
	}
}

// Nop returns a logger that discards all output, for tests
func Nop() *Logger {
	return &Logger{writer: io.Discard, level: LevelError + 1}
}

// SetColorMode enables or disables colored output
func (l *Logger) SetColorMode(enabled bool) {
	l.colorMode = enabled
}

// SetShowTime enables or disables timestamp display
func (l *Logger) SetShowTime(enabled bool) {
	l.showTime = enabled
}

// Debug logs debug information (only shown in verbose mode)
func (l *Logger) Debug(format string, args ...any) {
	if l.level <= LevelDebug {
		l.log(ColorGray, "DEBUG", format, args...)
	}
}

// Info logs general information
func (l *Logger) Info(format string, args ...any) {
	if l.level <= LevelInfo {
		l.log(ColorBlue, "INFO", format, args...)
	}
}

// Warn logs recoverable problems such as failed relay cycles
func (l *Logger) Warn(format string, args ...any) {
	if l.level <= LevelInfo {
		l.log(ColorYellow, "WARN", format, args...)
	}
}

// Error logs error messages
func (l *Logger) Error(format string, args ...any) {
	if l.level <= LevelError {
		l.log(ColorRed, "ERROR", format, args...)
	}
}

// ToolCall logs a tool invocation with its arguments
func (l *Logger) ToolCall(toolName string, args string) {
	if l.level <= LevelTool {
		l.printSection(ColorCyan, fmt.Sprintf("Tool Call: %s", toolName), l.formatJSON(args))
	}
}

// ToolResult logs a tool execution result
func (l *Logger) ToolResult(toolName string, success bool, output string, duration time.Duration) {
	if l.level > LevelTool {
		return
	}

	status := "ok"
	color := ColorGreen
	if !success {
		status = "error"
		color = ColorRed
	}

	// Limit output to two lines and 500 characters
	const maxLines = 2
	const maxLength = 500

	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	display := output
	truncated := false

	if len(lines) > maxLines {
		display = strings.Join(lines[:maxLines], "\n")
		truncated = true
	}
	if len(display) > maxLength {
		display = display[:maxLength] + "..."
	} else if truncated {
		display += "\n..."
	}

	header := fmt.Sprintf("Tool Result: %s [%s] (%s)", toolName, status, duration.Round(time.Millisecond))
	l.printSection(color, header, display)
}

// Status prints a diagnostics line in the boot-check style
func (l *Logger) Status(name string, ok bool, detail string) {
	mark := "OK"
	color := ColorGreen
	if !ok {
		mark = "FAIL"
		color = ColorRed
	}

	detailStr := ""
	if detail != "" {
		detailStr = " - " + detail
	}

	if l.colorMode {
		fmt.Fprintf(l.writer, "  [%s%s%s] %s%s\n", color, mark, ColorReset, name, detailStr)
	} else {
		fmt.Fprintf(l.writer, "  [%s] %s%s\n", mark, name, detailStr)
	}
}

// log is the core logging method
func (l *Logger) log(color, level, format string, args ...any) {
	timestamp := ""
	if l.showTime {
		timestamp = time.Now().Format("15:04:05") + " "
	}

	msg := fmt.Sprintf(format, args...)

	if l.colorMode {
		fmt.Fprintf(l.writer, "%s%s[%s]%s %s\n",
			color, timestamp, level, ColorReset, msg)
	} else {
		fmt.Fprintf(l.writer, "%s[%s] %s\n", timestamp, level, msg)
	}
}

// printSection prints a formatted section with header and content
func (l *Logger) printSection(color, header, content string) {
	separator := strings.Repeat("─", 60)

	if l.colorMode {
		fmt.Fprintf(l.writer, "\n%s%s%s%s\n", ColorBold, color, header, ColorReset)
		fmt.Fprintf(l.writer, "%s%s%s\n", color, separator, ColorReset)
		fmt.Fprintf(l.writer, "%s\n", content)
		fmt.Fprintf(l.writer, "%s%s%s\n\n", color, separator, ColorReset)
	} else {
		fmt.Fprintf(l.writer, "\n%s\n%s\n%s\n%s\n\n", header, separator, content, separator)
	}
}

// formatJSON keeps short JSON compact and pretty-prints the rest
func (l *Logger) formatJSON(jsonStr string) string {
	compact := strings.TrimSpace(jsonStr)
	if len(compact) < 80 {
		return compact
	}

	var obj any
	if err := json.Unmarshal([]byte(compact), &obj); err != nil {
		return compact
	}

	pretty, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return compact
	}

	return string(pretty)
}
