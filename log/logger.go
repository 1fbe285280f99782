// Package log is the structured logging facade used by services, the tool
// gateway and the CLI. Store code logs through zerolog's global logger instead.
package log

import "context"

// Fields are structured key/value pairs attached to a log line.
type Fields = map[string]interface{}

// Logger writes leveled, context aware log lines. When ctx carries an active
// span the trace and span ids are attached.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Fields)
	Info(ctx context.Context, msg string, fields ...Fields)
	Warn(ctx context.Context, msg string, fields ...Fields)
	Error(ctx context.Context, msg string, err error, fields ...Fields)
	// Fatal logs and exits the process.
	Fatal(ctx context.Context, msg string, err error, fields ...Fields)
	With(fields Fields) Logger
}
