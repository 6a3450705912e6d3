package logger

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// zapField wraps a zap.Field and keeps the raw value around for Value().
type zapField struct {
	key   string
	value any
	zap   zap.Field
}

func (f zapField) Key() string         { return f.key }
func (f zapField) Value() any          { return f.value }
func (f zapField) ZapField() zap.Field { return f.zap }

func String(key, value string) Field {
	return zapField{key: key, value: value, zap: zap.String(key, value)}
}

func Strings(key string, value []string) Field {
	return zapField{key: key, value: value, zap: zap.Strings(key, value)}
}

func Int(key string, value int) Field {
	return zapField{key: key, value: value, zap: zap.Int(key, value)}
}

func Int64(key string, value int64) Field {
	return zapField{key: key, value: value, zap: zap.Int64(key, value)}
}

func Bool(key string, value bool) Field {
	return zapField{key: key, value: value, zap: zap.Bool(key, value)}
}

func Duration(key string, value time.Duration) Field {
	return zapField{key: key, value: value, zap: zap.Duration(key, value)}
}

// Error creates an error field under the "error" key.
func Error(err error) Field {
	return zapField{key: "error", value: err, zap: zap.Error(err)}
}

func Any(key string, value any) Field {
	return zapField{key: key, value: value, zap: zap.Any(key, value)}
}

// Domain fields

func DestinationID(id string) Field {
	return String("destination", id)
}

func AttributeID(id string) Field {
	return String("attribute_id", id)
}

func Scope(scope string) Field {
	return String("scope", scope)
}

func Source(source string) Field {
	return String("source", source)
}

// ContextFields extracts the well-known request values carried by ctx.
func ContextFields(ctx context.Context) []Field {
	var fields []Field
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, String("request_id", id))
	}
	if id := SessionIDFromContext(ctx); id != "" {
		fields = append(fields, String("session_id", id))
	}
	return fields
}
