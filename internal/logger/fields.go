package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldSource is the structured log field key for the job source name.
	FieldSource = "source"
	// FieldRole is the structured log field key for the searched role.
	FieldRole = "role"
	// FieldLocation is the structured log field key for the searched location.
	FieldLocation = "location"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches the provided fields to the logger, defaulting to a
// no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	logger = OrNop(logger)

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// SearchFields describes a single adapter call. Empty values are skipped.
func SearchFields(source, role, location string) []zap.Field {
	return StringFields(
		StringField{Key: FieldSource, Value: source},
		StringField{Key: FieldRole, Value: role},
		StringField{Key: FieldLocation, Value: location},
	)
}

// WithSource attaches the source name to the logger.
func WithSource(logger *zap.Logger, source string) *zap.Logger {
	return WithFields(logger, SearchFields(source, "", "")...)
}
