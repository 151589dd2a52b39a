package sqlstore

import (
	"time"

	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// normalizeRecord coerces driver values into the Go types the schema
// declares, so both engines hand services the same shapes as the memory backend.
func normalizeRecord(schema *interfaces.Schema, row map[string]interface{}) interfaces.Record {
	out := make(interfaces.Record, len(row))
	for name, value := range row {
		field, ok := schema.Fields[name]
		if !ok {
			out[name] = value
			continue
		}
		out[name] = normalizeValue(field.Type, value)
	}
	return out
}

func normalizeValue(fieldType string, value interface{}) interface{} {
	if b, ok := value.([]byte); ok {
		value = string(b)
	}
	if value == nil {
		return nil
	}

	switch fieldType {
	case "int":
		switch v := value.(type) {
		case int64:
			return int(v)
		case int32:
			return int(v)
		}
	case "int64":
		switch v := value.(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		}
	case "bool":
		switch v := value.(type) {
		case int64:
			return v != 0
		case int:
			return v != 0
		case string:
			return v == "1" || v == "true" || v == "t"
		}
	case "time":
		switch v := value.(type) {
		case time.Time:
			return v.UTC()
		case string:
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, v); err == nil {
					return t.UTC()
				}
			}
		}
	}
	return value
}
