package entities

import (
	"time"

	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
)

// Column helpers tolerate the value shapes the memory and SQL backends produce.

func getString(r interfaces.Record, key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

func getStringPtr(r interfaces.Record, key string) *string {
	s, ok := r[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func getInt(r interfaces.Record, key string) int {
	switch v := r[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	}
	return 0
}

func getInt64(r interfaces.Record, key string) int64 {
	switch v := r[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case int32:
		return int64(v)
	}
	return 0
}

func getBool(r interfaces.Record, key string) bool {
	b, _ := r[key].(bool)
	return b
}

func getTime(r interfaces.Record, key string) time.Time {
	t, _ := r[key].(time.Time)
	return t
}

func getTimePtr(r interfaces.Record, key string) *time.Time {
	t, ok := r[key].(time.Time)
	if !ok {
		return nil
	}
	return &t
}

func nullable[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// AllSchemas lists every table in dependency order.
func AllSchemas() []*interfaces.Schema {
	return []*interfaces.Schema{
		UserSchema,
		CategorySchema,
		PostSchema,
		PostCategorySchema,
		MediaSchema,
		SettingsSchema,
	}
}

var timestampFields = map[string]interfaces.FieldSchema{
	"id":         {Type: "string", PrimaryKey: true},
	"created_at": {Type: "time"},
	"updated_at": {Type: "time"},
}

func withTimestamps(fields map[string]interfaces.FieldSchema) map[string]interfaces.FieldSchema {
	for name, f := range timestampFields {
		fields[name] = f
	}
	return fields
}
