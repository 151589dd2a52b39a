package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
)

// Builder evaluates queries against records held in memory
type Builder struct {
	schema *interfaces.Schema
}

// NewBuilder creates a new query builder for a schema
func NewBuilder(schema *interfaces.Schema) *Builder {
	return &Builder{schema: schema}
}

// MatchesFilters checks if a record matches the given filters
func (b *Builder) MatchesFilters(record interfaces.Record, filters *interfaces.Filters) bool {
	if filters == nil {
		return true
	}

	for _, andFilter := range filters.AND {
		if !b.MatchesFilters(record, andFilter) {
			return false
		}
	}

	if len(filters.OR) > 0 {
		hasMatch := false
		for _, orFilter := range filters.OR {
			if b.MatchesFilters(record, orFilter) {
				hasMatch = true
				break
			}
		}
		if !hasMatch {
			return false
		}
	}

	for _, condition := range filters.Conditions {
		if !b.matchesCondition(record, condition) {
			return false
		}
	}

	return true
}

func (b *Builder) matchesCondition(record interfaces.Record, condition interfaces.Filter) bool {
	fieldValue, exists := record[condition.Field]

	if condition.Operator == nil {
		if condition.Value == nil {
			return !exists || fieldValue == nil
		}
		return Equal(fieldValue, condition.Value)
	}

	op := condition.Operator

	if op.IsNull {
		return fieldValue == nil || !exists
	}
	if op.IsNotNull {
		return fieldValue != nil && exists
	}

	if !exists {
		return false
	}

	if op.Eq != nil {
		return Equal(fieldValue, op.Eq)
	}
	if op.Ne != nil {
		return !Equal(fieldValue, op.Ne)
	}

	if op.Gt != nil {
		return Compare(fieldValue, op.Gt) > 0
	}
	if op.Gte != nil {
		return Compare(fieldValue, op.Gte) >= 0
	}
	if op.Lt != nil {
		return Compare(fieldValue, op.Lt) < 0
	}
	if op.Lte != nil {
		return Compare(fieldValue, op.Lte) <= 0
	}

	if len(op.In) > 0 {
		for _, val := range op.In {
			if Equal(fieldValue, val) {
				return true
			}
		}
		return false
	}
	if len(op.NotIn) > 0 {
		for _, val := range op.NotIn {
			if Equal(fieldValue, val) {
				return false
			}
		}
		return true
	}

	if op.Like != "" {
		strValue, ok := fieldValue.(string)
		if !ok {
			return false
		}
		return containsPattern(strValue, op.Like, op.CaseSensitive)
	}
	if op.NotLike != "" {
		strValue, ok := fieldValue.(string)
		if !ok {
			return true
		}
		return !containsPattern(strValue, op.NotLike, op.CaseSensitive)
	}

	return true
}

func containsPattern(value, pattern string, caseSensitive *bool) bool {
	pattern = strings.ReplaceAll(pattern, "%", "")
	if caseSensitive != nil && !*caseSensitive {
		value = strings.ToLower(value)
		pattern = strings.ToLower(pattern)
	}
	return strings.Contains(value, pattern)
}

// Equal compares two column values, treating int/int64 alike and times by instant.
func Equal(a, other interface{}) bool {
	if at, ok := a.(time.Time); ok {
		bt, ok := other.(time.Time)
		return ok && at.Equal(bt)
	}
	if ai, ok := toInt64(a); ok {
		bi, ok := toInt64(other)
		return ok && ai == bi
	}
	return a == other
}

// Compare orders two column values. nil sorts before everything else and
// values of unrelated types compare equal.
func Compare(a, other interface{}) int {
	switch {
	case a == nil && other == nil:
		return 0
	case a == nil:
		return -1
	case other == nil:
		return 1
	}

	switch av := a.(type) {
	case string:
		if bv, ok := other.(string); ok {
			return strings.Compare(av, bv)
		}
	case time.Time:
		if bv, ok := other.(time.Time); ok {
			return av.Compare(bv)
		}
	case bool:
		if bv, ok := other.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	case float64:
		if bv, ok := other.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	}

	if ai, ok := toInt64(a); ok {
		if bi, ok := toInt64(other); ok {
			switch {
			case ai < bi:
				return -1
			case ai > bi:
				return 1
			}
			return 0
		}
	}
	return 0
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	}
	return 0, false
}

// ApplySort sorts records by the given OrderBy fields. Records
// that compare equal on every key keep their relative order.
func (b *Builder) ApplySort(records []interfaces.Record, orderBy []interfaces.OrderBy) []interfaces.Record {
	if len(orderBy) == 0 {
		return records
	}

	sorted := make([]interfaces.Record, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		for _, order := range orderBy {
			cmp := Compare(sorted[i][order.Field], sorted[j][order.Field])
			if cmp == 0 {
				continue
			}
			if strings.EqualFold(order.Direction, "desc") {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	return sorted
}

// ApplyPagination applies limit and offset to the records
func (b *Builder) ApplyPagination(records []interfaces.Record, limit, offset *int) []interfaces.Record {
	start := 0
	if offset != nil && *offset > 0 {
		start = *offset
	}

	if start >= len(records) {
		return []interfaces.Record{}
	}

	end := len(records)
	if limit != nil {
		end = start + *limit
		if end > len(records) {
			end = len(records)
		}
	}

	return records[start:end]
}

// ValidateQuery rejects filters and sort keys naming undeclared columns.
func (b *Builder) ValidateQuery(q *interfaces.Query) error {
	for _, order := range q.OrderBy {
		if !b.schema.HasField(order.Field) {
			return fmt.Errorf("%w: unknown sort field '%s'", interfaces.ErrInvalidQuery, order.Field)
		}
	}
	return b.validateFilters(q.Where)
}

func (b *Builder) validateFilters(f *interfaces.Filters) error {
	if f == nil {
		return nil
	}
	for _, c := range f.Conditions {
		if !b.schema.HasField(c.Field) {
			return fmt.Errorf("%w: unknown filter field '%s'", interfaces.ErrInvalidQuery, c.Field)
		}
	}
	for _, sub := range append(append([]*interfaces.Filters{}, f.AND...), f.OR...) {
		if err := b.validateFilters(sub); err != nil {
			return err
		}
	}
	return nil
}

// ValidateData validates data against the schema
func (b *Builder) ValidateData(data interfaces.Record) error {
	for fieldName := range data {
		if !b.schema.HasField(fieldName) {
			return fmt.Errorf("unknown field '%s'", fieldName)
		}
	}

	for fieldName, fieldSchema := range b.schema.Fields {
		value, exists := data[fieldName]

		// System fields are filled in by the repository
		if fieldName == "id" || fieldName == "created_at" || fieldName == "updated_at" {
			continue
		}

		if !fieldSchema.Nullable && !exists && fieldSchema.DefaultValue == nil {
			return fmt.Errorf("field '%s' is required", fieldName)
		}

		if !exists {
			continue
		}

		if value == nil && !fieldSchema.Nullable {
			return fmt.Errorf("field '%s' cannot be null", fieldName)
		}

		if value != nil {
			if err := ValidateFieldType(fieldName, value, fieldSchema.Type); err != nil {
				return err
			}
		}
	}

	return nil
}

// ValidateFieldType checks value against a schema type name.
func ValidateFieldType(fieldName string, value interface{}, expectedType string) error {
	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field '%s' must be a string", fieldName)
		}
	case "int", "int64":
		if _, ok := toInt64(value); !ok {
			return fmt.Errorf("field '%s' must be an integer", fieldName)
		}
	case "bool":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field '%s' must be a boolean", fieldName)
		}
	case "float64":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("field '%s' must be a float64", fieldName)
		}
	case "time":
		if _, ok := value.(time.Time); !ok {
			return fmt.Errorf("field '%s' must be a time value", fieldName)
		}
	}

	return nil
}
