package sqlstore

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
)

// where translates the backend-neutral filter tree. Field names must already
// be validated against the schema since they are written into the SQL text.
func (d Dialect) where(f *interfaces.Filters) sq.Sqlizer {
	if f == nil {
		return nil
	}

	parts := sq.And{}
	for _, c := range f.Conditions {
		parts = append(parts, d.condition(c))
	}
	for _, sub := range f.AND {
		if cond := d.where(sub); cond != nil {
			parts = append(parts, cond)
		}
	}
	if len(f.OR) > 0 {
		or := sq.Or{}
		for _, sub := range f.OR {
			if cond := d.where(sub); cond != nil {
				or = append(or, cond)
			}
		}
		if len(or) > 0 {
			parts = append(parts, or)
		}
	}

	if len(parts) == 0 {
		return nil
	}
	return parts
}

func (d Dialect) condition(c interfaces.Filter) sq.Sqlizer {
	if c.Operator == nil {
		// sq.Eq renders a nil value as IS NULL
		return sq.Eq{c.Field: c.Value}
	}

	op := c.Operator
	parts := sq.And{}
	if op.IsNull {
		parts = append(parts, sq.Eq{c.Field: nil})
	}
	if op.IsNotNull {
		parts = append(parts, sq.NotEq{c.Field: nil})
	}
	if op.Eq != nil {
		parts = append(parts, sq.Eq{c.Field: op.Eq})
	}
	if op.Ne != nil {
		parts = append(parts, sq.NotEq{c.Field: op.Ne})
	}
	if op.Gt != nil {
		parts = append(parts, sq.Gt{c.Field: op.Gt})
	}
	if op.Gte != nil {
		parts = append(parts, sq.GtOrEq{c.Field: op.Gte})
	}
	if op.Lt != nil {
		parts = append(parts, sq.Lt{c.Field: op.Lt})
	}
	if op.Lte != nil {
		parts = append(parts, sq.LtOrEq{c.Field: op.Lte})
	}
	if op.In != nil {
		if len(op.In) == 0 {
			parts = append(parts, sq.Expr("1 = 0"))
		} else {
			parts = append(parts, sq.Eq{c.Field: op.In})
		}
	}
	if len(op.NotIn) > 0 {
		parts = append(parts, sq.NotEq{c.Field: op.NotIn})
	}

	caseSensitive := op.CaseSensitive == nil || *op.CaseSensitive
	if op.Like != "" {
		parts = append(parts, d.like(c.Field, op.Like, caseSensitive, false))
	}
	if op.NotLike != "" {
		parts = append(parts, d.like(c.Field, op.NotLike, caseSensitive, true))
	}
	return parts
}
