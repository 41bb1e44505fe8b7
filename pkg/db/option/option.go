package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type queryOptionFunc func(*gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// Operator is a comparison operator for ApplyOperator conditions.
type Operator string

const (
	EQ  Operator = "="
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

// Condition describes a single field comparison.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator adds a WHERE clause for the condition.
func ApplyOperator(cond Condition) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(cond.Field)
		if field == "" {
			return db
		}
		return db.Where(fmt.Sprintf("%s %s ?", field, cond.Operator), cond.Value)
	})
}

// QuerySortBy restricts ordering to an allow-listed set of columns.
type QuerySortBy struct {
	Allow   map[string]bool
	Field   string
	Desc    bool
	Default string
}

// WithSortBy orders the result set. Fields outside the allow list fall
// back to the default ordering.
func WithSortBy(sort QuerySortBy) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(sort.Field)
		if field == "" || !sort.Allow[field] {
			field = sort.Default
		}
		if field == "" {
			for allowed := range sort.Allow {
				field = allowed
				break
			}
		}
		if field == "" {
			return db
		}
		direction := "ASC"
		if sort.Desc {
			direction = "DESC"
		}
		return db.Order(fmt.Sprintf("%s %s", field, direction))
	})
}

// WithLimit caps the number of returned rows.
func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}
