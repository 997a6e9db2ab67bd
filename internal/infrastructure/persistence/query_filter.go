package persistence

import (
	"errors"
	"strings"

	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// sortColumns maps the sort keys callers may pass to real columns. Both the
// column name and its camelCase form are accepted.
type sortColumns struct {
	columns  map[string]string
	fallback string
}

func newSortColumns(fallback string, columns ...string) sortColumns {
	m := make(map[string]string, len(columns)*2)
	for _, c := range columns {
		m[c] = c
		m[camelCase(c)] = c
	}
	return sortColumns{columns: m, fallback: fallback}
}

// column resolves key, falling back to the default for anything unknown
func (s sortColumns) column(key string) string {
	if c, ok := s.columns[strings.TrimSpace(key)]; ok {
		return c
	}
	return s.fallback
}

func camelCase(column string) string {
	parts := strings.Split(column, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

// sortDirection only ever yields ASC or DESC
func sortDirection(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return "ASC"
	}
	return "DESC"
}

var (
	orderSortColumns = newSortColumns("created_at",
		"created_at", "updated_at", "order_number", "customer_email", "status", "payment_status", "total",
	)
	auditEventSortColumns = newSortColumns("occurred_at",
		"occurred_at", "event_type", "severity", "action",
	)
)

// applyFilter applies whitelisted ordering and pagination
func applyFilter(query *gorm.DB, filter shared.Filter, sortable sortColumns) *gorm.DB {
	query = query.Order(sortable.column(filter.OrderBy) + " " + sortDirection(filter.OrderDir))
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

// first loads the single row the query matches. A missing row is reported
// as shared.ErrNotFound.
func first[M any](query *gorm.DB) (*M, error) {
	var model M
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &model, nil
}
