package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ListOptions selects one page of a newest-first listing. Q, when non-empty,
// is matched case-insensitively as a substring of the searchable column.
type ListOptions struct {
	Page     int
	PageSize int
	Q        string
}

// Offset is the number of rows skipped before the page starts.
func (o ListOptions) Offset() int {
	if o.Page < 1 {
		return 0
	}
	return (o.Page - 1) * o.PageSize
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// search narrows q to rows whose column contains term.
func search(q *gorm.DB, column, term string) *gorm.DB {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return q
	}
	return q.Where("LOWER("+column+`) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(term)+"%")
}

// listPage returns one page of T and the total number of matching rows.
// Rows are ordered by created_at then id, both descending, so pages are
// stable when timestamps collide.
func listPage[T any](ctx context.Context, db *gorm.DB, column string, opts ListOptions) ([]T, int64, error) {
	var total int64
	if err := search(db.WithContext(ctx).Model(new(T)), column, opts.Q).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	out := make([]T, 0, opts.PageSize)
	if total == 0 {
		return out, 0, nil
	}
	err := search(db.WithContext(ctx).Model(new(T)), column, opts.Q).
		Order("created_at desc").
		Order("id desc").
		Offset(opts.Offset()).
		Limit(opts.PageSize).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func getByID[T any](ctx context.Context, db *gorm.DB, id string) (*T, error) {
	var v T
	if err := db.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}
