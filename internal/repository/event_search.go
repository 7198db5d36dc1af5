package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// EventSearchQuery defines filters & pagination for searching events.
// Zero values mean "no filter".  Matching is plain LIKE on lowered text;
// there is no ranking.
type EventSearchQuery struct {
	Text     string // matches title or description
	Location string
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// Search returns events matching the query ordered by date ascending,
// together with the total match count for pagination.
func (r *EventRepo) Search(ctx context.Context, q EventSearchQuery) ([]model.Event, int64, error) {
	where := []string{}
	args := []any{}

	if q.Text != "" {
		needle := "%" + strings.ToLower(q.Text) + "%"
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)")
		args = append(args, needle, needle)
	}
	if q.Location != "" {
		where = append(where, "LOWER(location) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Location)+"%")
	}
	if !q.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, q.To.UTC())
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT ` + eventColumns + ` FROM events WHERE ` + cond + ` ORDER BY date ASC LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Event, 0, limit)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *ev)
	}
	return out, total, rows.Err()
}
