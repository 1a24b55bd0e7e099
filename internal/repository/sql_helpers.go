package repository

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"sms-campaign/internal/domain/sms"
	sms_errors "sms-campaign/pkg/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const defaultOrderBy = "name"

// MaxSeriesDays bounds the number of daily buckets one hits series may hold.
const MaxSeriesDays = 366

var forceColumns = map[string]bool{
	"created_by":   true,
	"sms_type":     true,
	"language":     true,
	"is_published": true,
	"category":     true,
}

var sortColumns = map[string]bool{
	"name":       true,
	"created_at": true,
	"updated_at": true,
	"sms_type":   true,
	"language":   true,
	"sent_count": true,
	"id":         true,
}

var operators = map[string]string{
	"eq":   "=",
	"neq":  "<>",
	"like": "ILIKE",
	"in":   "IN",
}

// IsSortable reports whether col may be used as a list sort column.
func IsSortable(col string) bool {
	return sortColumns[col]
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// buildConditions renders force conditions into a WHERE fragment. Columns
// and operators outside the whitelist are rejected.
func buildConditions(conds []Condition) (string, []any, error) {
	if len(conds) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(conds))
	args := make([]any, 0, len(conds))
	for _, c := range conds {
		if !forceColumns[c.Column] {
			return "", nil, fmt.Errorf("%w: column %q", sms_errors.ErrInvalidInput, c.Column)
		}
		op, ok := operators[strings.ToLower(c.Operator)]
		if !ok {
			return "", nil, fmt.Errorf("%w: operator %q", sms_errors.ErrInvalidInput, c.Operator)
		}
		if op == "IN" {
			v := reflect.ValueOf(c.Value)
			if v.Kind() != reflect.Slice || v.Len() == 0 {
				return "", nil, fmt.Errorf("%w: %s in requires a non-empty list", sms_errors.ErrInvalidInput, c.Column)
			}
		}
		parts = append(parts, fmt.Sprintf("%s %s ?", c.Column, op))
		args = append(args, c.Value)
	}
	return strings.Join(parts, " AND "), args, nil
}

// orderClause returns "<col> <DIR>". Empty col falls back to name; any
// direction other than ASC becomes DESC.
func orderClause(col, dir string) (string, error) {
	if col == "" {
		col = defaultOrderBy
	}
	if !sortColumns[col] {
		return "", fmt.Errorf("%w: sort column %q", sms_errors.ErrInvalidInput, col)
	}
	dir = strings.ToUpper(strings.TrimSpace(dir))
	if dir != "ASC" {
		dir = "DESC"
	}
	return col + " " + dir, nil
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// fillDays returns one point per day in [from, to], taking counts from
// points and zero elsewhere.
func fillDays(points []dayCount, from, to time.Time) []sms.HitPoint {
	counts := make(map[string]int64, len(points))
	for _, p := range points {
		counts[p.Day.UTC().Format(time.DateOnly)] = p.Count
	}
	start := truncateDay(from)
	end := truncateDay(to)
	var out []sms.HitPoint
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, sms.HitPoint{Date: d, Count: counts[d.Format(time.DateOnly)]})
	}
	return out
}

// SeriesDays is the number of daily buckets in [from, to].
func SeriesDays(from, to time.Time) int64 {
	return int64(truncateDay(to).Sub(truncateDay(from))/(24*time.Hour)) + 1
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type dayCount struct {
	Day   time.Time
	Count int64
}
