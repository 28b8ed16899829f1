package postgres

import (
	"strconv"
	"strings"
)

// predicate is one filter clause written with "?" placeholders.
type predicate struct {
	clause string
	args   []any
}

// whereBuilder folds typed predicates into a single AND-ed, $n-parameterized
// WHERE clause. Column names are always compile-time constants; user input
// only ever travels as arguments.
type whereBuilder struct {
	preds []predicate
}

// eq adds "column = value" when value is non-zero.
func (w *whereBuilder) eq(column string, value any) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return
		}
	case int64:
		if v == 0 {
			return
		}
	}
	w.preds = append(w.preds, predicate{clause: column + " = ?", args: []any{value}})
}

// contains adds a case-insensitive substring match on any of columns.
func (w *whereBuilder) contains(term string, columns ...string) {
	if term == "" || len(columns) == 0 {
		return
	}
	pattern := "%" + escapeLike(term) + "%"
	parts := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		parts[i] = c + " ILIKE ?"
		args[i] = pattern
	}
	clause := parts[0]
	if len(parts) > 1 {
		clause = "(" + strings.Join(parts, " OR ") + ")"
	}
	w.preds = append(w.preds, predicate{clause: clause, args: args})
}

// build renders the WHERE clause (empty when there are no predicates) and its
// arguments. Placeholders are numbered from $1.
func (w *whereBuilder) build() (string, []any) {
	if len(w.preds) == 0 {
		return "", nil
	}
	var (
		sb   strings.Builder
		args []any
		n    int
	)
	sb.WriteString(" WHERE ")
	for i, p := range w.preds {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		for _, r := range p.clause {
			if r == '?' {
				n++
				sb.WriteByte('$')
				sb.WriteString(strconv.Itoa(n))
				continue
			}
			sb.WriteRune(r)
		}
		args = append(args, p.args...)
	}
	return sb.String(), args
}

// placeholder returns the $n marker for the argument following args.
func placeholder(args []any) string {
	return "$" + strconv.Itoa(len(args)+1)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
