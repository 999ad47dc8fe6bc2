package selection

import (
	"fmt"
	"strings"
)

// Predicate is one named boolean clause
type Predicate struct {
	Name string
	SQL  string
}

// CTE is a named WITH entry. Where clauses are ANDed after Body.
type CTE struct {
	Name  string
	Body  string
	Where []Predicate
	Tail  string // GROUP BY / ORDER BY after the WHERE
}

// Join attaches a CTE or table to the final select
type Join struct {
	Kind  string // "JOIN" or "LEFT JOIN"
	Table string
	Alias string
	On    string
}

// Query is the composed screener statement before rendering.
// Every caller value lives in Args and is referenced as $n.
type Query struct {
	CTEs       []CTE
	Columns    []string
	From       string
	Joins      []Join
	Predicates []Predicate
	OrderBy    []string
	Limit      string
	Offset     string
	Args       []interface{}
}

// Bind appends v to the positional arguments and returns its placeholder
func (q *Query) Bind(v interface{}) string {
	q.Args = append(q.Args, v)
	return fmt.Sprintf("$%d", len(q.Args))
}

// HasCTE reports whether a CTE named name was composed
func (q *Query) HasCTE(name string) bool {
	return q.cte(name) != nil
}

func (q *Query) cte(name string) *CTE {
	for i := range q.CTEs {
		if q.CTEs[i].Name == name {
			return &q.CTEs[i]
		}
	}
	return nil
}

// HasJoin reports whether a join with the given alias was composed
func (q *Query) HasJoin(alias string) bool {
	for _, j := range q.Joins {
		if j.Alias == alias {
			return true
		}
	}
	return false
}

// HasPredicate reports whether a named predicate was composed anywhere
func (q *Query) HasPredicate(name string) bool {
	for _, p := range q.Predicates {
		if p.Name == name {
			return true
		}
	}
	for _, c := range q.CTEs {
		for _, p := range c.Where {
			if p.Name == name {
				return true
			}
		}
	}
	return false
}

// PredicateNames lists every composed predicate, CTE clauses first
func (q *Query) PredicateNames() []string {
	var names []string
	for _, c := range q.CTEs {
		for _, p := range c.Where {
			names = append(names, p.Name)
		}
	}
	for _, p := range q.Predicates {
		names = append(names, p.Name)
	}
	return names
}

// SQL renders the statement once
func (q *Query) SQL() string {
	var b strings.Builder

	if len(q.CTEs) > 0 {
		b.WriteString("WITH ")
		for i, c := range q.CTEs {
			if i > 0 {
				b.WriteString(",\n")
			}
			fmt.Fprintf(&b, "%s AS (\n%s", c.Name, c.Body)
			writeWhere(&b, c.Where)
			if c.Tail != "" {
				b.WriteString("\n" + c.Tail)
			}
			b.WriteString("\n)")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "SELECT %s\nFROM %s", strings.Join(q.Columns, ",\n       "), q.From)
	for _, j := range q.Joins {
		fmt.Fprintf(&b, "\n%s %s %s ON %s", j.Kind, j.Table, j.Alias, j.On)
	}
	writeWhere(&b, q.Predicates)
	if len(q.OrderBy) > 0 {
		b.WriteString("\nORDER BY " + strings.Join(q.OrderBy, ", "))
	}
	if q.Limit != "" {
		b.WriteString("\nLIMIT " + q.Limit)
	}
	if q.Offset != "" {
		b.WriteString(" OFFSET " + q.Offset)
	}
	return b.String()
}

func writeWhere(b *strings.Builder, preds []Predicate) {
	for i, p := range preds {
		if i == 0 {
			b.WriteString("\nWHERE ")
		} else {
			b.WriteString("\n  AND ")
		}
		b.WriteString("(" + p.SQL + ")")
	}
}
