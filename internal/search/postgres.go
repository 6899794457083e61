package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Postgres searches cases and contacts with ILIKE. Case numbers and phone
// numbers are matched as substrings, which a stemming text search would miss.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Healthy always returns true: without Postgres nothing else works either.
func (p *Postgres) Healthy() bool {
	return true
}

func (p *Postgres) Search(ctx context.Context, q Query) ([]Result, int, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, 0, nil
	}

	var subQueries []string
	if q.wants(ResultCase) {
		subQueries = append(subQueries, `
			SELECT 'case'::text AS type, id, title, TRIM(number || ' ' || client_name) AS snippet, created_at AS sort_key
			FROM cases
			WHERE number ILIKE $1 OR title ILIKE $1 OR client_name ILIKE $1 OR opposing_party ILIKE $1`)
	}
	if q.wants(ResultContact) {
		subQueries = append(subQueries, `
			SELECT 'contact'::text AS type, id, name AS title, COALESCE(NULLIF(email, ''), phone) AS snippet, NULL::timestamptz AS sort_key
			FROM contacts
			WHERE name ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1`)
	}
	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	union := strings.Join(subQueries, " UNION ALL ")
	pattern := "%" + escapeLike(text) + "%"

	var total int
	if err := p.db.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM (%s) sub", union), pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("search count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`SELECT type, id, title, snippet
		FROM (%s) sub
		ORDER BY type, sort_key DESC NULLS LAST, title
		LIMIT %d OFFSET %d`, union, q.limit(), q.offset()), pattern)
	if err != nil {
		return nil, 0, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("search scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns everything searchable, for a full reindex.
func (p *Postgres) LoadAllRecords(ctx context.Context) ([]CaseRecord, []ContactRecord, error) {
	caseRows, err := p.db.QueryContext(ctx, `SELECT id, number, title, client_name, opposing_party, status FROM cases`)
	if err != nil {
		return nil, nil, fmt.Errorf("load cases: %w", err)
	}
	defer caseRows.Close()

	cases := make([]CaseRecord, 0)
	for caseRows.Next() {
		var c CaseRecord
		if err := caseRows.Scan(&c.ID, &c.Number, &c.Title, &c.ClientName, &c.OpposingParty, &c.Status); err != nil {
			return nil, nil, fmt.Errorf("scan case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := caseRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate cases: %w", err)
	}

	contactRows, err := p.db.QueryContext(ctx, `SELECT id, name, type, email, phone FROM contacts`)
	if err != nil {
		return nil, nil, fmt.Errorf("load contacts: %w", err)
	}
	defer contactRows.Close()

	contacts := make([]ContactRecord, 0)
	for contactRows.Next() {
		var c ContactRecord
		if err := contactRows.Scan(&c.ID, &c.Name, &c.Type, &c.Email, &c.Phone); err != nil {
			return nil, nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := contactRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return cases, contacts, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
