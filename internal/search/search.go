package search

import "context"

type ResultType string

const (
	ResultCase    ResultType = "case"
	ResultContact ResultType = "contact"
)

// Result is a single hit. Title is the case title or contact name; Snippet
// carries the secondary line shown under it.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
}

type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

type CaseRecord struct {
	ID            string `json:"id"`
	Number        string `json:"number"`
	Title         string `json:"title"`
	ClientName    string `json:"clientName"`
	OpposingParty string `json:"opposingParty"`
	Status        string `json:"status"`
}

type ContactRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (q Query) limit() int {
	if q.Limit <= 0 || q.Limit > 100 {
		return 20
	}
	return q.Limit
}

func (q Query) offset() int {
	if q.Offset < 0 {
		return 0
	}
	return q.Offset
}

func (q Query) wants(t ResultType) bool {
	return q.FilterType == "" || q.FilterType == t
}
