package search

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// indexer is the write side of the Meilisearch backend.
type indexer interface {
	Searcher
	IndexCases(records []CaseRecord) error
	IndexContacts(records []ContactRecord) error
}

// Service tries Meilisearch first and falls back to Postgres.
type Service struct {
	primary  indexer
	fallback Searcher
	// async runs fire-and-forget index writes; tests swap it for a direct call.
	async func(func())
}

// NewService builds the facade. meili may be nil when Meilisearch is not
// configured.
func NewService(meili *Meili, pg *Postgres) *Service {
	s := &Service{async: func(fn func()) { go fn() }}
	if meili != nil {
		s.primary = meili
	}
	if pg != nil {
		s.fallback = pg
	}
	return s
}

func (s *Service) primaryReady() bool {
	return s.primary != nil && s.primary.Healthy()
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	entry := log.WithField("operation", "search")
	if s.primaryReady() {
		results, total, err := s.primary.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		entry.WithError(err).Warn("meilisearch failed, falling back to postgres")
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		entry.WithError(err).Error("postgres search failed")
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

func (s *Service) IndexCase(record CaseRecord) {
	if !s.primaryReady() {
		return
	}
	s.async(func() {
		if err := s.primary.IndexCases([]CaseRecord{record}); err != nil {
			log.WithField("case_id", record.ID).WithError(err).Warn("index case")
		}
	})
}

func (s *Service) IndexContact(record ContactRecord) {
	if !s.primaryReady() {
		return
	}
	s.async(func() {
		if err := s.primary.IndexContacts([]ContactRecord{record}); err != nil {
			log.WithField("contact_id", record.ID).WithError(err).Warn("index contact")
		}
	})
}

// ReindexAllFromPG pushes every case and contact into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	pg, ok := s.fallback.(*Postgres)
	if !s.primaryReady() || !ok {
		return
	}
	cases, contacts, err := pg.LoadAllRecords(ctx)
	if err != nil {
		log.WithError(err).Warn("reindex load failed")
		return
	}
	if err := s.primary.IndexCases(cases); err != nil {
		log.WithError(err).Warn("reindex cases")
	}
	if err := s.primary.IndexContacts(contacts); err != nil {
		log.WithError(err).Warn("reindex contacts")
	}
	log.WithFields(log.Fields{"cases": len(cases), "contacts": len(contacts)}).Info("search index rebuilt")
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
