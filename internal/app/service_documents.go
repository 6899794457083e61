package app

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/blob"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/rbac"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/store"
)

const genericContentType = "application/octet-stream"

// AttachDocument uploads the file and then records it against the case. The
// two steps are not atomic: when the record fails the object stays in the
// bucket and is only logged.
func (s *Service) AttachDocument(ctx context.Context, identity *rbac.Identity, caseID string, data []byte, fileName, mimeType string) (store.CaseDocument, error) {
	if identity == nil {
		return store.CaseDocument{}, ErrPolicyDenied
	}
	fileName = strings.TrimSpace(fileName)
	if len(data) == 0 {
		return store.CaseDocument{}, validationError("file", "file is empty")
	}
	if fileName == "" {
		return store.CaseDocument{}, validationError("name", "file name is required")
	}
	if s.blob == nil {
		return store.CaseDocument{}, fmt.Errorf("%w: object storage not configured", ErrUpload)
	}
	if _, err := s.store.GetCase(ctx, caseID); err != nil {
		return store.CaseDocument{}, err
	}

	contentType := strings.TrimSpace(mimeType)
	if contentType == "" || contentType == genericContentType {
		contentType = mimetype.Detect(data).String()
	}

	id := uuid.NewString()
	entry := log.WithFields(log.Fields{"operation": "attach_document", "case_id": caseID, "document_id": id})
	objectPath := blob.ObjectPath(caseID, id, fileName)
	url, err := s.blob.Upload(ctx, data, objectPath, contentType)
	if err != nil {
		entry.WithError(err).Warn("upload failed")
		return store.CaseDocument{}, fmt.Errorf("%w: %v", ErrUpload, err)
	}

	doc, err := s.store.InsertCaseDocument(ctx, store.CaseDocument{
		ID:        id,
		CaseID:    caseID,
		Name:      fileName,
		URL:       url,
		FileType:  fileType(contentType),
		CreatedAt: s.Now().UTC(),
	})
	if err != nil {
		entry.WithField("object", objectPath).WithError(err).Error("document metadata not saved, object orphaned")
		return store.CaseDocument{}, err
	}
	return doc, nil
}

func (s *Service) ListCaseDocuments(ctx context.Context, caseID string) ([]store.CaseDocument, error) {
	if _, err := s.store.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return s.store.ListCaseDocuments(ctx, caseID)
}

// fileType strips parameters from a media type, leaving major/subtype.
func fileType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return genericContentType
	}
	return mediaType
}
