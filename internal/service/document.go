package service

import (
	"context"
	"strings"
	"time"

	"leave-ledger/internal/models"
	"leave-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AttachDocumentInput struct {
	RequestID   string
	UploaderID  uint
	Kind        string
	FileName    string
	ContentType string
}

// DocumentService records references to files kept by the document store.
type DocumentService struct {
	repo   repository.LeaveDocumentRepository
	logger *logrus.Logger
}

func NewDocumentService(repo repository.LeaveDocumentRepository, logger *logrus.Logger) *DocumentService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DocumentService{repo: repo, logger: logger}
}

func (s *DocumentService) Attach(ctx context.Context, in AttachDocumentInput) (*models.LeaveDocument, error) {
	if strings.TrimSpace(in.FileName) == "" {
		return nil, invalidArgument("file name is required")
	}
	if in.Kind == "" {
		in.Kind = models.DocumentKindMedicalCertificate
	}

	doc := &models.LeaveDocument{
		ID:             uuid.NewString(),
		LeaveRequestID: in.RequestID,
		Kind:           in.Kind,
		FileName:       strings.TrimSpace(in.FileName),
		ContentType:    in.ContentType,
		UploadedBy:     in.UploaderID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"request_id":  in.RequestID,
		"document_id": doc.ID,
		"kind":        doc.Kind,
	}).Info("document attached")
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, requestID string) ([]models.LeaveDocument, error) {
	return s.repo.ListByRequest(ctx, requestID)
}

// HasRequiredAttachment reports whether req carries a medical certificate,
// either as the reference given at submission or as an attached document.
func (s *DocumentService) HasRequiredAttachment(ctx context.Context, req *models.LeaveRequest) (bool, error) {
	if strings.TrimSpace(req.MedicalCertificate) != "" {
		return true, nil
	}
	return s.repo.ExistsKind(ctx, req.ID, models.DocumentKindMedicalCertificate)
}
