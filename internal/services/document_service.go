// document_service.go
//
// Auto loan origination service: applications, staff console and dealer portal
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of autofin.
// autofin is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// autofin is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with autofin.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/localnerve/autofin/internal/models"
	"github.com/localnerve/autofin/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxDocumentSize is the upload limit in bytes
const MaxDocumentSize = 10 << 20

// UploadInput describes one uploaded file
type UploadInput struct {
	DocumentType string    `json:"document_type" validate:"omitempty,oneof=drivers_license pay_stub bank_statement proof_of_residence proof_of_insurance other"`
	FileName     string    `json:"file_name" validate:"required,max=255"`
	ContentType  string    `json:"content_type" validate:"required,oneof=application/pdf image/jpeg image/png image/webp"`
	Size         int64     `json:"size" validate:"gt=0,lte=10485760"`
	Body         io.Reader `json:"-" validate:"-"`
}

// DocumentService stores document metadata and objects
type DocumentService struct {
	db      *gorm.DB
	objects storage.ObjectStore
	logger  *zap.Logger
}

// NewDocumentService creates a DocumentService. objects may be nil, in
// which case uploads report ErrUnavailable.
func NewDocumentService(db *gorm.DB, objects storage.ObjectStore, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{db: db, objects: objects, logger: logger}
}

// Upload stores a document on an application owned by userID
func (s *DocumentService) Upload(ctx context.Context, userID, applicationID string, in UploadInput) (*models.Document, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if s.objects == nil {
		return nil, fmt.Errorf("document storage: %w", ErrUnavailable)
	}

	var app models.Application
	err := s.db.WithContext(ctx).Select("id").First(&app, "id = ? AND user_id = ?", applicationID, userID).Error
	if err != nil {
		return nil, notFound(err, "application")
	}

	key := storage.DocumentKey(applicationID, userID, in.FileName)
	url, err := s.objects.Put(ctx, key, in.ContentType, in.Body)
	if err != nil {
		return nil, err
	}

	doc := models.Document{
		ApplicationID: applicationID,
		UserID:        userID,
		DocumentType:  in.DocumentType,
		FileName:      in.FileName,
		ContentType:   in.ContentType,
		Size:          in.Size,
		StorageKey:    key,
		PublicURL:     url,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doc).Error; err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		details := map[string]interface{}{"document_id": doc.ID, "document_type": doc.DocumentType, "file_name": doc.FileName}
		return recordActivity(tx, applicationID, userID, "document_uploaded", details, false, true)
	})
	if err != nil {
		if derr := s.objects.Delete(ctx, key); derr != nil {
			s.logger.Warn("orphaned document object", zap.String("key", key), zap.Error(derr))
		}
		return nil, err
	}

	s.logger.Info("document uploaded",
		zap.String("applicationID", applicationID),
		zap.Uint64("documentID", doc.ID),
		zap.Int64("size", doc.Size))

	return &doc, nil
}

// List returns the documents of an application, newest first
func (s *DocumentService) List(ctx context.Context, applicationID string) ([]models.Document, error) {
	var docs []models.Document
	err := s.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// PurgeExpired deletes documents older than retentionDays. Zero or less
// keeps everything. Objects are removed before their rows so a failed
// object delete is retried on the next run.
func (s *DocumentService) PurgeExpired(ctx context.Context, retentionDays int, now time.Time) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	var docs []models.Document
	if err := s.db.WithContext(ctx).Select("id", "storage_key").Where("created_at < ?", cutoff).Find(&docs).Error; err != nil {
		return 0, fmt.Errorf("find expired documents: %w", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	ids := make([]uint64, len(docs))
	keys := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
		keys[i] = doc.StorageKey
	}

	if s.objects != nil {
		if err := s.objects.Delete(ctx, keys...); err != nil {
			return 0, err
		}
	}

	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Document{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired documents: %w", res.Error)
	}

	s.logger.Info("purged expired documents",
		zap.Int64("count", res.RowsAffected),
		zap.Int("retentionDays", retentionDays))

	return int(res.RowsAffected), nil
}
