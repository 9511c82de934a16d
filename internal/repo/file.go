package repo

import (
	"context"

	"DocVault/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FinalizeUpdate — поля FileReference, заполняемые по завершении загрузки.
type FinalizeUpdate struct {
	OriginalFileSize int64
	TotalPart        int
	MimeType         string
	UploadStatus     string
	FulltextParsed   bool
}

// PartInfo — состояние одной части без полезной нагрузки.
type PartInfo struct {
	PartNumber  int  `json:"part_number"`
	IsEncrypted bool `json:"is_encrypted"`
}

// FileStats — сводка по документу.
type FileStats struct {
	FileRef               string `json:"file_ref"`
	MimeType              string `json:"media_type"`
	OriginalFileSize      int64  `json:"original_file_size"`
	TotalPart             int    `json:"block_count"`
	EncryptedCount        int64  `json:"encrypted_count"`
	FulltextIndexedCount  int64  `json:"fulltext_indexed_count"`
	PreviewGeneratedCount int64  `json:"preview_generated_count"`
	UploadStatus          string `json:"upload_status"`
}

// FileRepository — контракт хранилища метаданных для пайплайна.
type FileRepository interface {
	CreateReference(ctx context.Context, tenantCode string) (*model.FileReference, error)
	// InsertParts сохраняет все части одной транзакцией.
	InsertParts(ctx context.Context, parts []model.FilePart) error
	FinalizeReference(ctx context.Context, id int64, upd FinalizeUpdate) error
	// GetReference возвращает gorm.ErrRecordNotFound для чужого или неизвестного fileRef.
	GetReference(ctx context.Context, tenantCode, fileRef string) (*model.FileReference, error)
	// ListParts возвращает части по возрастанию номера.
	ListParts(ctx context.Context, fileID int64) ([]model.FilePart, error)
	PartsInfo(ctx context.Context, fileID int64) ([]PartInfo, error)
	Stats(ctx context.Context, tenantCode, fileRef string) (*FileStats, error)
}

type fileRepo struct {
	db *gorm.DB
}

// NewFileRepository создаёт реализацию репозитория файлов.
func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepo{db: db}
}

func (r *fileRepo) CreateReference(ctx context.Context, tenantCode string) (*model.FileReference, error) {
	ref := &model.FileReference{
		FileRef:      uuid.NewString(),
		TenantCode:   tenantCode,
		MimeType:     "application/octet-stream",
		UploadStatus: model.UploadPending,
	}
	if err := r.db.WithContext(ctx).Create(ref).Error; err != nil {
		return nil, err
	}
	return ref, nil
}

func (r *fileRepo) InsertParts(ctx context.Context, parts []model.FilePart) error {
	if len(parts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range parts {
			if err := tx.Create(&parts[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *fileRepo) FinalizeReference(ctx context.Context, id int64, upd FinalizeUpdate) error {
	res := r.db.WithContext(ctx).Model(&model.FileReference{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"original_file_size": upd.OriginalFileSize,
			"total_part":         upd.TotalPart,
			"mime_type":          upd.MimeType,
			"upload_status":      upd.UploadStatus,
			"is_fulltext_parsed": upd.FulltextParsed,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *fileRepo) GetReference(ctx context.Context, tenantCode, fileRef string) (*model.FileReference, error) {
	var ref model.FileReference
	err := r.db.WithContext(ctx).
		Where("tenant_code = ? AND file_ref = ?", tenantCode, fileRef).
		First(&ref).Error
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *fileRepo) ListParts(ctx context.Context, fileID int64) ([]model.FilePart, error) {
	var parts []model.FilePart
	err := r.db.WithContext(ctx).
		Where("file_reference_id = ?", fileID).
		Order("part_number ASC").
		Find(&parts).Error
	return parts, err
}

func (r *fileRepo) PartsInfo(ctx context.Context, fileID int64) ([]PartInfo, error) {
	var info []PartInfo
	err := r.db.WithContext(ctx).Model(&model.FilePart{}).
		Select("part_number", "is_encrypted").
		Where("file_reference_id = ?", fileID).
		Order("part_number ASC").
		Scan(&info).Error
	return info, err
}

func (r *fileRepo) Stats(ctx context.Context, tenantCode, fileRef string) (*FileStats, error) {
	ref, err := r.GetReference(ctx, tenantCode, fileRef)
	if err != nil {
		return nil, err
	}
	var enc int64
	err = r.db.WithContext(ctx).Model(&model.FilePart{}).
		Where("file_reference_id = ? AND is_encrypted = ?", ref.ID, true).
		Count(&enc).Error
	if err != nil {
		return nil, err
	}
	st := &FileStats{
		FileRef:          ref.FileRef,
		MimeType:         ref.MimeType,
		OriginalFileSize: ref.OriginalFileSize,
		TotalPart:        ref.TotalPart,
		EncryptedCount:   enc,
		UploadStatus:     ref.UploadStatus,
	}
	// флаги документа распространяются на все его части
	if ref.IsFulltextParsed {
		st.FulltextIndexedCount = enc
	}
	if ref.IsPreviewGenerated {
		st.PreviewGeneratedCount = enc
	}
	return st, nil
}
