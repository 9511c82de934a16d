package model

import "time"

// Статусы загрузки FileReference.
const (
	UploadPending  = "PENDING"
	UploadComplete = "COMPLETE"
	UploadPartial  = "PARTIAL"
)

// FileReference — серверная модель загруженного документа одного тенанта.
type FileReference struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	FileRef    string `gorm:"not null;uniqueIndex;size:36"`
	TenantCode string `gorm:"not null;index"`

	MimeType         string
	Checksum         *string // пока не вычисляется
	OriginalFileSize int64 `gorm:"not null;default:0"`
	TotalPart        int   `gorm:"not null;default:0"`

	IsFulltextParsed   bool   `gorm:"not null;default:false"`
	IsPreviewGenerated bool   `gorm:"not null;default:false"`
	UploadStatus       string `gorm:"not null;default:PENDING"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FilePart — один зашифрованный блок документа.
// Пара (FileReferenceID, PartNumber) уникальна.
type FilePart struct {
	ID              int64 `gorm:"primaryKey;autoIncrement"`
	FileReferenceID int64 `gorm:"not null;uniqueIndex:idx_file_part_number"`
	PartNumber      int   `gorm:"not null;uniqueIndex:idx_file_part_number"`

	FileReference *FileReference `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	IsEncrypted bool   `gorm:"not null;default:false"`
	PartData    string `gorm:"not null"` // base64 URL-safe: nonce||ciphertext
}
