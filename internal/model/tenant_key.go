package model

import "time"

// TenantKey — ключ тенанта, зашифрованный мастер-ключом сервера (KEK).
type TenantKey struct {
	TenantCode  string `gorm:"primaryKey"`
	CipheredKey []byte `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
