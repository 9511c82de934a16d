package repo

import (
	"context"

	"DocVault/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantKeyRepository — доступ к зашифрованным ключам тенантов.
type TenantKeyRepository interface {
	// CreateIfAbsent пытается создать запись. Если ключ уже есть — ничего не делает.
	// Возвращает created=true если запись была создана в этой операции.
	CreateIfAbsent(ctx context.Context, tenantCode string, ciphered []byte) (created bool, err error)
	// Get возвращает ключ тенанта или gorm.ErrRecordNotFound.
	Get(ctx context.Context, tenantCode string) (*model.TenantKey, error)
	// ListCodes возвращает коды всех тенантов, у которых есть ключ.
	ListCodes(ctx context.Context) ([]string, error)
}

type tenantKeyRepo struct {
	db *gorm.DB
}

// NewTenantKeyRepository создаёт реализацию репозитория ключей.
func NewTenantKeyRepository(db *gorm.DB) TenantKeyRepository {
	return &tenantKeyRepo{db: db}
}

func (r *tenantKeyRepo) CreateIfAbsent(ctx context.Context, tenantCode string, ciphered []byte) (bool, error) {
	k := &model.TenantKey{TenantCode: tenantCode, CipheredKey: ciphered}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_code"}},
		DoNothing: true,
	}).Create(k)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *tenantKeyRepo) Get(ctx context.Context, tenantCode string) (*model.TenantKey, error) {
	var k model.TenantKey
	if err := r.db.WithContext(ctx).Where("tenant_code = ?", tenantCode).First(&k).Error; err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *tenantKeyRepo) ListCodes(ctx context.Context) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).Model(&model.TenantKey{}).Order("tenant_code").Pluck("tenant_code", &codes).Error
	return codes, err
}
