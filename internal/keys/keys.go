package keys

import (
	"context"
	"errors"
	"fmt"

	"DocVault/internal/crypto"
	"DocVault/internal/pipeline"
	"DocVault/internal/repo"

	"go.uber.org/zap"
)

// kekSalt — соль для вывода мастер-ключа из секрета конфигурации.
var kekSalt = []byte("docvault/kek/v1")

// Fetcher возвращает ключ тенанта для одного запуска пайплайна.
type Fetcher interface {
	Fetch(ctx context.Context, tenantCode string) (*crypto.SecretKey, error)
}

// Service хранит ключи тенантов, зашифрованные мастер-ключом (KEK).
type Service struct {
	repo   repo.TenantKeyRepository
	kek    *crypto.SecretKey
	logger *zap.SugaredLogger
}

// NewService выводит KEK из masterSecret. Пустой секрет — ошибка.
func NewService(r repo.TenantKeyRepository, masterSecret string, logger *zap.SugaredLogger) (*Service, error) {
	if masterSecret == "" {
		return nil, errors.New("empty master secret")
	}
	kek, err := crypto.NewSecretKey(crypto.DeriveKey([]byte(masterSecret), kekSalt))
	if err != nil {
		return nil, err
	}
	return &Service{repo: r, kek: kek, logger: logger}, nil
}

// Fetch загружает и расшифровывает ключ тенанта.
// Любой сбой оборачивается в pipeline.ErrKeyUnavailable.
func (s *Service) Fetch(ctx context.Context, tenantCode string) (*crypto.SecretKey, error) {
	if tenantCode == "" {
		return nil, fmt.Errorf("%w: empty tenant code", pipeline.ErrKeyUnavailable)
	}
	rec, err := s.repo.Get(ctx, tenantCode)
	if err != nil {
		s.logger.Warnw("Cannot read tenant key", "tenant", tenantCode, "error", err)
		return nil, fmt.Errorf("%w: %v", pipeline.ErrKeyUnavailable, err)
	}
	key, err := crypto.Unwrap(s.kek, rec.CipheredKey)
	if err != nil {
		s.logger.Errorw("Cannot unwrap tenant key", "tenant", tenantCode, "error", err)
		return nil, fmt.Errorf("%w: unwrap: %v", pipeline.ErrKeyUnavailable, err)
	}
	return key, nil
}

// Provision создаёт ключ тенанта, если его ещё нет.
func (s *Service) Provision(ctx context.Context, tenantCode string) (bool, error) {
	if tenantCode == "" {
		return false, errors.New("empty tenant code")
	}
	raw, err := crypto.GenerateKey()
	if err != nil {
		return false, err
	}
	defer func() {
		for i := range raw {
			raw[i] = 0
		}
	}()
	wrapped, err := crypto.Wrap(s.kek, raw)
	if err != nil {
		return false, err
	}
	created, err := s.repo.CreateIfAbsent(ctx, tenantCode, wrapped)
	if err != nil {
		return false, fmt.Errorf("%w: %v", pipeline.ErrStorage, err)
	}
	if created {
		s.logger.Infow("Tenant key created", "tenant", tenantCode)
	}
	return created, nil
}

// List возвращает коды тенантов с ключами (без самих ключей).
func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.repo.ListCodes(ctx)
}
