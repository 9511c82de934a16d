package pipeline

import (
	"context"
	"errors"
	"fmt"

	"DocVault/internal/crypto"
	"DocVault/internal/model"

	"go.uber.org/zap"
)

// PartWriter сохраняет части одного батча одной транзакцией.
type PartWriter interface {
	InsertParts(ctx context.Context, parts []model.FilePart) error
}

// BatchResult — итог одного батча шифрования.
type BatchResult struct {
	First int
	Last  int
	Parts int
	Err   error
}

// Encryptor шифрует и сохраняет батчи одного файла на общем пуле.
type Encryptor struct {
	group  *Group
	writer PartWriter
	key    *crypto.SecretKey
	fileID int64
	logger *zap.SugaredLogger

	// results дописывается только из Dispatch (одна горутина),
	// каждая задача пишет только в свой элемент.
	results []*BatchResult
}

// NewEncryptor создаёт шифратор для файла fileID.
func NewEncryptor(pool *Pool, writer PartWriter, key *crypto.SecretKey, fileID int64, logger *zap.SugaredLogger) *Encryptor {
	return &Encryptor{
		group:  pool.Group(),
		writer: writer,
		key:    key,
		fileID: fileID,
		logger: logger,
	}
}

// Dispatch ставит батч в пул. Блокируется, пока в пуле нет свободного слота.
func (e *Encryptor) Dispatch(ctx context.Context, b Batch) error {
	res := &BatchResult{First: b.First(), Last: b.Last()}
	e.results = append(e.results, res)

	err := e.group.Go(ctx, func() {
		res.Parts, res.Err = e.storeBatch(ctx, b)
		if res.Err != nil {
			e.logger.Errorw("Batch failed",
				"file_id", e.fileID, "block_range", fmt.Sprintf("%d..%d", res.First, res.Last), "error", res.Err)
			return
		}
		e.logger.Debugw("Batch committed",
			"file_id", e.fileID, "block_range", fmt.Sprintf("%d..%d", res.First, res.Last))
	})
	if err != nil {
		res.Err = err
	}
	return err
}

// Wait ждёт все батчи и возвращает их результаты в порядке отправки.
func (e *Encryptor) Wait() []BatchResult {
	e.group.Wait()
	out := make([]BatchResult, len(e.results))
	for i, r := range e.results {
		out[i] = *r
	}
	return out
}

func (e *Encryptor) storeBatch(ctx context.Context, b Batch) (int, error) {
	parts := make([]model.FilePart, 0, len(b.Blocks))
	for _, blk := range b.Blocks {
		sealed, err := e.key.Seal(blk.Data)
		if err != nil {
			return 0, fmt.Errorf("%w: encrypt block %d: %v", ErrCrypto, blk.Number, err)
		}
		parts = append(parts, model.FilePart{
			FileReferenceID: e.fileID,
			PartNumber:      blk.Number,
			IsEncrypted:     true,
			PartData:        crypto.EncodePart(sealed),
		})
	}
	if err := e.writer.InsertParts(ctx, parts); err != nil {
		return 0, fmt.Errorf("%w: insert parts: %v", ErrStorage, err)
	}
	return len(parts), nil
}

// Persisted возвращает число частей, успешно сохранённых всеми батчами.
func Persisted(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err == nil {
			n += r.Parts
		}
	}
	return n
}

// FailedBatches собирает ошибки батчей в одну ошибку (nil, если сбоев нет).
func FailedBatches(results []BatchResult) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, &BatchError{First: r.First, Last: r.Last, Err: r.Err})
		}
	}
	return errors.Join(errs...)
}
