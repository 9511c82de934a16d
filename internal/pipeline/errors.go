package pipeline

import (
	"errors"
	"fmt"
)

// Виды ошибок пайплайна. Конкретные ошибки оборачивают их через %w.
var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrKeyUnavailable    = errors.New("tenant key unavailable")
	ErrStorage           = errors.New("storage error")
	ErrCrypto            = errors.New("crypto error")
	ErrMissingPart       = errors.New("missing part")
	ErrExtraction        = errors.New("extraction error")
	ErrPartiallyStored   = errors.New("file partially stored")
	ErrNotFound          = errors.New("file not found")
	// ErrIncomplete — загрузка не завершена (PENDING) или сохранена не целиком (PARTIAL).
	ErrIncomplete = errors.New("file upload incomplete")
)

// BatchError — сбой одного батча шифрования (диапазон номеров частей включительно).
type BatchError struct {
	First, Last int
	Err         error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch [%d..%d]: %v", e.First, e.Last, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// RangeError — сбой диапазона расшифровки одного воркера.
type RangeError struct {
	Worker      int
	First, Last int
	Err         error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("worker %d range [%d..%d]: %v", e.Worker, e.First, e.Last, e.Err)
}

func (e *RangeError) Unwrap() error { return e.Err }

// MissingPartError — разрыв в последовательности частей при сборке.
type MissingPartError struct {
	Part  int
	Total int
}

func (e *MissingPartError) Error() string {
	return fmt.Sprintf("missing part %d of %d", e.Part, e.Total)
}

func (e *MissingPartError) Is(target error) bool { return target == ErrMissingPart }
