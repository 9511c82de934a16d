// Package spool временно хранит полное содержимое загрузки на время пайплайна,
// чтобы шаг извлечения текста читал его потоком, а не из памяти.
package spool

import (
	"context"
	"io"
)

// Spool — временное хранилище содержимого одной загрузки.
// Запись идёт только через Write, чтение — после окончания записи.
type Spool interface {
	io.Writer
	// Reader открывает сохранённое содержимое с начала.
	Reader(ctx context.Context) (io.ReadCloser, error)
	// Size возвращает число записанных байт.
	Size() int64
	// Close освобождает ресурсы и удаляет данные.
	Close() error
}

// Spooler создаёт Spool для каждой загрузки.
type Spooler interface {
	Create(ctx context.Context, name string) (Spool, error)
}
