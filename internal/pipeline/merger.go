package pipeline

import (
	"bytes"
	"io"
)

// Merge склеивает части 0..total-1 строго по порядку.
// Если какой-то части нет, возвращает *MissingPartError и не отдаёт данных.
func Merge(plain map[int][]byte, total int) ([]byte, error) {
	var buf bytes.Buffer
	if err := MergeTo(&buf, plain, total); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Complete проверяет, что есть все части 0..total-1, и возвращает их суммарный размер.
func Complete(plain map[int][]byte, total int) (int64, error) {
	var size int64
	for i := 0; i < total; i++ {
		p, ok := plain[i]
		if !ok {
			return 0, &MissingPartError{Part: i, Total: total}
		}
		size += int64(len(p))
	}
	return size, nil
}

// MergeTo пишет части в w по порядку. Полнота проверяется до записи первого байта.
func MergeTo(w io.Writer, plain map[int][]byte, total int) error {
	size, err := Complete(plain, total)
	if err != nil {
		return err
	}
	if b, ok := w.(*bytes.Buffer); ok {
		b.Grow(int(size))
	}
	for i := 0; i < total; i++ {
		if _, err := w.Write(plain[i]); err != nil {
			return err
		}
	}
	return nil
}
