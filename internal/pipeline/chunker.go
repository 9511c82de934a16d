package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
)

const (
	// DefaultBlockSize — размер блока по умолчанию (1 MiB).
	DefaultBlockSize = 1 << 20
	// DefaultBatchSize — число блоков в батче по умолчанию.
	DefaultBatchSize = 10
)

// Block — непрерывный фрагмент исходного содержимого.
type Block struct {
	Number int
	Data   []byte
}

// Batch — группа блоков, которая шифруется и коммитится одной транзакцией.
// Номера блоков внутри батча идут подряд.
type Batch struct {
	Blocks []Block
}

// First возвращает номер первого блока батча.
func (b Batch) First() int {
	if len(b.Blocks) == 0 {
		return -1
	}
	return b.Blocks[0].Number
}

// Last возвращает номер последнего блока батча.
func (b Batch) Last() int {
	if len(b.Blocks) == 0 {
		return -1
	}
	return b.Blocks[len(b.Blocks)-1].Number
}

// Summary — итог нарезки потока.
type Summary struct {
	Blocks int
	Size   int64
}

// Chunker режет поток неизвестной длины на блоки фиксированного размера.
type Chunker struct {
	BlockSize int
	BatchSize int
}

// NewChunker создаёт Chunker, подставляя значения по умолчанию для нулевых размеров.
func NewChunker(blockSize, batchSize int) Chunker {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return Chunker{BlockSize: blockSize, BatchSize: batchSize}
}

// Run читает r до конца и передаёт заполненные батчи в dispatch.
// Хвостовой неполный батч отправляется в конце потока.
// При ошибке чтения уже прочитанные блоки всё равно отправляются,
// а ошибка возвращается вызывающему.
func (c Chunker) Run(ctx context.Context, r io.Reader, dispatch func(Batch) error) (Summary, error) {
	c = NewChunker(c.BlockSize, c.BatchSize)

	var (
		sum     Summary
		pending = make([]Block, 0, c.BatchSize)
		readErr error
	)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		b := Batch{Blocks: pending}
		pending = make([]Block, 0, c.BatchSize)
		return dispatch(b)
	}

	for {
		if err := ctx.Err(); err != nil {
			readErr = err
			break
		}
		buf := make([]byte, c.BlockSize)
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			pending = append(pending, Block{Number: sum.Blocks, Data: buf[:n:n]})
			sum.Blocks++
			sum.Size += int64(n)
			if len(pending) >= c.BatchSize {
				if derr := flush(); derr != nil {
					return sum, derr
				}
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			readErr = fmt.Errorf("read block %d: %w", sum.Blocks, err)
			break
		}
	}

	if err := flush(); err != nil {
		return sum, err
	}
	return sum, readErr
}
