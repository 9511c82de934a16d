package pipeline

import (
	"context"
	"fmt"
	"sort"

	"DocVault/internal/crypto"

	"go.uber.org/zap"
)

// RangeResult — итог расшифровки диапазона одного воркера.
type RangeResult struct {
	Worker int
	First  int
	Last   int
	Plain  map[int][]byte
	Err    error
}

// Decryptor расшифровывает части файла параллельно на общем пуле.
type Decryptor struct {
	pool    *Pool
	workers int
	logger  *zap.SugaredLogger
}

// NewDecryptor создаёт расшифровщик; workers <= 0 означает max(1, NumCPU-1).
func NewDecryptor(pool *Pool, workers int, logger *zap.SugaredLogger) *Decryptor {
	return &Decryptor{pool: pool, workers: WorkerCount(workers), logger: logger}
}

// DecryptAll делит части на смежные диапазоны и расшифровывает каждый отдельной задачей.
// Возвращает объединение успешных диапазонов и результаты всех диапазонов;
// сбой любой части диапазона проваливает весь диапазон.
func (d *Decryptor) DecryptAll(ctx context.Context, key *crypto.SecretKey, parts map[int]string) (map[int][]byte, []RangeResult) {
	numbers := make([]int, 0, len(parts))
	for n := range parts {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	ranges := Ranges(len(numbers), d.workers)
	results := make([]RangeResult, 0, len(ranges))
	for w, rg := range ranges {
		if rg.Len() == 0 {
			continue
		}
		results = append(results, RangeResult{
			Worker: w,
			First:  numbers[rg.Start],
			Last:   numbers[rg.End-1],
		})
	}

	g := d.pool.Group()
	for i := range results {
		res := &results[i]
		slice := numbers[ranges[res.Worker].Start:ranges[res.Worker].End]
		d.logger.Debugw("Prepare decrypt range",
			"worker", res.Worker, "parts", len(slice), "first", res.First, "last", res.Last)
		err := g.Go(ctx, func() {
			res.Plain, res.Err = decryptRange(key, slice, parts)
		})
		if err != nil {
			res.Err = err
		}
	}
	g.Wait()

	plain := make(map[int][]byte, len(parts))
	for i := range results {
		res := &results[i]
		if res.Err != nil {
			res.Err = &RangeError{Worker: res.Worker, First: res.First, Last: res.Last, Err: res.Err}
			d.logger.Errorw("Decrypt range failed", "worker", res.Worker, "error", res.Err)
			continue
		}
		for n, b := range res.Plain {
			plain[n] = b
		}
	}
	return plain, results
}

func decryptRange(key *crypto.SecretKey, numbers []int, parts map[int]string) (map[int][]byte, error) {
	out := make(map[int][]byte, len(numbers))
	for _, n := range numbers {
		sealed, err := crypto.DecodePart(parts[n])
		if err != nil {
			return nil, fmt.Errorf("%w: decode part %d: %v", ErrCrypto, n, err)
		}
		plain, err := key.Open(sealed)
		if err != nil {
			return nil, fmt.Errorf("%w: decrypt part %d: %v", ErrCrypto, n, err)
		}
		out[n] = plain
	}
	return out, nil
}

// FailedRanges возвращает первую ошибку диапазона или nil.
func FailedRanges(results []RangeResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
