package pipeline

import "runtime"

// Range — полуоткрытый диапазон индексов [Start, End).
type Range struct {
	Start int
	End   int
}

// Len возвращает число элементов в диапазоне.
func (r Range) Len() int { return r.End - r.Start }

// Partition делит total элементов между workers воркерами.
// Размеры отличаются не более чем на 1, большие достаются первым воркерам:
// Partition(22, 5) = [5 5 4 4 4].
func Partition(total, workers int) []int {
	if workers < 1 {
		workers = 1
	}
	if total < 0 {
		total = 0
	}
	q, r := total/workers, total%workers
	sizes := make([]int, workers)
	for i := range sizes {
		sizes[i] = q
		if i < r {
			sizes[i]++
		}
	}
	return sizes
}

// Ranges превращает размеры из Partition в смежные диапазоны по возрастанию.
func Ranges(total, workers int) []Range {
	sizes := Partition(total, workers)
	ranges := make([]Range, len(sizes))
	offset := 0
	for i, n := range sizes {
		ranges[i] = Range{Start: offset, End: offset + n}
		offset += n
	}
	return ranges
}

// WorkerCount возвращает configured, если задано, иначе max(1, NumCPU-1).
func WorkerCount(configured int) int {
	if configured > 0 {
		return configured
	}
	return max(1, runtime.NumCPU()-1)
}
