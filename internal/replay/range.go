package replay

import "fmt"

// LineRange is an inclusive range of 1-based instruction lines.
type LineRange struct {
	From uint64
	To   uint64
}

func (r LineRange) Len() uint64 { return r.To - r.From + 1 }

// SplitRange splits [from, to] into consecutive batches of at most batchSize lines.
func SplitRange(from, to, batchSize uint64) ([]LineRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if from == 0 {
		return nil, fmt.Errorf("lines are numbered from 1")
	}
	if to < from {
		return nil, fmt.Errorf("to line must be >= from line")
	}

	ranges := make([]LineRange, 0, (to-from)/batchSize+1)
	for start := from; ; {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, LineRange{From: start, To: end})
		if end == to {
			return ranges, nil
		}
		start = end + 1
	}
}
