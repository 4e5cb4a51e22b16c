package utils

// SlotRange is an inclusive range of absolute slots.
type SlotRange struct {
	Start uint64
	End   uint64
}

// ChunkRange splits the half-open range [start, end) into inclusive
// sub-ranges of at most step elements.
func ChunkRange(start, end, step uint64) []SlotRange {
	if step == 0 || end <= start {
		return nil
	}
	chunks := make([]SlotRange, 0, (end-start+step-1)/step)
	for s := start; s < end; s += step {
		e := s + step - 1
		if e > end-1 {
			e = end - 1
		}
		chunks = append(chunks, SlotRange{Start: s, End: e})
	}
	return chunks
}

// ChunkStrings splits keys into consecutive batches of at most size items.
func ChunkStrings(keys []string, size int) [][]string {
	if size <= 0 || len(keys) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(keys)+size-1)/size)
	for i := 0; i < len(keys); i += size {
		j := i + size
		if j > len(keys) {
			j = len(keys)
		}
		batches = append(batches, keys[i:j])
	}
	return batches
}
