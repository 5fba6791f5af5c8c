// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package upload

// Backoff is the adaptive batch size of one stream after "payload too
// large" answers. The zero value is inactive; Size is meaningful only
// while Active.
type Backoff struct {
	Active bool
	Size   int
}

// Limit returns the batch size to request: the backoff size while
// active, maxBatchSize otherwise.
func (b Backoff) Limit(maxBatchSize int) int {
	if b.Active {
		return b.Size
	}
	return maxBatchSize
}

// DropsNext reports whether another "too large" answer should drop the
// record instead of shrinking further.
func (b Backoff) DropsNext() bool {
	return b.Active && b.Size == 1
}

// Shrink halves the batch size, starting from the smaller of pending
// and the current limit, rounding up and never going below 1.
func (b *Backoff) Shrink(pending int64, maxBatchSize int) {
	current := int64(b.Limit(maxBatchSize))
	base := min(pending, current)
	b.Active = true
	b.Size = int(max(1, (base+1)/2))
}

// Reset returns to full-size batches.
func (b *Backoff) Reset() {
	*b = Backoff{}
}
