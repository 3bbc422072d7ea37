package pipeline

import "fmt"

// Chunk is a contiguous half-open page range [Start, End) submitted as one
// OCR call. Pages are zero-based.
type Chunk struct {
	Start int
	End   int
}

// Len returns the number of pages in the chunk.
func (c Chunk) Len() int { return c.End - c.Start }

// PageSelection returns the chunk as a pdfcpu page-selection expression
// (one-based, inclusive).
func (c Chunk) PageSelection() []string {
	return []string{fmt.Sprintf("%d-%d", c.Start+1, c.End)}
}

// Absolute converts chunk-local page numbering to absolute document
// numbering. It is the single place the offset transform happens; the
// reassembler only ever sees absolute numbers.
func (c Chunk) Absolute(pages []PageText) []PageText {
	out := make([]PageText, len(pages))
	for i, p := range pages {
		out[i] = PageText{PageNumber: c.Start + p.PageNumber, Text: p.Text}
	}
	return out
}

// ChunkPlan is an ordered partition of [0, TotalPages) into chunks.
type ChunkPlan struct {
	TotalPages int
	Chunks     []Chunk
}

// PlanChunks greedily partitions totalPages pages into chunks of at most
// maxPagesPerCall pages each. A document that fits in a single call goes
// through the same loop as a multi-chunk one; there is deliberately no
// short-circuit path that could desynchronize offsets.
func PlanChunks(totalPages, maxPagesPerCall int) (*ChunkPlan, error) {
	if totalPages <= 0 {
		return nil, &InvalidDocumentError{Reason: "document has no pages"}
	}
	if maxPagesPerCall <= 0 {
		return nil, fmt.Errorf("maxPagesPerCall must be positive, got %d", maxPagesPerCall)
	}

	plan := &ChunkPlan{TotalPages: totalPages}
	for start := 0; start < totalPages; start += maxPagesPerCall {
		end := start + maxPagesPerCall
		if end > totalPages {
			end = totalPages
		}
		plan.Chunks = append(plan.Chunks, Chunk{Start: start, End: end})
	}
	return plan, nil
}
