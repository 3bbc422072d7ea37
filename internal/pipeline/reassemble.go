package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// ReassembledText is the page-ordered OCR output of the whole document,
// contiguous from page 0 to TotalPages-1 with no gaps or duplicates.
type ReassembledText struct {
	Pages []PageText
}

// FullText concatenates all pages in order, one page per line group. The
// field parser operates on this single string.
func (r *ReassembledText) FullText() string {
	parts := make([]string, len(r.Pages))
	for i, p := range r.Pages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n")
}

// Reassemble merges per-chunk OCR results into one page-ordered sequence.
// Page numbers must already be absolute (see Chunk.Absolute). Any gap,
// duplicate or out-of-range page is a contract violation by the OCR adapter
// and fails hard; partial text is never useful downstream.
//
// The merge is order-independent: any permutation of chunk completion order
// produces the same result.
func Reassemble(totalPages int, pages []PageText) (*ReassembledText, error) {
	if len(pages) != totalPages {
		return nil, &ReassemblyError{
			Reason: fmt.Sprintf("expected %d pages, got %d", totalPages, len(pages)),
		}
	}

	seen := make([]bool, totalPages)
	for _, p := range pages {
		if p.PageNumber < 0 || p.PageNumber >= totalPages {
			return nil, &ReassemblyError{
				Reason: fmt.Sprintf("page number %d out of range [0,%d)", p.PageNumber, totalPages),
			}
		}
		if seen[p.PageNumber] {
			return nil, &ReassemblyError{
				Reason: fmt.Sprintf("duplicate page number %d", p.PageNumber),
			}
		}
		seen[p.PageNumber] = true
	}

	ordered := make([]PageText, len(pages))
	copy(ordered, pages)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].PageNumber < ordered[j].PageNumber
	})

	return &ReassembledText{Pages: ordered}, nil
}
