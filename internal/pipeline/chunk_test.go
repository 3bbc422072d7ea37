package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanChunks(t *testing.T) {
	tests := []struct {
		name            string
		totalPages      int
		maxPagesPerCall int
		want            []Chunk
	}{
		{
			name:            "single page",
			totalPages:      1,
			maxPagesPerCall: 15,
			want:            []Chunk{{Start: 0, End: 1}},
		},
		{
			name:            "exactly one full chunk",
			totalPages:      15,
			maxPagesPerCall: 15,
			want:            []Chunk{{Start: 0, End: 15}},
		},
		{
			name:            "one page over the limit",
			totalPages:      16,
			maxPagesPerCall: 15,
			want:            []Chunk{{Start: 0, End: 15}, {Start: 15, End: 16}},
		},
		{
			name:            "twenty pages split fifteen five",
			totalPages:      20,
			maxPagesPerCall: 15,
			want:            []Chunk{{Start: 0, End: 15}, {Start: 15, End: 20}},
		},
		{
			name:            "multiple full chunks plus remainder",
			totalPages:      33,
			maxPagesPerCall: 15,
			want:            []Chunk{{Start: 0, End: 15}, {Start: 15, End: 30}, {Start: 30, End: 33}},
		},
		{
			name:            "chunk size one",
			totalPages:      3,
			maxPagesPerCall: 1,
			want:            []Chunk{{Start: 0, End: 1}, {Start: 1, End: 2}, {Start: 2, End: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanChunks(tt.totalPages, tt.maxPagesPerCall)
			require.NoError(t, err)
			assert.Equal(t, tt.totalPages, plan.TotalPages)
			assert.Equal(t, tt.want, plan.Chunks)
		})
	}
}

func TestPlanChunksCoversEveryPageOnce(t *testing.T) {
	for totalPages := 1; totalPages <= 50; totalPages++ {
		for _, maxPages := range []int{1, 3, 15, 50} {
			plan, err := PlanChunks(totalPages, maxPages)
			require.NoError(t, err)

			covered := make([]int, totalPages)
			for _, c := range plan.Chunks {
				require.Less(t, c.Start, c.End, "empty chunk in plan")
				require.LessOrEqual(t, c.Len(), maxPages)
				for p := c.Start; p < c.End; p++ {
					covered[p]++
				}
			}
			for p, n := range covered {
				assert.Equal(t, 1, n, "page %d covered %d times (total=%d, max=%d)",
					p, n, totalPages, maxPages)
			}
		}
	}
}

func TestPlanChunksInvalidInput(t *testing.T) {
	_, err := PlanChunks(0, 15)
	var invalidErr *InvalidDocumentError
	require.ErrorAs(t, err, &invalidErr)

	_, err = PlanChunks(-1, 15)
	require.ErrorAs(t, err, &invalidErr)

	_, err = PlanChunks(10, 0)
	require.Error(t, err)
}

func TestChunkPageSelection(t *testing.T) {
	assert.Equal(t, []string{"1-15"}, Chunk{Start: 0, End: 15}.PageSelection())
	assert.Equal(t, []string{"16-20"}, Chunk{Start: 15, End: 20}.PageSelection())
	assert.Equal(t, []string{"1-1"}, Chunk{Start: 0, End: 1}.PageSelection())
}

func TestChunkAbsolute(t *testing.T) {
	chunk := Chunk{Start: 15, End: 20}
	local := []PageText{
		{PageNumber: 0, Text: "a"},
		{PageNumber: 1, Text: "b"},
		{PageNumber: 4, Text: "e"},
	}

	got := chunk.Absolute(local)

	assert.Equal(t, []PageText{
		{PageNumber: 15, Text: "a"},
		{PageNumber: 16, Text: "b"},
		{PageNumber: 19, Text: "e"},
	}, got)
	// input is not mutated
	assert.Equal(t, 0, local[0].PageNumber)
}
