package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// feedbackDupThreshold is the normalized edit distance at or below which
// two feedback strings are treated as duplicates. Providers frequently
// reword the same remark across chunks.
const feedbackDupThreshold = 0.15

// Aggregate combines successful per-chunk results into a single
// document-level result, weighted by each chunk's word count. Chunk
// errors that did not prevent an overall result are retained as
// diagnostics; if no chunk succeeded, a TotalFailureError carrying the
// full error list is returned instead.
//
// Aggregate is a pure function: the same inputs always produce the same
// output. The caller stamps CompletedAt and Passed.
func Aggregate(results []ChunkResult, errs []ChunkError) (*AggregateResult, error) {
	if len(results) == 0 {
		return nil, NewTotalFailure(errs)
	}

	sorted := make([]ChunkResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	var humanSum, machineSum, weightSum float64
	var totalWords int
	for _, r := range sorted {
		w := float64(r.WordCount)
		if w < 0 {
			w = 0
		}
		humanSum += r.HumanScore * w
		machineSum += r.MachineScore * w
		weightSum += w
		if r.WordCount > 0 {
			totalWords += r.WordCount
		}
	}

	agg := &AggregateResult{
		WordCount:    totalWords,
		ChunksScored: len(sorted),
		ChunksFailed: len(errs),
		Diagnostics:  errs,
	}

	if weightSum > 0 {
		agg.HumanScore = humanSum / weightSum
		agg.MachineScore = machineSum / weightSum
	} else {
		// Provider reported no word counts; fall back to an unweighted mean.
		for _, r := range sorted {
			agg.HumanScore += r.HumanScore
			agg.MachineScore += r.MachineScore
		}
		agg.HumanScore /= float64(len(sorted))
		agg.MachineScore /= float64(len(sorted))
	}

	agg.Feedback = combineFeedback(sorted)
	return agg, nil
}

// combineFeedback deduplicates non-empty feedback strings across chunks,
// preserving first-occurrence order. Near-identical strings collapse via
// edit distance. When more than one chunk was scored, a note about the
// split is prepended so the origin of the combined text is clear.
func combineFeedback(results []ChunkResult) string {
	var kept []string
	for _, r := range results {
		fb := strings.TrimSpace(r.Feedback)
		if fb == "" {
			continue
		}
		if isDuplicateFeedback(fb, kept) {
			continue
		}
		kept = append(kept, fb)
	}
	if len(kept) == 0 {
		return ""
	}
	if len(results) > 1 {
		note := fmt.Sprintf(
			"Note: the document was split into %d parts for scoring; the feedback below was combined across parts.",
			len(results))
		kept = append([]string{note}, kept...)
	}
	return strings.Join(kept, "\n\n")
}

func isDuplicateFeedback(candidate string, kept []string) bool {
	for _, k := range kept {
		if strings.EqualFold(candidate, k) {
			return true
		}
		longest := len(candidate)
		if len(k) > longest {
			longest = len(k)
		}
		if longest == 0 {
			return true
		}
		dist := levenshtein.ComputeDistance(candidate, k)
		if float64(dist)/float64(longest) <= feedbackDupThreshold {
			return true
		}
	}
	return false
}
