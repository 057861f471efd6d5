// Package similarity provides normalized edit distance scoring for fuzzy
// location matching.
package similarity

// Similarity returns the normalized Levenshtein similarity between a and b
// as a value in [0, 1]. Two empty strings are identical (1.0); if exactly
// one is empty there is nothing to compare against (0.0). Pure and
// deterministic; no state survives a call.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(len(a), len(b))
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	return float64(maxLen-Distance(a, b)) / float64(maxLen)
}

// Distance returns the Levenshtein edit distance between a and b with unit
// costs for insertion, deletion and substitution. Uses two rolling rows
// instead of the full table.
func Distance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}
