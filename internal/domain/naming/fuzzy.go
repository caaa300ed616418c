package naming

// Levenshtein returns the edit distance between two strings, computed over
// bytes with the classic two-row dynamic program. Names are normalized
// before comparison, so byte distance equals rune distance in practice.
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// DefaultMaxEditDistance bounds how far a fuzzy match may stray.
const DefaultMaxEditDistance = 2

// Match is the result of a candidate scan.
type Match struct {
	Name     string
	Distance int
}

// ClosestMatch scans candidates (already normalized) for the one nearest the
// normalized query. It returns ok=false when no candidate is within maxDist.
// An exact match short-circuits the scan.
//
// The scan is linear; a user's library is bounded by their personal
// vocabulary, so no index structure is warranted.
func ClosestMatch(query string, candidates []string, maxDist int) (Match, bool) {
	if maxDist <= 0 {
		maxDist = DefaultMaxEditDistance
	}

	best := Match{Distance: maxDist + 1}
	for _, cand := range candidates {
		if cand == query {
			return Match{Name: cand, Distance: 0}, true
		}
		// Length difference is a cheap lower bound on the distance.
		if diff := len(cand) - len(query); diff > maxDist || -diff > maxDist {
			continue
		}
		if d := Levenshtein(query, cand); d < best.Distance {
			best = Match{Name: cand, Distance: d}
		}
	}

	if best.Distance > maxDist {
		return Match{}, false
	}
	return best, true
}
