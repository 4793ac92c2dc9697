package facematch

import "math"

// FindBestMatch scans every candidate and returns the closest one.
// Candidates whose descriptor length differs from the query are skipped.
// The boolean is false when no candidate could be compared.
func FindBestMatch(query Descriptor, candidates []Candidate, threshold float64) (Match, bool) {
	best := Match{Distance: math.Inf(1)}
	found := false

	for _, c := range candidates {
		if len(c.Descriptor) != len(query) {
			continue
		}
		d, err := EuclideanDistance(query, c.Descriptor)
		if err != nil {
			continue
		}
		if d < best.Distance {
			best = Match{UserID: c.UserID, Distance: d}
			found = true
		}
	}

	if !found {
		return Match{}, false
	}
	best.IsMatch = best.Distance < threshold
	return best, true
}

// Accept applies the threshold to a match produced elsewhere (SQL or index search).
func Accept(m Match, threshold float64) Match {
	m.IsMatch = m.Distance < threshold
	return m
}
