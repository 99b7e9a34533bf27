package jobs

// Merge flattens per-query posting groups into one list, dropping postings
// whose DedupKey was already seen. Groups must be passed in query order:
// the first occurrence of a listing is the one kept.
func Merge(groups ...[]Posting) []Posting {
	total := 0
	for _, g := range groups {
		total += len(g)
	}

	seen := make(map[Key]struct{}, total)
	merged := make([]Posting, 0, total)
	for _, g := range groups {
		for _, p := range g {
			k := DedupKey(p)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, p)
		}
	}
	return merged
}
