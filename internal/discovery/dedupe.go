package discovery

// Deduplicate collapses candidates sharing the same (email, company) key,
// keeping the first-seen entry per key. Output order follows first
// appearance. The reduction is pure and idempotent.
func Deduplicate(candidates []CandidateLead) []CandidateLead {
	if len(candidates) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(candidates))
	out := make([]CandidateLead, 0, len(candidates))
	for _, cand := range candidates {
		key := cand.Email + "|" + cand.Company
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cand)
	}
	return out
}
