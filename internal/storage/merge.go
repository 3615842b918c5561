package storage

import "slices"

// Merge добавляет к existing записи из incoming, которых там ещё нет.
// Дубли внутри incoming тоже отбрасываются. Порядок сохраняется.
func Merge(existing, incoming []ConnectionRecord) ([]ConnectionRecord, MergeResult) {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.ProfileURL] = struct{}{}
	}

	merged := slices.Clone(existing)
	var result MergeResult
	for _, r := range incoming {
		if _, dup := seen[r.ProfileURL]; dup {
			result.Duplicates++
			continue
		}
		seen[r.ProfileURL] = struct{}{}
		merged = append(merged, r)
		result.Added++
	}
	return merged, result
}
