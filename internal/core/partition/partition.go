package partition

import "hash/fnv"

// Count is the fixed number of logical partitions.
// Never changes after initial deployment: stored partition_id values depend on it.
const Count = 256

// For returns the partition of an aggregate id.
// Same id always maps to the same partition (FNV-32a).
func For(aggregateID string) int {
	h := fnv.New32a()
	h.Write([]byte(aggregateID))
	return int(h.Sum32() % Count)
}
