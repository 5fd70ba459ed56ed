package cache

// Stats holds cache performance metrics.
type Stats struct {
	Keys        int     `json:"keys"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Evictions   int64   `json:"evictions"`
	HitRate     float64 `json:"hit_rate"`
	ApproxBytes int64   `json:"approx_bytes"`
}
