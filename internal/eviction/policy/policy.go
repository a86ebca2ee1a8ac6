package policy

// Policy decides how many bytes a tenant directory must shed.
type Policy interface {
	// BytesToFree returns the number of bytes that should be evicted from a
	// directory currently holding currentSize bytes.
	// Returns 0 if no eviction is needed.
	BytesToFree(currentSize int64) (int64, error)
}

// Max returns the largest BytesToFree across policies. A policy that fails
// is reported through onErr and skipped.
func Max(policies []Policy, currentSize int64, onErr func(Policy, error)) int64 {
	var maxToFree int64
	for _, p := range policies {
		toFree, err := p.BytesToFree(currentSize)
		if err != nil {
			if onErr != nil {
				onErr(p, err)
			}
			continue
		}
		if toFree > maxToFree {
			maxToFree = toFree
		}
	}
	return maxToFree
}
