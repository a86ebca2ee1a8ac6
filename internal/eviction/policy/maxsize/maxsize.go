package maxsize

// MiB is the unit quotas are expressed in.
const MiB = 1024 * 1024

// DefaultMB is the quota applied when a request does not supply one.
const DefaultMB = 1024

// Policy triggers eviction when a tenant directory strictly exceeds its quota.
type Policy struct {
	MaxBytes int64
}

// FromMB converts a quota in mebibytes to a Policy.
func FromMB(mb float64) *Policy {
	return &Policy{MaxBytes: int64(mb * MiB)}
}

func (m *Policy) BytesToFree(currentSize int64) (int64, error) {
	if currentSize > m.MaxBytes {
		return currentSize - m.MaxBytes, nil
	}
	return 0, nil
}
