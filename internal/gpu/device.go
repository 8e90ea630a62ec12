// Package gpu abstracts the compute device whose memory the service
// budgets. The tracker only needs capacity, current usage, and a way to
// drop cached allocations after unloads.
package gpu

// Device reports memory facts about the compute device.
type Device interface {
	// Name identifies the device ("cpu", "cuda", ...).
	Name() string
	// TotalCapacityMB is the device memory size. Zero means the device
	// cannot report one and callers fall back to configured capacity.
	TotalCapacityMB() float64
	// UsedMB is the memory currently allocated on the device. Only
	// meaningful when TotalCapacityMB is non-zero.
	UsedMB() float64
	// ClearCache releases allocator caches after models are dropped.
	ClearCache()
}

// Null is a device with no observable memory. Used when the service runs
// without a probeable accelerator; the tracker then accounts usage itself.
type Null struct {
	DeviceName string
}

func (n Null) Name() string {
	if n.DeviceName == "" {
		return "cpu"
	}
	return n.DeviceName
}

func (Null) TotalCapacityMB() float64 { return 0 }
func (Null) UsedMB() float64          { return 0 }
func (Null) ClearCache()              {}
