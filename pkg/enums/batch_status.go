package enums

// BatchStatus is derived from member order statuses, never asserted
// independently. Once a batch reaches a settled status it never regresses.
type BatchStatus string

const (
	BatchStatusOpen      BatchStatus = "open"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusPickedUp  BatchStatus = "picked_up"
	BatchStatusCancelled BatchStatus = "cancelled"
)

func (s BatchStatus) String() string {
	return string(s)
}

// Settled reports whether the batch status is monotonic-final: a settled
// batch is never written back to open.
func (s BatchStatus) Settled() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusPickedUp, BatchStatusCancelled:
		return true
	default:
		return false
	}
}
