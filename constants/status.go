package constants

// RecordStatus is the canonical status of an assembled document record.
type RecordStatus string

// Stable values (store these exact strings in DB).
const (
	RecordStatusOK     RecordStatus = "OK"     // extracted (possibly via fallback)
	RecordStatusFailed RecordStatus = "FAILED" // source adapter could not read the file
)
