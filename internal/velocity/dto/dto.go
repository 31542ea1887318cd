package dto

// VelocityBatchResult counts per-product outcomes. Failed is the subset of Skipped
// that errored rather than lacking history.
type VelocityBatchResult struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
