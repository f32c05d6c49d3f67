package entity

// Outcome is what happened to a candidate during a run.
type Outcome string

const (
	OutcomeSaved     Outcome = "saved"
	OutcomeDuplicate Outcome = "duplicate_skipped"
	OutcomeNoData    Outcome = "no_data"
	OutcomeFailed    Outcome = "failed"
)
