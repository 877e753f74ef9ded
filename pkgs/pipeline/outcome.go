package pipeline

// Status classifies how far a submission made it
type Status string

const (
	// StatusSubmitted means the transaction was broadcast and accepted
	StatusSubmitted Status = "submitted"
	// StatusSimulationFailed means the dry run reverted; no nonce was
	// consumed and no signature was requested
	StatusSimulationFailed Status = "simulationFailed"
	// StatusSubmissionFailed means the signature was valid but the
	// broadcast was rejected by the node
	StatusSubmissionFailed Status = "submissionFailed"
	// StatusNotAttempted means validation or transcription failed before
	// any submission work began
	StatusNotAttempted Status = "notAttempted"

	// Debug statuses: the pipeline was halted deliberately before
	// mutating chain state
	StatusSimulated Status = "simulated"
	StatusSigned    Status = "signed"
)

// Result is the immutable outcome of one pipeline run. Created once per
// request and never merged across requests.
type Result struct {
	Status Status `json:"status"`
	TxHash string `json:"txHash,omitempty"`
	// Reason preserves the raw rejection text for later reconciliation
	Reason string `json:"reason,omitempty"`
	// Nonce is set once ASSIGN_NONCE has run
	Nonce *uint64 `json:"nonce,omitempty"`
	// SignedPayload carries the prepared-but-unsent transaction when the
	// pipeline halts after signing
	SignedPayload []byte `json:"signedPayload,omitempty"`
}

// Submitted reports whether the on-chain record was written
func (r *Result) Submitted() bool {
	return r.Status == StatusSubmitted
}
