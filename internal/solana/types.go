package solana

// Commitment is a Solana commitment level.
type Commitment string

// Commitment levels, ordered from weakest to strongest.
const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// rank orders commitment levels so a status can be compared against a target.
func (c Commitment) rank() int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	default:
		return 0
	}
}

// Satisfies reports whether a status at level c meets the target level.
func (c Commitment) Satisfies(target Commitment) bool {
	return c.rank() > 0 && c.rank() >= target.rank()
}

// ConfirmRequest identifies a submitted transaction and the validity window of
// the blockhash it was signed with.
type ConfirmRequest struct {
	Signature            string
	Blockhash            string
	LastValidBlockHeight uint64
}

// ConfirmResult is the outcome of a confirmation wait.
// Err carries the on-chain execution error, nil on success.
type ConfirmResult struct {
	Slot uint64
	Err  interface{}
}
