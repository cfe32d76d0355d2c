package submit

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedTransaction is returned when the builder's bytes do not
	// decode as a transaction.
	ErrMalformedTransaction = errors.New("malformed transaction")

	// ErrMissingSigner is returned when the mint or the wallet is not a
	// required signer of the message.
	ErrMissingSigner = errors.New("required signer missing from message")

	// ErrUnexpectedSigner is returned when the message requires a signature
	// from a key other than the mint and the wallet.
	ErrUnexpectedSigner = errors.New("message requires an unknown signer")
)

// SubmissionError is returned when the node refuses the transaction,
// typically because preflight simulation failed.
type SubmissionError struct {
	Err  error
	Logs []string // program logs from the simulation, if any
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("transaction submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// OnChainRejectionError is returned when the transaction landed but its
// execution failed.
type OnChainRejectionError struct {
	Signature string
	Err       interface{} // execution error as reported by the node
}

func (e *OnChainRejectionError) Error() string {
	return fmt.Sprintf("transaction %s rejected on chain: %s", e.Signature, formatTxErr(e.Err))
}

func formatTxErr(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
