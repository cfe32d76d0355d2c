package stub

import (
	"crypto/sha256"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// StaleBlockhash is the blockhash embedded in transactions produced by
// UnsignedTransaction.
var StaleBlockhash = solanago.Hash(sha256.Sum256([]byte("stub-stale-blockhash")))

// UnsignedTransaction serializes a transaction paid by payer with empty
// signature slots, the way a remote builder returns it.
func UnsignedTransaction(payer solanago.PublicKey, instructions ...solanago.Instruction) ([]byte, error) {
	tx, err := solanago.NewTransaction(instructions, StaleBlockhash, solanago.TransactionPayer(payer))
	if err != nil {
		return nil, err
	}
	tx.Signatures = make([]solanago.Signature, tx.Message.Header.NumRequiredSignatures)
	return tx.MarshalBinary()
}

// CreateTokenTransaction returns an unsigned transaction that requires
// exactly the wallet and the mint as signers.
func CreateTokenTransaction(wallet, mint solanago.PublicKey) ([]byte, error) {
	ix := system.NewCreateAccountInstruction(1_461_600, 82, solanago.TokenProgramID, wallet, mint).Build()
	return UnsignedTransaction(wallet, ix)
}
