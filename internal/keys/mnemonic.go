package keys

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/anyproto/go-slip10"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/tyler-smith/go-bip39"
)

// MnemonicEntropyBits is the entropy size for 24-word mnemonics.
const MnemonicEntropyBits = 256

// Solana's BIP-44 coin type.
const solanaCoinType = 501


// ErrInvalidMnemonic is returned for mnemonics failing BIP-39 validation.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// GenerateMnemonic creates a new 24-word BIP-39 mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// FromMnemonic derives the wallet key at m/44'/501'/account'/0', the path used
// by common Solana wallets.
func FromMnemonic(mnemonic, passphrase string, account uint32) (solanago.PrivateKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}

	if account >= 1<<31 {
		return nil, fmt.Errorf("account index %d out of range", account)
	}
	key, err := deriveEd25519(seed, fmt.Sprintf("m/44'/%d'/%d'/0'", solanaCoinType, account))
	if err != nil {
		return nil, err
	}
	return solanago.PrivateKey(key), nil
}

// deriveEd25519 derives the SLIP-0010 ed25519 key at path. Every path
// segment must be hardened.
func deriveEd25519(seed []byte, path string) (ed25519.PrivateKey, error) {
	node, err := slip10.DeriveForPath(path, seed)
	if err != nil {
		return nil, fmt.Errorf("derive %s: %w", path, err)
	}
	_, priv := node.Keypair()
	return priv, nil
}
