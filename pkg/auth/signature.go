package auth

import (
	"encoding/hex"
	"fmt"
	"strings"

	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/pactum-labs/pactum-gateway/pkg/chain"
)

const signedMessagePrefix = "\x19Ethereum Signed Message:\n"

// PersonalMessageHash computes the EIP-191 personal-message digest agents
// sign during challenge verification.
func PersonalMessageHash(message string) []byte {
	prefixed := fmt.Sprintf("%s%d%s", signedMessagePrefix, len(message), message)
	return chain.Keccak256([]byte(prefixed))
}

// RecoverWallet extracts the signing wallet from a 65-byte r||s||v personal
// signature over message.
func RecoverWallet(message, signatureHex string) (chain.Address, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signatureHex), "0x"))
	if err != nil {
		return "", fmt.Errorf("decoding signature: %w", err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("signature is %d bytes, want 65", len(sig))
	}

	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return "", fmt.Errorf("invalid recovery id %d", sig[64])
	}

	// RecoverCompact wants the header byte first.
	compact := make([]byte, 65)
	compact[0] = 27 + v
	copy(compact[1:], sig[:64])

	pub, _, err := secpecdsa.RecoverCompact(compact, PersonalMessageHash(message))
	if err != nil {
		return "", fmt.Errorf("recovering public key: %w", err)
	}

	uncompressed := pub.SerializeUncompressed()
	digest := chain.Keccak256(uncompressed[1:])
	return chain.ParseAddress("0x" + hex.EncodeToString(digest[12:]))
}

// VerifyWalletSignature checks that signatureHex over message was produced
// by wallet.
func VerifyWalletSignature(wallet, message, signatureHex string) error {
	expected, err := chain.ParseAddress(wallet)
	if err != nil {
		return fmt.Errorf("invalid wallet: %w", err)
	}
	recovered, err := RecoverWallet(message, signatureHex)
	if err != nil {
		return err
	}
	if recovered != expected {
		return fmt.Errorf("signature does not match wallet")
	}
	return nil
}
