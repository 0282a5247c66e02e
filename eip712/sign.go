package eip712

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"ibetwstbridge/types"
)

// NewNonce returns a fresh random authorization nonce.
func NewNonce() ([32]byte, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, fmt.Errorf("generate nonce: %w", err)
	}
	return nonce, nil
}

// Sign signs digest with key. V is returned in the 27/28 form the contract expects.
func Sign(digest common.Hash, nonce [32]byte, key *ecdsa.PrivateKey) (types.Authorization, error) {
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return types.Authorization{}, fmt.Errorf("sign digest: %w", err)
	}
	return types.Authorization{
		Nonce: hex.EncodeToString(nonce[:]),
		V:     sig[64] + 27,
		R:     hex.EncodeToString(sig[:32]),
		S:     hex.EncodeToString(sig[32:64]),
	}, nil
}

// Recover returns the address that produced auth over digest.
func Recover(digest common.Hash, auth types.Authorization) (common.Address, error) {
	r, s, err := auth.RS()
	if err != nil {
		return common.Address{}, err
	}
	if auth.V < 27 {
		return common.Address{}, fmt.Errorf("%w: v=%d", ErrInvalidValue, auth.V)
	}
	sig := make([]byte, 65)
	copy(sig[:32], r[:])
	copy(sig[32:64], s[:])
	sig[64] = auth.V - 27
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
