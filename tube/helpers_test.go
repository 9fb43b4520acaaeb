// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tube

import (
	"crypto/ecdsa"
	"testing"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

var (
	admin    = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	user     = common.HexToAddress("0x000000000000000000000000000000000000001a")
	receiver = common.HexToAddress("0x000000000000000000000000000000000000002b")
	treasury = common.HexToAddress("0x000000000000000000000000000000000000003c")
	stranger = common.HexToAddress("0x000000000000000000000000000000000000004d")
)

// signer is a test validator with a real secp256k1 key.
type signer struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func newSigner(t *testing.T) *signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &signer{key: key, addr: common.Address(crypto.PubkeyToAddress(key.PublicKey))}
}

func newSigners(t *testing.T, n int) []*signer {
	t.Helper()
	out := make([]*signer, n)
	for i := range out {
		out[i] = newSigner(t)
	}
	return out
}

func addresses(signers []*signer) []common.Address {
	out := make([]common.Address, len(signers))
	for i, s := range signers {
		out[i] = s.addr
	}
	return out
}

// sign produces one r||s||v chunk with the legacy 27/28 recovery id the
// on-chain contracts emit.
func (s *signer) sign(t *testing.T, digest common.Hash) []byte {
	t.Helper()
	sig, err := crypto.Sign(digest.Bytes(), s.key)
	require.NoError(t, err)
	sig[64] += 27
	return sig
}

// signAll concatenates every signer's signature over digest.
func signAll(t *testing.T, signers []*signer, digest common.Hash) []byte {
	t.Helper()
	var blob []byte
	for _, s := range signers {
		blob = append(blob, s.sign(t, digest)...)
	}
	return blob
}
