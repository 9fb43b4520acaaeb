// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tube

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

var (
	tokenA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

// TestRegistryNewAsset tests registration and its validation
func TestRegistryNewAsset(t *testing.T) {
	r := NewAssetRegistry(admin, nil)

	_, err := r.NewAsset(stranger, 1, tokenA, AssetCustodial)
	require.ErrorIs(t, err, ErrNoPermission)
	_, err = r.NewAsset(admin, 0, tokenA, AssetCustodial)
	require.ErrorIs(t, err, ErrInvalidTubeID)
	_, err = r.NewAsset(admin, 1, common.Address{}, AssetCustodial)
	require.ErrorIs(t, err, ErrInvalidAssetAddress)

	id, err := r.NewAsset(admin, 1, tokenA, AssetCustodial)
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
	require.Equal(t, uint64(1), r.NumOfAssets())
	require.Equal(t, id, r.AssetID(1, tokenA))
	require.True(t, r.IsActive(id))
	require.True(t, r.IsActiveOnTube(id, 1))

	_, err = r.NewAsset(admin, 1, tokenA, AssetCustodial)
	require.ErrorIs(t, err, ErrDuplicateAsset)

	id2, err := r.NewAsset(admin, 2, tokenA, AssetCrosschain)
	require.NoError(t, err)
	require.Equal(t, uint64(2), id2)

	typ, err := r.Type(id2)
	require.NoError(t, err)
	require.Equal(t, AssetCrosschain, typ)
	_, err = r.Type(99)
	require.ErrorIs(t, err, ErrUnknownAsset)
}

// TestRegistryGrantRevoke tests the operator allow-list
func TestRegistryGrantRevoke(t *testing.T) {
	r := NewAssetRegistry(admin, nil)

	require.ErrorIs(t, r.Grant(stranger, user), ErrNotOwner)
	require.NoError(t, r.Grant(admin, user))
	require.ErrorIs(t, r.Grant(admin, user), ErrAlreadyOperator)
	require.True(t, r.IsOperator(user))

	_, err := r.NewAsset(user, 1, tokenA, AssetCustodial)
	require.NoError(t, err)

	require.ErrorIs(t, r.Revoke(admin, stranger), ErrNotOperator)
	require.NoError(t, r.Revoke(admin, user))
	_, err = r.NewAsset(user, 1, tokenB, AssetCustodial)
	require.ErrorIs(t, err, ErrNoPermission)
}

// TestRegistryAssetOnTube tests cross-tube mapping
func TestRegistryAssetOnTube(t *testing.T) {
	r := NewAssetRegistry(admin, nil)
	id, err := r.NewAsset(admin, 1, tokenA, AssetCustodial)
	require.NoError(t, err)

	require.ErrorIs(t, r.SetAssetOnTube(admin, id, 0, tokenB), ErrInvalidTubeID)
	require.ErrorIs(t, r.SetAssetOnTube(admin, id, 2, common.Address{}), ErrInvalidAssetAddress)
	require.ErrorIs(t, r.SetAssetOnTube(admin, 99, 2, tokenB), ErrUnknownAsset)
	// Already mapped on tube 1.
	require.ErrorIs(t, r.SetAssetOnTube(admin, id, 1, tokenB), ErrDuplicateAsset)

	require.NoError(t, r.SetAssetOnTube(admin, id, 2, tokenB))
	require.Equal(t, id, r.AssetID(2, tokenB))
	addr, err := r.TokenOnTube(id, 2)
	require.NoError(t, err)
	require.Equal(t, tokenB, addr)

	// The same (tube, token) slot cannot host a second asset.
	id2, err := r.NewAsset(admin, 3, tokenA, AssetCustodial)
	require.NoError(t, err)
	require.ErrorIs(t, r.SetAssetOnTube(admin, id2, 2, tokenB), ErrDuplicateAsset)

	require.ErrorIs(t, r.RemoveAssetOnTube(admin, id, 5), ErrUnknownAsset)
	require.NoError(t, r.RemoveAssetOnTube(admin, id, 2))
	require.Equal(t, uint64(0), r.AssetID(2, tokenB))
	_, err = r.TokenOnTube(id, 2)
	require.ErrorIs(t, err, ErrUnknownAsset)
}

// TestRegistryActivation tests the three activation levels
func TestRegistryActivation(t *testing.T) {
	r := NewAssetRegistry(admin, nil)
	id, err := r.NewAsset(admin, 1, tokenA, AssetCustodial)
	require.NoError(t, err)
	require.NoError(t, r.SetAssetOnTube(admin, id, 2, tokenB))

	resolve := func(tubeID uint64) common.Address {
		addr, err := r.TokenOnTube(id, tubeID)
		require.NoError(t, err)
		return addr
	}

	// Global deactivation blanks every tube.
	require.NoError(t, r.DeactivateAsset(admin, id))
	require.False(t, r.IsActive(id))
	require.Equal(t, common.Address{}, resolve(1))
	require.Equal(t, common.Address{}, resolve(2))
	require.NoError(t, r.ActivateAsset(admin, id))
	require.Equal(t, tokenA, resolve(1))

	// Per-tube deactivation blanks only that tube.
	require.NoError(t, r.DeactivateAssetOnTube(admin, id, 2))
	require.False(t, r.IsActiveOnTube(id, 2))
	require.Equal(t, tokenA, resolve(1))
	require.Equal(t, common.Address{}, resolve(2))
	require.NoError(t, r.ActivateAssetOnTube(admin, id, 2))
	require.Equal(t, tokenB, resolve(2))

	// Tube deactivation blanks every asset on it.
	require.NoError(t, r.DeactivateTube(admin, 2))
	require.Equal(t, common.Address{}, resolve(2))
	require.Equal(t, tokenA, resolve(1))
	require.NoError(t, r.ActivateTube(admin, 2))
	require.Equal(t, tokenB, resolve(2))

	require.ErrorIs(t, r.DeactivateAsset(stranger, id), ErrNoPermission)
	require.ErrorIs(t, r.DeactivateAssetOnTube(admin, id, 9), ErrUnknownAsset)
	require.ErrorIs(t, r.DeactivateTube(admin, 0), ErrInvalidTubeID)
}

// TestRegistryEvents tests the registration event trail
func TestRegistryEvents(t *testing.T) {
	events := NewEventLog()
	r := NewAssetRegistry(admin, events)

	id, err := r.NewAsset(admin, 1, tokenA, AssetCustodial)
	require.NoError(t, err)
	require.NoError(t, r.SetAssetOnTube(admin, id, 2, tokenB))
	require.NoError(t, r.DeactivateAsset(admin, id))
	// Repeated deactivation emits nothing.
	require.NoError(t, r.DeactivateAsset(admin, id))
	require.NoError(t, r.RemoveAssetOnTube(admin, id, 2))

	entries := events.Entries()
	require.Len(t, entries, 4)
	require.Equal(t, NewAssetEvent{AssetID: id, TubeID: 1, Token: tokenA}, entries[0].Event)
	require.Equal(t, AssetSetOnTubeEvent{AssetID: id, TubeID: 2, Token: tokenB}, entries[1].Event)
	require.Equal(t, AssetActivatedEvent{AssetID: id, Active: false}, entries[2].Event)
	require.Equal(t, AssetRemovedOnTubeEvent{AssetID: id, TubeID: 2}, entries[3].Event)
}
