// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tube

import (
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Event is an entry payload in the bridge's append-only log. The log is the
// sole channel off-chain validators and relayers observe; everything they
// attest to appears here.
type Event interface {
	Name() string
	payload() []byte
}

// Entry is one appended event with its position and chained digest.
type Entry struct {
	Seq    uint64
	Digest [32]byte
	Event  Event
}

// EventLog is an append-only, subscribable event stream. Each entry's digest
// chains over the previous one, so an exported log is tamper-evident.
type EventLog struct {
	entries []Entry
	last    [32]byte
	subs    map[int]chan Entry
	nextSub int

	mu sync.RWMutex
}

// NewEventLog creates an empty log.
func NewEventLog() *EventLog {
	return &EventLog{subs: make(map[int]chan Entry)}
}

// Append adds an event and fans it out to subscribers. Slow subscribers
// drop entries rather than block settlement.
func (l *EventLog) Append(ev Event) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	h := blake3.New()
	h.Write(l.last[:])
	h.Write([]byte(ev.Name()))
	h.Write(ev.payload())
	var digest [32]byte
	copy(digest[:], h.Sum(nil))

	entry := Entry{Seq: uint64(len(l.entries)), Digest: digest, Event: ev}
	l.entries = append(l.entries, entry)
	l.last = digest

	for _, ch := range l.subs {
		select {
		case ch <- entry:
		default:
		}
	}
	return entry
}

// Entries returns a snapshot of the log.
func (l *EventLog) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Subscribe registers a buffered listener. The returned cancel func must be
// called to release it.
func (l *EventLog) Subscribe(buffer int) (<-chan Entry, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextSub
	l.nextSub++
	ch := make(chan Entry, buffer)
	l.subs[id] = ch
	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if sub, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(sub)
		}
	}
}

// ReceiptEvent records a deposit. Off-chain validators sign the digest of
// exactly these fields; a withdrawal on the destination must reproduce them.
type ReceiptEvent struct {
	TubeID    uint64
	Token     common.Address
	Nonce     uint64
	Sender    common.Address
	Recipient common.Address
	Amount    *big.Int
	Data      []byte
	Fee       *big.Int
}

func (e ReceiptEvent) Name() string { return "Receipt" }

func (e ReceiptEvent) payload() []byte {
	var buf []byte
	buf = appendUint64(buf, e.TubeID)
	buf = append(buf, e.Token.Bytes()...)
	buf = appendUint64(buf, e.Nonce)
	buf = append(buf, e.Sender.Bytes()...)
	buf = append(buf, e.Recipient.Bytes()...)
	buf = appendBig(buf, e.Amount)
	buf = append(buf, e.Data...)
	buf = appendBig(buf, e.Fee)
	return buf
}

// SettledEvent records a completed withdrawal: the settlement key, the
// validators that authorized it in recovery order, and whether the optional
// auxiliary call succeeded.
type SettledEvent struct {
	Key        common.Hash
	Validators []common.Address
	Success    bool
}

func (e SettledEvent) Name() string { return "Settled" }

func (e SettledEvent) payload() []byte {
	buf := append([]byte{}, e.Key.Bytes()...)
	for _, v := range e.Validators {
		buf = append(buf, v.Bytes()...)
	}
	if e.Success {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// ValidatorAddedEvent records a validator joining the set.
type ValidatorAddedEvent struct {
	Validator common.Address
}

func (e ValidatorAddedEvent) Name() string    { return "ValidatorAdded" }
func (e ValidatorAddedEvent) payload() []byte { return e.Validator.Bytes() }

// ValidatorRemovedEvent records a validator leaving the set.
type ValidatorRemovedEvent struct {
	Validator common.Address
}

func (e ValidatorRemovedEvent) Name() string    { return "ValidatorRemoved" }
func (e ValidatorRemovedEvent) payload() []byte { return e.Validator.Bytes() }

// NewAssetEvent records an asset registration.
type NewAssetEvent struct {
	AssetID uint64
	TubeID  uint64
	Token   common.Address
}

func (e NewAssetEvent) Name() string { return "NewAsset" }

func (e NewAssetEvent) payload() []byte {
	buf := appendUint64(nil, e.AssetID)
	buf = appendUint64(buf, e.TubeID)
	return append(buf, e.Token.Bytes()...)
}

// AssetSetOnTubeEvent records an asset mapped onto a tube.
type AssetSetOnTubeEvent struct {
	AssetID uint64
	TubeID  uint64
	Token   common.Address
}

func (e AssetSetOnTubeEvent) Name() string { return "AssetSetOnTube" }

func (e AssetSetOnTubeEvent) payload() []byte {
	buf := appendUint64(nil, e.AssetID)
	buf = appendUint64(buf, e.TubeID)
	return append(buf, e.Token.Bytes()...)
}

// AssetRemovedOnTubeEvent records an asset unmapped from a tube.
type AssetRemovedOnTubeEvent struct {
	AssetID uint64
	TubeID  uint64
}

func (e AssetRemovedOnTubeEvent) Name() string { return "AssetRemovedOnTube" }

func (e AssetRemovedOnTubeEvent) payload() []byte {
	return appendUint64(appendUint64(nil, e.AssetID), e.TubeID)
}

// AssetActivatedEvent records global asset activation state changes.
type AssetActivatedEvent struct {
	AssetID uint64
	Active  bool
}

func (e AssetActivatedEvent) Name() string {
	if e.Active {
		return "AssetActivated"
	}
	return "AssetDeactivated"
}

func (e AssetActivatedEvent) payload() []byte { return appendUint64(nil, e.AssetID) }

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendBig(buf []byte, v *big.Int) []byte {
	if v == nil {
		v = new(big.Int)
	}
	return append(buf, common.BigToHash(v).Bytes()...)
}
