// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tube

import (
	"math/big"
	"sync"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/luxfi/tube/token"
)

// WithdrawHandler is a recipient-registered callback run after a withdrawal
// with auxiliary data is delivered. Handler failure never rolls the
// delivery back; it only flips the Settled event's success flag.
type WithdrawHandler func(tokenAddr common.Address, amount *big.Int, data []byte) error

// TubeConfig carries construction parameters for a Tube.
type TubeConfig struct {
	// TubeID identifies this endpoint's chain across the bridge.
	TubeID uint64
	// InitialNonce seeds every per-destination deposit counter; a
	// replacement endpoint resumes above its predecessor. Defaults to 1.
	InitialNonce uint64
	// Logger defaults to a test logger at info level.
	Logger log.Logger
}

// Tube is the bridge endpoint state machine. Deposits lock or burn value
// locally and emit a Receipt for the destination; withdrawals verify
// validator signatures, record the settlement key, then release or mint.
// Configuration only moves while paused.
type Tube struct {
	ownable
	tubeID uint64
	addr   common.Address
	chain  *token.Chain

	registry *AssetRegistry
	ledger   *Ledger
	lord     *Lord
	verifier *Verifier

	feeToken token.Fungible
	safe     common.Address

	paused       bool
	fees         map[uint64]*big.Int
	destinations map[uint64]bool
	nonces       map[uint64]uint64
	initialNonce uint64
	handlers     map[common.Address]WithdrawHandler

	events *EventLog
	log    log.Logger

	mu sync.Mutex
}

// NewTube assembles an endpoint. feeToken may be nil when deposits carry no
// fee; safe is the treasury fees accrue to. The tube starts paused so the
// operator can take ownership of the ledger and lord and enable
// destinations before the first deposit.
func NewTube(cfg TubeConfig, owner common.Address, chain *token.Chain, registry *AssetRegistry, ledger *Ledger, lord *Lord, verifier *Verifier, feeToken token.Fungible, safe common.Address, events *EventLog) *Tube {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewTestLogger(log.InfoLevel)
	}
	initialNonce := cfg.InitialNonce
	if initialNonce == 0 {
		initialNonce = 1
	}
	if events == nil {
		events = NewEventLog()
	}
	return &Tube{
		ownable:      ownable{owner: owner},
		tubeID:       cfg.TubeID,
		addr:         chain.CreateAccount(),
		chain:        chain,
		registry:     registry,
		ledger:       ledger,
		lord:         lord,
		verifier:     verifier,
		feeToken:     feeToken,
		safe:         safe,
		paused:       true,
		fees:         make(map[uint64]*big.Int),
		destinations: make(map[uint64]bool),
		nonces:       make(map[uint64]uint64),
		initialNonce: initialNonce,
		handlers:     make(map[common.Address]WithdrawHandler),
		events:       events,
		log:          logger,
	}
}

// TubeID returns the endpoint's chain identifier.
func (t *Tube) TubeID() uint64 { return t.tubeID }

// Address returns the endpoint's chain identity; custodial deposits sit
// under this account.
func (t *Tube) Address() common.Address { return t.addr }

// Events returns the endpoint's event log.
func (t *Tube) Events() *EventLog { return t.events }

// Owner returns the current owner.
func (t *Tube) Owner() common.Address {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.owner
}

// TransferOwnership proposes a new owner (two-phase).
func (t *Tube) TransferOwnership(caller, newOwner common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transferOwnership(caller, newOwner)
}

// AcceptOwnership completes a proposed transfer.
func (t *Tube) AcceptOwnership(caller common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acceptOwnership(caller)
}

// Paused reports the pause state.
func (t *Tube) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// Pause halts deposits and withdrawals. Owner only.
func (t *Tube) Pause(caller common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if caller != t.owner {
		return ErrNotOwner
	}
	if t.paused {
		return ErrPaused
	}
	t.paused = true
	return nil
}

// Unpause resumes operation. Owner only.
func (t *Tube) Unpause(caller common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if caller != t.owner {
		return ErrNotOwner
	}
	if !t.paused {
		return ErrNotPaused
	}
	t.paused = false
	return nil
}

// checkConfigurable requires t.mu held: owner plus paused, the only window
// in which endpoint configuration may move.
func (t *Tube) checkConfigurable(caller common.Address) error {
	if caller != t.owner {
		return ErrNotOwner
	}
	if !t.paused {
		return ErrNotPaused
	}
	return nil
}

// SetFee sets the deposit fee toward destTubeID. Owner only, paused only.
func (t *Tube) SetFee(caller common.Address, destTubeID uint64, fee *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkConfigurable(caller); err != nil {
		return err
	}
	if fee == nil || fee.Sign() < 0 {
		return ErrInvalidAmount
	}
	t.fees[destTubeID] = new(big.Int).Set(fee)
	return nil
}

// Fee returns the deposit fee toward destTubeID.
func (t *Tube) Fee(destTubeID uint64) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fee, ok := t.fees[destTubeID]; ok {
		return new(big.Int).Set(fee)
	}
	return new(big.Int)
}

// SetDestinationTube enables or disables deposits toward destTubeID.
// Owner only, paused only.
func (t *Tube) SetDestinationTube(caller common.Address, destTubeID uint64, enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkConfigurable(caller); err != nil {
		return err
	}
	if destTubeID == 0 || destTubeID == t.tubeID {
		return ErrInvalidDestinationTube
	}
	if enabled {
		t.destinations[destTubeID] = true
	} else {
		delete(t.destinations, destTubeID)
	}
	return nil
}

// AcceptOwnerships accepts pending ownership of the ledger and the lord on
// behalf of the endpoint. Run during commissioning: the outgoing endpoint
// (or deployer) proposes, the new endpoint accepts, so write access to the
// settled-key set and the mint authority hands over atomically from the
// chain's point of view.
func (t *Tube) AcceptOwnerships(caller common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkConfigurable(caller); err != nil {
		return err
	}
	if err := t.ledger.AcceptOwnership(t.addr); err != nil {
		return err
	}
	return t.lord.AcceptOwnership(t.addr)
}

// SetHandler registers caller's withdrawal callback. A nil handler
// deregisters.
func (t *Tube) SetHandler(caller common.Address, handler WithdrawHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if handler == nil {
		delete(t.handlers, caller)
		return
	}
	t.handlers[caller] = handler
}

// Nonce returns the next deposit nonce toward destTubeID.
func (t *Tube) Nonce(destTubeID uint64) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nonce(destTubeID)
}

// nonce requires t.mu held.
func (t *Tube) nonce(destTubeID uint64) uint64 {
	if n, ok := t.nonces[destTubeID]; ok {
		return n
	}
	return t.initialNonce
}

// Deposit moves the caller's tokens into the bridge toward destTubeID,
// crediting the caller on the destination chain.
func (t *Tube) Deposit(caller common.Address, destTubeID uint64, tokenAddr common.Address, amount *big.Int, data []byte) (uint64, error) {
	return t.DepositTo(caller, destTubeID, caller, tokenAddr, amount, data)
}

// DepositTo moves the caller's tokens into the bridge toward destTubeID,
// crediting recipient on the destination chain. Returns the receipt nonce.
func (t *Tube) DepositTo(caller common.Address, destTubeID uint64, recipient, tokenAddr common.Address, amount *big.Int, data []byte) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused {
		return 0, ErrPaused
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	if recipient == (common.Address{}) {
		return 0, ErrInvalidRecipient
	}
	if !t.destinations[destTubeID] {
		return 0, ErrInvalidDestinationTube
	}
	assetID := t.registry.AssetID(t.tubeID, tokenAddr)
	if assetID == 0 || !t.registry.IsActiveOnTube(assetID, t.tubeID) {
		return 0, ErrInvalidTubeIDOrToken
	}
	if dst, err := t.registry.TokenOnTube(assetID, destTubeID); err != nil || dst == (common.Address{}) {
		return 0, ErrInvalidTubeIDOrToken
	}

	fee := new(big.Int)
	if configured := t.fees[destTubeID]; configured != nil && configured.Sign() > 0 {
		if t.feeToken == nil {
			return 0, ErrInvalidAmount
		}
		fee.Set(configured)
		if err := t.feeToken.TransferFrom(t.addr, caller, t.safe, fee); err != nil {
			return 0, err
		}
	}

	if err := t.pull(assetID, caller, tokenAddr, amount); err != nil {
		// The deposit is all-or-nothing: a failed pull returns the fee.
		if fee.Sign() > 0 {
			if rerr := t.feeToken.Transfer(t.safe, caller, fee); rerr != nil {
				t.log.Error("failed to refund deposit fee", "caller", caller, "err", rerr)
			}
		}
		return 0, err
	}

	nonce := t.nonce(destTubeID)
	t.nonces[destTubeID] = nonce + 1

	t.events.Append(ReceiptEvent{
		TubeID:    destTubeID,
		Token:     tokenAddr,
		Nonce:     nonce,
		Sender:    caller,
		Recipient: recipient,
		Amount:    new(big.Int).Set(amount),
		Data:      append([]byte(nil), data...),
		Fee:       fee,
	})
	t.log.Info("deposit receipt",
		"destination", destTubeID,
		"token", tokenAddr,
		"nonce", nonce,
		"sender", caller,
		"recipient", recipient,
		"amount", amount,
	)
	return nonce, nil
}

// pull takes amount of tokenAddr from sender: burned for crosschain assets,
// held in endpoint custody for custodial ones. Requires t.mu held.
func (t *Tube) pull(assetID uint64, sender, tokenAddr common.Address, amount *big.Int) error {
	tok, ok := t.chain.Token(tokenAddr)
	if !ok {
		return ErrInvalidTubeIDOrToken
	}
	if err := tok.TransferFrom(t.addr, sender, t.addr, amount); err != nil {
		return err
	}
	typ, err := t.registry.Type(assetID)
	if err != nil {
		return err
	}
	if typ != AssetCrosschain {
		return nil
	}
	if err := tok.Approve(t.addr, t.lord.Address(), amount); err != nil {
		return err
	}
	return t.lord.Burn(t.addr, tokenAddr, t.addr, amount)
}

// GenKey derives the settlement key of one transfer. Every parameter plus
// the local tube ID is bound, so a signature set authorizes exactly one
// delivery on exactly one endpoint.
func (t *Tube) GenKey(srcTubeID, nonce uint64, tokenAddr, recipient common.Address, amount *big.Int, data []byte) common.Hash {
	var buf []byte
	buf = append(buf, common.BigToHash(new(big.Int).SetUint64(srcTubeID)).Bytes()...)
	buf = append(buf, common.BigToHash(new(big.Int).SetUint64(nonce)).Bytes()...)
	buf = append(buf, common.BigToHash(new(big.Int).SetUint64(t.tubeID)).Bytes()...)
	buf = append(buf, tokenAddr.Bytes()...)
	buf = append(buf, recipient.Bytes()...)
	buf = append(buf, common.BigToHash(amount).Bytes()...)
	buf = append(buf, data...)
	return common.BytesToHash(crypto.Keccak256(buf))
}

// ConcatKeys folds a batch of settlement keys into one digest validators
// sign once.
func ConcatKeys(keys []common.Hash) common.Hash {
	var buf []byte
	for _, k := range keys {
		buf = append(buf, k.Bytes()...)
	}
	return common.BytesToHash(crypto.Keccak256(buf))
}

// Withdraw delivers a transfer attested by the validator set. The
// settlement key is recorded before any value moves; a replay fails on the
// record, never double-delivers.
func (t *Tube) Withdraw(srcTubeID, nonce uint64, tokenAddr, recipient common.Address, amount *big.Int, data []byte, signatures []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused {
		return ErrPaused
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountIsZero
	}
	if recipient == (common.Address{}) {
		return ErrInvalidRecipient
	}
	assetID := t.registry.AssetID(t.tubeID, tokenAddr)
	if assetID == 0 {
		return ErrInvalidTubeIDOrToken
	}

	key := t.GenKey(srcTubeID, nonce, tokenAddr, recipient, amount, data)
	validators, err := t.verifier.Verify(key, signatures)
	if err != nil {
		return err
	}
	if err := t.ledger.Record(t.addr, key); err != nil {
		return err
	}
	if err := t.deliver(assetID, tokenAddr, recipient, amount); err != nil {
		// Put the key back so the transfer stays retryable; a consumed
		// key with no delivery would strand the funds forever.
		if rerr := t.ledger.revoke(key); rerr != nil {
			t.log.Error("failed to revoke settlement key", "key", key, "err", rerr)
		}
		return err
	}

	success := true
	if len(data) > 0 {
		if handler, ok := t.handlers[recipient]; ok {
			if herr := handler(tokenAddr, new(big.Int).Set(amount), data); herr != nil {
				success = false
				t.log.Warn("withdrawal handler failed",
					"key", key,
					"recipient", recipient,
					"err", herr,
				)
			}
		}
	}
	t.events.Append(SettledEvent{Key: key, Validators: validators, Success: success})
	t.log.Info("settled",
		"key", key,
		"token", tokenAddr,
		"recipient", recipient,
		"amount", amount,
		"success", success,
	)
	return nil
}

// WithdrawInBatch delivers several transfers under one composite signature.
// The arrays are parallel; auxiliary data is not supported in batches. The
// whole batch is validated and checked for replays before the first
// delivery, so a bad item rejects the batch instead of splitting it.
func (t *Tube) WithdrawInBatch(srcTubeIDs, nonces []uint64, tokens, recipients []common.Address, amounts []*big.Int, signatures []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused {
		return ErrPaused
	}
	n := len(srcTubeIDs)
	if n == 0 {
		return ErrInvalidArrayLength
	}
	if len(nonces) != n || len(tokens) != n || len(recipients) != n || len(amounts) != n {
		return ErrInvalidParameters
	}

	keys := make([]common.Hash, n)
	assetIDs := make([]uint64, n)
	for i := 0; i < n; i++ {
		if amounts[i] == nil || amounts[i].Sign() <= 0 {
			return ErrAmountIsZero
		}
		if recipients[i] == (common.Address{}) {
			return ErrInvalidRecipient
		}
		assetIDs[i] = t.registry.AssetID(t.tubeID, tokens[i])
		if assetIDs[i] == 0 {
			return ErrInvalidTubeIDOrToken
		}
		keys[i] = t.GenKey(srcTubeIDs[i], nonces[i], tokens[i], recipients[i], amounts[i], nil)
	}

	validators, err := t.verifier.Verify(ConcatKeys(keys), signatures)
	if err != nil {
		return err
	}
	for _, key := range keys {
		seen, err := t.ledger.Get(key)
		if err != nil {
			return err
		}
		if seen {
			return ErrDuplicateRecord
		}
	}
	if err := t.checkDeliverable(assetIDs, tokens, amounts); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		if err := t.ledger.Record(t.addr, keys[i]); err != nil {
			return err
		}
		if err := t.deliver(assetIDs[i], tokens[i], recipients[i], amounts[i]); err != nil {
			if rerr := t.ledger.revoke(keys[i]); rerr != nil {
				t.log.Error("failed to revoke settlement key", "key", keys[i], "err", rerr)
			}
			return err
		}
		t.events.Append(SettledEvent{Key: keys[i], Validators: validators, Success: true})
	}
	t.log.Info("settled batch", "count", n)
	return nil
}

// checkDeliverable proves every batch item can be delivered before any
// settlement key is recorded: mint authority for crosschain items, custody
// balance covering the per-token totals for custodial ones. A batch that
// would fail mid-delivery is rejected whole instead. Requires t.mu held.
func (t *Tube) checkDeliverable(assetIDs []uint64, tokens []common.Address, amounts []*big.Int) error {
	custody := make(map[common.Address]*big.Int)
	for i := range assetIDs {
		typ, err := t.registry.Type(assetIDs[i])
		if err != nil {
			return err
		}
		if typ == AssetCrosschain {
			ct, ok := t.chain.Crosschain(tokens[i])
			if !ok {
				return ErrInvalidTubeIDOrToken
			}
			canMint, err := ct.CanMint(t.lord.Address())
			if err != nil {
				return err
			}
			if !canMint {
				return token.ErrNotMinter
			}
			continue
		}
		need, ok := custody[tokens[i]]
		if !ok {
			need = new(big.Int)
			custody[tokens[i]] = need
		}
		need.Add(need, amounts[i])
	}
	for addr, need := range custody {
		tok, ok := t.chain.Token(addr)
		if !ok {
			return ErrInvalidTubeIDOrToken
		}
		if tok.BalanceOf(t.addr).Cmp(need) < 0 {
			return token.ErrInsufficientBalance
		}
	}
	return nil
}

// deliver releases amount of tokenAddr to recipient: minted for crosschain
// assets, moved out of custody for custodial ones. Requires t.mu held.
func (t *Tube) deliver(assetID uint64, tokenAddr, recipient common.Address, amount *big.Int) error {
	typ, err := t.registry.Type(assetID)
	if err != nil {
		return err
	}
	if typ == AssetCrosschain {
		return t.lord.Mint(t.addr, tokenAddr, recipient, amount)
	}
	tok, ok := t.chain.Token(tokenAddr)
	if !ok {
		return ErrInvalidTubeIDOrToken
	}
	return tok.Transfer(t.addr, recipient, amount)
}
