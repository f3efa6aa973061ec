// Package chain is the node's append-only Chain Store: L2 blocks, L1
// batches, transactions and receipts, plus the hash/number indices the
// RPC surface needs. It is truncated only by the snapshot manager's
// revert; every other mutation path only appends.
package chain

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/zksync-go/innode/internal/engine"
)

// Block is one L2 block. Every block pairs 1:1 with a Batch in this
// implementation (spec.md's single-transaction-per-batch model), so
// unlike upstream Ethereum there is no separate uncle/ommer concept.
type Block struct {
	Number      uint64
	Hash        common.Hash
	ParentHash  common.Hash
	Timestamp   uint64
	BaseFee     *big.Int
	GasLimit    uint64
	GasUsed     uint64
	TxHash      *common.Hash // nil for an empty (evm_mine) block
	LogsBloom   types.Bloom
	BatchNumber uint64
}

// Batch is one L1 batch: a block range that, in this implementation,
// is always exactly one block wide.
type Batch struct {
	Number          uint64
	FirstL2Block    uint64
	LastL2Block     uint64
	L1GasPrice      uint64
	ProtocolVersion string
	HasTransaction  bool
}

// TxLocation is where a transaction landed: its containing block and
// index within it (always 0 in this one-tx-per-block model, kept as a
// field for RPC shape compatibility).
type TxLocation struct {
	BlockHash   common.Hash
	BlockNumber uint64
	Index       uint
	Tx          *types.Transaction
	Receipt     *types.Receipt
	// Trace is the call-trace tree the engine produced for this
	// transaction, captured at commit time since the node's engine is
	// fully deterministic (re-running it would reproduce the same
	// tree, but state may have moved on since, so debug_traceTransaction
	// reads this stored copy rather than replaying against current
	// state).
	Trace *engine.CallFrame
}

// Store is the append-only chain store, seeded with the parent
// (number, hash, timestamp) the local chain continues from: either the
// pinned fork block, or block 0 for a non-forked node.
type Store struct {
	genesisNumber    uint64
	genesisHash      common.Hash
	genesisTimestamp uint64
	genesisBatch     uint64

	headNumber      uint64
	headHash        common.Hash
	headTimestamp   uint64
	headBatchNumber uint64

	blocksByNumber map[uint64]*Block
	blocksByHash   map[common.Hash]*Block
	batches        map[uint64]*Batch
	txLocations    map[common.Hash]*TxLocation
}

// New seeds a Store whose first locally-appended block will have
// number genesisNumber+1 and parentHash genesisHash.
func New(genesisNumber uint64, genesisHash common.Hash, genesisTimestamp uint64, genesisBatchNumber uint64) *Store {
	return &Store{
		genesisNumber:    genesisNumber,
		genesisHash:      genesisHash,
		genesisTimestamp: genesisTimestamp,
		genesisBatch:     genesisBatchNumber,
		headNumber:       genesisNumber,
		headHash:         genesisHash,
		headTimestamp:    genesisTimestamp,
		headBatchNumber:  genesisBatchNumber,
		blocksByNumber:   make(map[uint64]*Block),
		blocksByHash:     make(map[common.Hash]*Block),
		batches:          make(map[uint64]*Batch),
		txLocations:      make(map[common.Hash]*TxLocation),
	}
}

// HeadNumber is the current chain head's block number (the genesis
// number, i.e. the fork point, if nothing has been appended yet).
func (s *Store) HeadNumber() uint64 { return s.headNumber }

// HeadHash is the current chain head's hash.
func (s *Store) HeadHash() common.Hash { return s.headHash }

// HeadBatchNumber is the last appended batch's number.
func (s *Store) HeadBatchNumber() uint64 { return s.headBatchNumber }

// GenesisNumber is the fork point this store continues from.
func (s *Store) GenesisNumber() uint64 { return s.genesisNumber }

// IsLocal reports whether a block number is served by this store
// rather than the fork view.
func (s *Store) IsLocal(number uint64) bool { return number > s.genesisNumber }

// AppendTransactionBlock appends one block carrying exactly one
// transaction and its receipt, sealed into its own batch, per
// spec.md's one-tx-per-batch model.
func (s *Store) AppendTransactionBlock(
	timestamp uint64,
	gasLimit, gasUsed uint64,
	baseFee *big.Int,
	tx *types.Transaction,
	receipt *types.Receipt,
	l1GasPrice uint64,
	protocolVersion string,
	trace *engine.CallFrame,
) (*Block, *Batch, error) {
	if timestamp <= s.headTimestamp {
		return nil, nil, fmt.Errorf("chain: transaction block timestamp %d must exceed previous block timestamp %d", timestamp, s.headTimestamp)
	}
	number := s.headNumber + 1
	batchNumber := s.headBatchNumber + 1

	bloom := types.CreateBloom(types.Receipts{receipt})
	hash := tx.Hash() // deterministic, content-addressed stand-in for the header hash

	txHash := tx.Hash()
	block := &Block{
		Number:      number,
		Hash:        hash,
		ParentHash:  s.headHash,
		Timestamp:   timestamp,
		BaseFee:     baseFee,
		GasLimit:    gasLimit,
		GasUsed:     gasUsed,
		TxHash:      &txHash,
		LogsBloom:   bloom,
		BatchNumber: batchNumber,
	}
	batch := &Batch{
		Number:          batchNumber,
		FirstL2Block:    number,
		LastL2Block:     number,
		L1GasPrice:      l1GasPrice,
		ProtocolVersion: protocolVersion,
		HasTransaction:  true,
	}

	receipt.BlockHash = hash
	receipt.BlockNumber = new(big.Int).SetUint64(number)
	receipt.TransactionIndex = 0
	for _, l := range receipt.Logs {
		l.BlockHash = hash
		l.BlockNumber = number
	}

	s.blocksByNumber[number] = block
	s.blocksByHash[hash] = block
	s.batches[batchNumber] = batch
	s.txLocations[tx.Hash()] = &TxLocation{BlockHash: hash, BlockNumber: number, Index: 0, Tx: tx, Receipt: receipt, Trace: trace}

	s.headNumber = number
	s.headHash = hash
	s.headTimestamp = timestamp
	s.headBatchNumber = batchNumber

	return block, batch, nil
}

// AppendEmptyBlocks implements evm_mine/hardhat_mine: appends n blocks
// with no transaction, whose timestamps step by intervalSeconds. It
// does bookkeeping only (no engine invocation), so its cost is
// O(n) in map insertions rather than O(n) bootloader runs.
func (s *Store) AppendEmptyBlocks(n uint64, gasLimit uint64, baseFee *big.Int, nextTimestamp func() uint64) ([]*Block, error) {
	blocks := make([]*Block, 0, n)
	for i := uint64(0); i < n; i++ {
		timestamp := nextTimestamp()
		number := s.headNumber + 1
		batchNumber := s.headBatchNumber + 1
		hash := deriveEmptyBlockHash(s.headHash, number, timestamp)

		block := &Block{
			Number:      number,
			Hash:        hash,
			ParentHash:  s.headHash,
			Timestamp:   timestamp,
			BaseFee:     baseFee,
			GasLimit:    gasLimit,
			GasUsed:     0,
			TxHash:      nil,
			BatchNumber: batchNumber,
		}
		batch := &Batch{
			Number:          batchNumber,
			FirstL2Block:    number,
			LastL2Block:     number,
			L1GasPrice:      0,
			ProtocolVersion: "",
			HasTransaction:  false,
		}

		s.blocksByNumber[number] = block
		s.blocksByHash[hash] = block
		s.batches[batchNumber] = batch

		s.headNumber = number
		s.headHash = hash
		s.headTimestamp = timestamp
		s.headBatchNumber = batchNumber

		blocks = append(blocks, block)
	}
	return blocks, nil
}

func deriveEmptyBlockHash(parent common.Hash, number, timestamp uint64) common.Hash {
	var buf [48]byte
	copy(buf[:32], parent[:])
	binary.BigEndian.PutUint64(buf[32:40], number)
	binary.BigEndian.PutUint64(buf[40:48], timestamp)
	return common.BytesToHash(crypto.Keccak256(buf[:]))
}

// SeedBlock synthesizes a Block for the seed this store was created
// with, so a non-forked node can still serve its genesis over RPC
// before anything has been appended. Forked nodes never need it: the
// remote serves every block at or below the fork point.
func (s *Store) SeedBlock() *Block {
	return &Block{
		Number:      s.genesisNumber,
		Hash:        s.genesisHash,
		Timestamp:   s.genesisTimestamp,
		GasLimit:    30_000_000,
		BatchNumber: s.genesisBatch,
	}
}

// BlockByNumber looks up a locally-appended block.
func (s *Store) BlockByNumber(number uint64) (*Block, bool) {
	b, ok := s.blocksByNumber[number]
	return b, ok
}

// BlockByHash looks up a locally-appended block.
func (s *Store) BlockByHash(hash common.Hash) (*Block, bool) {
	b, ok := s.blocksByHash[hash]
	return b, ok
}

// BatchByNumber looks up a locally-appended batch.
func (s *Store) BatchByNumber(number uint64) (*Batch, bool) {
	b, ok := s.batches[number]
	return b, ok
}

// TransactionLocation looks up where a transaction landed.
func (s *Store) TransactionLocation(hash common.Hash) (*TxLocation, bool) {
	loc, ok := s.txLocations[hash]
	return loc, ok
}

// Truncate discards every block/batch/tx appended after keepNumber,
// used by the snapshot manager's revert. It also rewinds the head
// pointers so subsequent appends continue from keepNumber.
func (s *Store) Truncate(keepNumber uint64) {
	for n := keepNumber + 1; n <= s.headNumber; n++ {
		block, ok := s.blocksByNumber[n]
		if !ok {
			continue
		}
		delete(s.blocksByNumber, n)
		delete(s.blocksByHash, block.Hash)
		delete(s.batches, block.BatchNumber)
		if block.TxHash != nil {
			delete(s.txLocations, *block.TxHash)
		}
	}
	if keepNumber == s.genesisNumber {
		s.headNumber = s.genesisNumber
		s.headHash = s.genesisHash
		s.headTimestamp = s.genesisTimestamp
		s.headBatchNumber = s.genesisBatch
		return
	}
	if b, ok := s.blocksByNumber[keepNumber]; ok {
		s.headNumber = b.Number
		s.headHash = b.Hash
		s.headTimestamp = b.Timestamp
		s.headBatchNumber = b.BatchNumber
	}
}

// Clone returns an independent copy for the snapshot manager.
func (s *Store) Clone() *Store {
	clone := &Store{
		genesisNumber:    s.genesisNumber,
		genesisHash:      s.genesisHash,
		genesisTimestamp: s.genesisTimestamp,
		genesisBatch:     s.genesisBatch,

		headNumber:      s.headNumber,
		headHash:        s.headHash,
		headTimestamp:   s.headTimestamp,
		headBatchNumber: s.headBatchNumber,
		blocksByNumber:  make(map[uint64]*Block, len(s.blocksByNumber)),
		blocksByHash:    make(map[common.Hash]*Block, len(s.blocksByHash)),
		batches:         make(map[uint64]*Batch, len(s.batches)),
		txLocations:     make(map[common.Hash]*TxLocation, len(s.txLocations)),
	}
	for k, v := range s.blocksByNumber {
		clone.blocksByNumber[k] = v
	}
	for k, v := range s.blocksByHash {
		clone.blocksByHash[k] = v
	}
	for k, v := range s.batches {
		clone.batches[k] = v
	}
	for k, v := range s.txLocations {
		clone.txLocations[k] = v
	}
	return clone
}

// Restore replaces this store's contents with other's in place.
func (s *Store) Restore(other *Store) {
	*s = *other.Clone()
}
