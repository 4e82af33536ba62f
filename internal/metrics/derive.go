// Copyright © 2025 Attestant Limited.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"errors"
	"sort"

	"github.com/holiman/uint256"
	"github.com/namada-exporter/namada-exporter/internal/chain"
	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyConsensusSet is returned when the consensus set has no entries.
	ErrEmptyConsensusSet = errors.New("consensus validator set is empty")
	// ErrMissingCommission is returned when an active validator has no
	// commission rate.
	ErrMissingCommission = errors.New("validator commission rate is missing")
)

// SortByStake returns a copy of set ordered by bonded stake, highest first.
// Entries with equal stake keep their input order.
func SortByStake(set []chain.ConsensusSetEntry) []chain.ConsensusSetEntry {
	sorted := make([]chain.ConsensusSetEntry, len(set))
	copy(sorted, set)
	sort.SliceStable(sorted, func(i, j int) bool {
		return stakeOf(sorted[i]).Gt(stakeOf(sorted[j]))
	})
	return sorted
}

// Rank returns the 1-based position of address in the stake ordering of set,
// or nil when address is not a member.
func Rank(set []chain.ConsensusSetEntry, address string) *int64 {
	for i, entry := range SortByStake(set) {
		if entry.Address == address {
			rank := int64(i + 1)
			return &rank
		}
	}
	return nil
}

// Uptime returns the rounded live percentage over the liveness window, given
// the number of missed blocks. The result goes negative once missed exceeds
// the number of blocks a validator may miss before being jailed. Nil is
// returned when missed is unknown.
func Uptime(window uint64, threshold decimal.Decimal, missed *uint64) *int64 {
	if missed == nil {
		return nil
	}
	w := decimal.NewFromInt(int64(window))
	maxMissed := w.Sub(w.Mul(threshold))
	if maxMissed.Sign() <= 0 {
		return nil
	}

	m := decimal.NewFromInt(int64(*missed))
	hundred := decimal.NewFromInt(100)
	uptime := decimal.NewFromInt(1).Sub(m.Div(maxMissed)).Mul(hundred).Round(0).IntPart()
	return &uptime
}

// DeriveValidator computes the validator record. A validator missing from the
// consensus set is not an error; its rank, uptime, missed blocks, bonds and
// commission are left absent.
func DeriveValidator(chainID string, snap *ValidatorSnapshot, set []chain.ConsensusSetEntry, params *chain.PosParameters) (*ValidatorRecord, error) {
	record := &ValidatorRecord{
		ChainID:          chainID,
		Address:          snap.Address,
		ConsensusKeyHash: snap.ConsensusKeyHash,
		State:            snap.State,
	}

	record.Rank = Rank(set, snap.Address)
	if record.Rank == nil {
		return record, nil
	}

	if snap.Commission == nil || snap.Commission.Rate == nil {
		return nil, ErrMissingCommission
	}
	record.Commission = snap.Commission.Rate
	record.MissedBlocks = snap.MissedBlocks
	record.TotalBonds = snap.Stake
	if params != nil {
		record.UptimePercentage = Uptime(params.LivenessWindowCheck, params.LivenessThreshold, snap.MissedBlocks)
	}
	return record, nil
}

// DeriveNetwork computes the network record from the consensus set and the
// PoS parameters of the same scrape.
func DeriveNetwork(epoch uint64, status *chain.NodeStatus, set []chain.ConsensusSetEntry, params *chain.PosParameters) (*NetworkRecord, error) {
	if len(set) == 0 {
		return nil, ErrEmptyConsensusSet
	}
	sorted := SortByStake(set)
	lowest := stakeOf(sorted[len(sorted)-1])

	return &NetworkRecord{
		ChainID:              status.Network,
		Epoch:                epoch,
		CatchingUp:           status.CatchingUp,
		LowestActiveSetStake: lowest,
		MaxSetSize:           params.MaxValidatorSlots,
		StakeThreshold:       params.ValidatorStakeThreshold,
		ActiveSetSize:        len(set),
	}, nil
}

func DeriveNode(status *chain.NodeStatus) *NodeRecord {
	return &NodeRecord{
		ChainID:     status.Network,
		NodeID:      status.NodeID,
		Moniker:     status.Moniker,
		LatestBlock: status.LatestBlockHeight,
	}
}

func stakeOf(entry chain.ConsensusSetEntry) *uint256.Int {
	if entry.BondedStake == nil {
		return new(uint256.Int)
	}
	return entry.BondedStake
}
