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

package chain

import (
	"context"
	"errors"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by a Querier when the requested chain record does not exist.
var ErrNotFound = errors.New("not found")

// Querier answers point-in-time questions about chain state.
// Every call is independently fallible; ctx cancellation aborts the call.
type Querier interface {
	CurrentEpoch(ctx context.Context) (uint64, error)
	ValidatorCommission(ctx context.Context, address string, epoch *uint64) (*CommissionPair, error)
	ValidatorStake(ctx context.Context, address string, epoch uint64) (*uint256.Int, error)
	ValidatorMetadata(ctx context.Context, address string) (*ValidatorMetadata, error)
	ValidatorConsensusKeyHash(ctx context.Context, address string) (string, error)
	ValidatorState(ctx context.Context, address string, epoch *uint64) (*ValidatorState, uint64, error)
	// RawStorageValue returns the raw bytes stored under key. A missing key
	// yields ErrNotFound.
	RawStorageValue(ctx context.Context, key string) ([]byte, error)
	// LivenessKey returns the storage key of the missed-votes counter of address.
	LivenessKey(address string) (string, error)
	ConsensusValidatorSet(ctx context.Context, epoch uint64) ([]ConsensusSetEntry, error)
	PosParameters(ctx context.Context) (*PosParameters, error)
	NodeStatus(ctx context.Context) (*NodeStatus, error)
}

// ValidatorState is the active-set state of a validator.
type ValidatorState int

const (
	StateUnknown ValidatorState = iota
	StateConsensus
	StateBelowCapacity
	StateBelowThreshold
	StateJailed
	StateInactive
)

// Number returns the published gauge value of the state.
func (s ValidatorState) Number() int64 {
	switch s {
	case StateConsensus, StateBelowCapacity, StateBelowThreshold, StateJailed, StateInactive:
		return int64(s)
	default:
		return int64(StateUnknown)
	}
}

func (s ValidatorState) String() string {
	switch s {
	case StateConsensus:
		return "active_consensus_set"
	case StateBelowCapacity:
		return "active_below_capacity_set"
	case StateBelowThreshold:
		return "active_below_threshold_set"
	case StateJailed:
		return "jailed"
	case StateInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// CommissionPair holds a validator's commission settings for an epoch.
type CommissionPair struct {
	Rate                        *decimal.Decimal
	MaxCommissionChangePerEpoch *decimal.Decimal
	Epoch                       uint64
}

// ValidatorMetadata is the self-declared validator description.
type ValidatorMetadata struct {
	Email         string
	Description   *string
	Website       *string
	DiscordHandle *string
	Avatar        *string
	Name          *string
}

// ConsensusSetEntry is one member of the consensus validator set.
type ConsensusSetEntry struct {
	Address     string
	BondedStake *uint256.Int
}

// PosParameters are the protocol-wide proof-of-stake constants.
type PosParameters struct {
	MaxValidatorSlots       uint64
	PipelineLen             uint64
	UnbondingLen            uint64
	CubicSlashingWindow     uint64
	ValidatorStakeThreshold *uint256.Int
	LivenessWindowCheck     uint64
	LivenessThreshold       decimal.Decimal
	MaxProposalPeriod       uint64
}

// NodeStatus is the RPC node's self-reported sync state.
type NodeStatus struct {
	LatestBlockHeight int64
	CatchingUp        bool
	Network           string
	NodeID            string
	Moniker           string
}
