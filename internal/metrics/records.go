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
	"github.com/holiman/uint256"
	"github.com/namada-exporter/namada-exporter/internal/chain"
	"github.com/shopspring/decimal"
)

// ValidatorSnapshot is the chain state of the configured validator gathered
// during a single scrape.
type ValidatorSnapshot struct {
	Address          string
	Commission       *chain.CommissionPair
	Stake            *uint256.Int
	ConsensusKeyHash string
	MissedBlocks     *uint64
	State            chain.ValidatorState
	Metadata         *chain.ValidatorMetadata
}

// ValidatorRecord holds the derived validator-scoped values. Nil fields are
// absent and are published as sentinels.
type ValidatorRecord struct {
	ChainID          string
	Address          string
	ConsensusKeyHash string

	UptimePercentage *int64
	State            chain.ValidatorState
	Rank             *int64
	MissedBlocks     *uint64
	TotalBonds       *uint256.Int
	Commission       *decimal.Decimal
}

// NetworkRecord holds the derived network-scoped values.
type NetworkRecord struct {
	ChainID              string
	Epoch                uint64
	CatchingUp           bool
	LowestActiveSetStake *uint256.Int
	MaxSetSize           uint64
	StakeThreshold       *uint256.Int
	ActiveSetSize        int
}

// NodeRecord holds the values reported by the RPC node itself.
type NodeRecord struct {
	ChainID     string
	NodeID      string
	Moniker     string
	LatestBlock int64
}
