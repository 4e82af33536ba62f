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

package testutil

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/namada-exporter/namada-exporter/internal/chain"
)

// Fixture values shared by the exporter and server tests.
const (
	ValidatorAddress = "tnam1q8lhvxys53dlc8wzlg7dyqf9avd0vff6wvav4amt"
	ConsensusKeyHash = "1F3A5C7E9B2D4F6A8C0E1B3D5F7A9C2E4B6D8F0A"
	ChainID          = "namada-test.0a1b2c3d4e5f"
	NodeID           = "8d7f1e2c3b4a59687f6e5d4c3b2a19087f6e5d4c"
	Moniker          = "validator-1"
	Epoch            = uint64(42)
)

// FakeQuerier is an in-memory chain.Querier. Errors keyed by method name are
// returned instead of the configured values.
type FakeQuerier struct {
	Epoch        uint64
	Commission   *chain.CommissionPair
	Stake        *uint256.Int
	Metadata     *chain.ValidatorMetadata
	KeyHash      string
	State        *chain.ValidatorState
	Storage      map[string][]byte
	ConsensusSet []chain.ConsensusSetEntry
	Params       *chain.PosParameters
	Status       *chain.NodeStatus
	Errors       map[string]error

	mu     sync.Mutex
	epochs map[string]uint64
}

var _ chain.Querier = (*FakeQuerier)(nil)

// NewFakeQuerier returns a querier for a validator ranked second out of three
// with 900 missed blocks over a 10000 block window.
func NewFakeQuerier() *FakeQuerier {
	rate := decimal.RequireFromString("0.05")
	maxChange := decimal.RequireFromString("0.01")
	state := chain.StateConsensus

	q := &FakeQuerier{
		Epoch:      Epoch,
		Commission: &chain.CommissionPair{Rate: &rate, MaxCommissionChangePerEpoch: &maxChange, Epoch: Epoch},
		Stake:      uint256.NewInt(50000),
		KeyHash:    ConsensusKeyHash,
		State:      &state,
		Storage:    map[string][]byte{},
		ConsensusSet: []chain.ConsensusSetEntry{
			{Address: "tnam1qxfj3sf6a0meahdu9t6znp05g8zx4dkjtgyn9gfu", BondedStake: uint256.NewInt(20000)},
			{Address: "tnam1q8xumnwdehxumnwdehxumnwdehxumnwde56npg63", BondedStake: uint256.NewInt(80000)},
			{Address: ValidatorAddress, BondedStake: uint256.NewInt(50000)},
		},
		Params: &chain.PosParameters{
			MaxValidatorSlots:       100,
			PipelineLen:             2,
			UnbondingLen:            3,
			ValidatorStakeThreshold: uint256.NewInt(1000),
			LivenessWindowCheck:     10000,
			LivenessThreshold:       decimal.RequireFromString("0.1"),
		},
		Status: &chain.NodeStatus{
			LatestBlockHeight: 1000,
			Network:           ChainID,
			NodeID:            NodeID,
			Moniker:           Moniker,
		},
		Errors: map[string]error{},
		epochs: map[string]uint64{},
	}
	q.Storage[livenessKey(ValidatorAddress)] = binary.LittleEndian.AppendUint64(nil, 900)
	return q
}

// Fail makes method return err until it is cleared with a nil err.
func (q *FakeQuerier) Fail(method string, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err == nil {
		delete(q.Errors, method)
		return
	}
	q.Errors[method] = err
}

// EpochsUsed returns the epoch each epoch-scoped method was last called with.
func (q *FakeQuerier) EpochsUsed() map[string]uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[string]uint64, len(q.epochs))
	for k, v := range q.epochs {
		out[k] = v
	}
	return out
}

func (q *FakeQuerier) record(method string, epoch *uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if epoch != nil {
		q.epochs[method] = *epoch
	}
	return q.Errors[method]
}

func (q *FakeQuerier) CurrentEpoch(_ context.Context) (uint64, error) {
	if err := q.record("CurrentEpoch", nil); err != nil {
		return 0, err
	}
	return q.Epoch, nil
}

func (q *FakeQuerier) ValidatorCommission(_ context.Context, _ string, epoch *uint64) (*chain.CommissionPair, error) {
	if err := q.record("ValidatorCommission", epoch); err != nil {
		return nil, err
	}
	return q.Commission, nil
}

func (q *FakeQuerier) ValidatorStake(_ context.Context, _ string, epoch uint64) (*uint256.Int, error) {
	if err := q.record("ValidatorStake", &epoch); err != nil {
		return nil, err
	}
	return q.Stake, nil
}

func (q *FakeQuerier) ValidatorMetadata(_ context.Context, _ string) (*chain.ValidatorMetadata, error) {
	if err := q.record("ValidatorMetadata", nil); err != nil {
		return nil, err
	}
	return q.Metadata, nil
}

func (q *FakeQuerier) ValidatorConsensusKeyHash(_ context.Context, _ string) (string, error) {
	if err := q.record("ValidatorConsensusKeyHash", nil); err != nil {
		return "", err
	}
	return q.KeyHash, nil
}

func (q *FakeQuerier) ValidatorState(_ context.Context, _ string, epoch *uint64) (*chain.ValidatorState, uint64, error) {
	if err := q.record("ValidatorState", epoch); err != nil {
		return nil, 0, err
	}
	e := q.Epoch
	if epoch != nil {
		e = *epoch
	}
	return q.State, e, nil
}

func (q *FakeQuerier) RawStorageValue(_ context.Context, key string) ([]byte, error) {
	if err := q.record("RawStorageValue", nil); err != nil {
		return nil, err
	}
	v, ok := q.Storage[key]
	if !ok {
		return nil, chain.ErrNotFound
	}
	return v, nil
}

func (q *FakeQuerier) LivenessKey(address string) (string, error) {
	if err := q.record("LivenessKey", nil); err != nil {
		return "", err
	}
	return livenessKey(address), nil
}

func (q *FakeQuerier) ConsensusValidatorSet(_ context.Context, epoch uint64) ([]chain.ConsensusSetEntry, error) {
	if err := q.record("ConsensusValidatorSet", &epoch); err != nil {
		return nil, err
	}
	return q.ConsensusSet, nil
}

func (q *FakeQuerier) PosParameters(_ context.Context) (*chain.PosParameters, error) {
	if err := q.record("PosParameters", nil); err != nil {
		return nil, err
	}
	return q.Params, nil
}

func (q *FakeQuerier) NodeStatus(_ context.Context) (*chain.NodeStatus, error) {
	if err := q.record("NodeStatus", nil); err != nil {
		return nil, err
	}
	return q.Status, nil
}

func livenessKey(address string) string {
	return "liveness/" + address
}
