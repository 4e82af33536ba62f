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

package exporter

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/namada-exporter/namada-exporter/internal/chain"
	"github.com/namada-exporter/namada-exporter/internal/logger"
	"github.com/namada-exporter/namada-exporter/internal/metrics"
)

// Scrape stages.
const (
	StageQuerying   = "querying"
	StageDeriving   = "deriving"
	StagePublishing = "publishing"
)

// ScrapeError reports the stage at which a scrape failed. The registry is
// left untouched whenever a ScrapeError is returned.
type ScrapeError struct {
	Stage string
	Err   error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape failed while %s: %v", e.Stage, e.Err)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// Exporter refreshes the registry from the chain on demand.
type Exporter struct {
	querier  chain.Querier
	registry *metrics.Registry
	address  string
}

func New(querier chain.Querier, registry *metrics.Registry, address string) *Exporter {
	return &Exporter{
		querier:  querier,
		registry: registry,
		address:  address,
	}
}

// inputs is everything one scrape reads from the chain.
type inputs struct {
	epoch     uint64
	status    *chain.NodeStatus
	validator *metrics.ValidatorSnapshot
	set       []chain.ConsensusSetEntry
	params    *chain.PosParameters
}

// Scrape queries the chain, derives the metric records and publishes them.
// Either every record is published or none is.
func (e *Exporter) Scrape(ctx context.Context) error {
	logger.Info("Querying metrics for validator: %s", e.address)

	in, err := e.query(ctx)
	if err != nil {
		return e.fail(StageQuerying, err)
	}

	validator, err := metrics.DeriveValidator(in.status.Network, in.validator, in.set, in.params)
	if err != nil {
		return e.fail(StageDeriving, err)
	}
	network, err := metrics.DeriveNetwork(in.epoch, in.status, in.set, in.params)
	if err != nil {
		return e.fail(StageDeriving, err)
	}
	node := metrics.DeriveNode(in.status)

	// A client that went away must not cause registry writes.
	if err := ctx.Err(); err != nil {
		return e.fail(StagePublishing, err)
	}
	e.registry.Publish(validator, network, node)

	logger.Info("Scrape finished: epoch %d, block %d, active set size %d", in.epoch, node.LatestBlock, network.ActiveSetSize)
	return nil
}

// Render returns the current registry contents.
func (e *Exporter) Render() ([]byte, error) {
	return e.registry.Render()
}

func (e *Exporter) fail(stage string, err error) error {
	// A caller that went away is not a chain fault.
	if errors.Is(err, context.Canceled) {
		logger.Debug("Scrape cancelled while %s", stage)
		return &ScrapeError{Stage: stage, Err: err}
	}
	e.registry.RecordFailure(stage)
	logger.Error("Scrape failed while %s: %v", stage, err)
	return &ScrapeError{Stage: stage, Err: err}
}

func (e *Exporter) query(ctx context.Context) (*inputs, error) {
	in := &inputs{}
	var err error

	logger.Info("Querying epoch")
	if in.epoch, err = e.querier.CurrentEpoch(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Queried epoch: %d", in.epoch)

	logger.Info("Querying status")
	if in.status, err = e.querier.NodeStatus(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Queried status: %+v", *in.status)

	logger.Info("Querying validator data")
	if in.validator, err = e.queryValidator(ctx, in.epoch); err != nil {
		return nil, err
	}

	logger.Info("Querying consensus validator set")
	if in.set, err = e.querier.ConsensusValidatorSet(ctx, in.epoch); err != nil {
		return nil, err
	}
	logger.Debug("Queried %d consensus validators", len(in.set))

	logger.Info("Querying pos params")
	if in.params, err = e.querier.PosParameters(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Queried pos params: %+v", *in.params)

	return in, nil
}

func (e *Exporter) queryValidator(ctx context.Context, epoch uint64) (*metrics.ValidatorSnapshot, error) {
	snap := &metrics.ValidatorSnapshot{Address: e.address}

	commission, err := e.querier.ValidatorCommission(ctx, e.address, &epoch)
	if err != nil {
		return nil, err
	}
	snap.Commission = commission

	if snap.Stake, err = e.querier.ValidatorStake(ctx, e.address, epoch); err != nil {
		return nil, err
	}
	if snap.Metadata, err = e.querier.ValidatorMetadata(ctx, e.address); err != nil {
		return nil, err
	}
	if snap.ConsensusKeyHash, err = e.querier.ValidatorConsensusKeyHash(ctx, e.address); err != nil {
		return nil, err
	}

	state, _, err := e.querier.ValidatorState(ctx, e.address, &epoch)
	if err != nil {
		return nil, err
	}
	if state != nil {
		snap.State = *state
	}

	snap.MissedBlocks = e.missedBlocks(ctx)
	logger.Debug("Queried validator %s: state %s, consensus key %s", e.address, snap.State, snap.ConsensusKeyHash)
	return snap, nil
}

// missedBlocks reads the liveness counter of the validator. Any failure to
// read it is reported as an unknown count.
func (e *Exporter) missedBlocks(ctx context.Context) *uint64 {
	key, err := e.querier.LivenessKey(e.address)
	if err != nil {
		logger.Warn("Failed to build liveness key for %s: %v", e.address, err)
		return nil
	}

	raw, err := e.querier.RawStorageValue(ctx, key)
	if errors.Is(err, chain.ErrNotFound) {
		logger.Debug("No liveness record for %s", e.address)
		return nil
	}
	if err != nil {
		logger.Warn("Failed to read missed blocks for %s: %v", e.address, err)
		return nil
	}
	if len(raw) != 8 {
		logger.Warn("Unexpected liveness value length %d for %s", len(raw), e.address)
		return nil
	}

	missed := binary.LittleEndian.Uint64(raw)
	return &missed
}
