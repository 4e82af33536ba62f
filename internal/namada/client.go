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

package namada

import (
	"context"
	"strconv"
	"strings"
	"time"

	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/namada-exporter/namada-exporter/internal/chain"
	"github.com/namada-exporter/namada-exporter/internal/common"
	"github.com/namada-exporter/namada-exporter/internal/logger"
)

const (
	maxRetries = 3
	baseDelay  = 100 * time.Millisecond
)

// rpcClient is the subset of the CometBFT RPC client the adapter uses.
type rpcClient interface {
	Status(ctx context.Context) (*ctypes.ResultStatus, error)
	ABCIQuery(ctx context.Context, path string, data cmtbytes.HexBytes) (*ctypes.ResultABCIQuery, error)
}

// Client answers chain.Querier calls against a Namada node's CometBFT RPC.
type Client struct {
	endpoint   string
	rpc        rpcClient
	posAddress string
}

var _ chain.Querier = (*Client)(nil)

// NewClient connects an RPC client to endpoint. A zero timeout selects the
// default HTTP timeout.
func NewClient(endpoint string, timeout time.Duration) (*Client, error) {
	if timeout == 0 {
		timeout = common.DefaultHTTPTimeout
	}
	seconds := uint(timeout.Round(time.Second) / time.Second)
	if seconds == 0 {
		seconds = 1
	}
	rpc, err := rpchttp.NewWithTimeout(endpoint, "/websocket", seconds)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create rpc client for %s", endpoint)
	}
	return newClient(endpoint, rpc), nil
}

func newClient(endpoint string, rpc rpcClient) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		rpc:        rpc,
		posAddress: PoSAddress(),
	}
}

// Endpoint returns the RPC endpoint the client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) CurrentEpoch(ctx context.Context) (uint64, error) {
	value, err := c.query(ctx, "/shell/epoch")
	if err != nil {
		return 0, err
	}
	r := newBorshReader(value)
	epoch, err := r.u64()
	if err != nil {
		return 0, errors.Wrap(err, "failed to decode epoch")
	}
	return epoch, r.done()
}

func (c *Client) ValidatorCommission(ctx context.Context, address string, epoch *uint64) (*chain.CommissionPair, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}
	value, err := c.query(ctx, withEpoch("/vp/pos/validator/commission/"+address, epoch))
	if err != nil {
		return nil, err
	}
	r := newBorshReader(value)
	pair := &chain.CommissionPair{}
	if pair.Rate, err = r.optionDec(); err != nil {
		return nil, errors.Wrap(err, "failed to decode commission rate")
	}
	if pair.MaxCommissionChangePerEpoch, err = r.optionDec(); err != nil {
		return nil, errors.Wrap(err, "failed to decode max commission change")
	}
	if pair.Epoch, err = r.u64(); err != nil {
		return nil, errors.Wrap(err, "failed to decode commission epoch")
	}
	return pair, r.done()
}

func (c *Client) ValidatorStake(ctx context.Context, address string, epoch uint64) (*uint256.Int, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}
	value, err := c.query(ctx, withEpoch("/vp/pos/validator/stake/"+address, &epoch))
	if err != nil {
		return nil, err
	}
	r := newBorshReader(value)
	some, err := r.option()
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode stake")
	}
	if !some {
		return new(uint256.Int), r.done()
	}
	stake, err := r.u256()
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode stake")
	}
	return stake, r.done()
}

func (c *Client) ValidatorMetadata(ctx context.Context, address string) (*chain.ValidatorMetadata, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}
	value, err := c.query(ctx, "/vp/pos/validator/metadata/"+address)
	if err != nil {
		return nil, err
	}
	r := newBorshReader(value)
	some, err := r.option()
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode metadata")
	}
	if !some {
		return nil, r.done()
	}
	md := &chain.ValidatorMetadata{}
	if md.Email, err = r.string(); err != nil {
		return nil, errors.Wrap(err, "failed to decode metadata email")
	}
	for _, field := range []**string{&md.Description, &md.Website, &md.DiscordHandle, &md.Avatar, &md.Name} {
		if *field, err = r.optionString(); err != nil {
			return nil, errors.Wrap(err, "failed to decode metadata")
		}
	}
	return md, r.done()
}

func (c *Client) ValidatorConsensusKeyHash(ctx context.Context, address string) (string, error) {
	if err := ValidateAddress(address); err != nil {
		return "", err
	}
	value, err := c.query(ctx, "/vp/pos/validator/consensus_key/"+address)
	if err != nil {
		return "", err
	}
	r := newBorshReader(value)
	some, err := r.option()
	if err != nil {
		return "", errors.Wrap(err, "failed to decode consensus key")
	}
	if !some {
		return "", r.done()
	}
	hash, err := r.consensusKeyHash()
	if err != nil {
		return "", errors.Wrap(err, "failed to decode consensus key")
	}
	return hash, r.done()
}

// ValidatorState returns the state at epoch, resolving the current epoch
// first when none is given.
func (c *Client) ValidatorState(ctx context.Context, address string, epoch *uint64) (*chain.ValidatorState, uint64, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, 0, err
	}
	var at uint64
	if epoch != nil {
		at = *epoch
	} else {
		current, err := c.CurrentEpoch(ctx)
		if err != nil {
			return nil, 0, err
		}
		at = current
	}
	value, err := c.query(ctx, withEpoch("/vp/pos/validator/state/"+address, &at))
	if err != nil {
		return nil, 0, err
	}
	r := newBorshReader(value)
	some, err := r.option()
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to decode validator state")
	}
	if !some {
		return nil, at, r.done()
	}
	state, err := r.validatorState()
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to decode validator state")
	}
	return &state, at, r.done()
}

func (c *Client) RawStorageValue(ctx context.Context, key string) ([]byte, error) {
	value, err := c.query(ctx, "/shell/value/"+key)
	if err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return nil, chain.ErrNotFound
	}
	return value, nil
}

func (c *Client) LivenessKey(address string) (string, error) {
	if err := ValidateAddress(address); err != nil {
		return "", err
	}
	return livenessKey(c.posAddress, address), nil
}

func (c *Client) ConsensusValidatorSet(ctx context.Context, epoch uint64) ([]chain.ConsensusSetEntry, error) {
	value, err := c.query(ctx, withEpoch("/vp/pos/validator_set/consensus", &epoch))
	if err != nil {
		return nil, err
	}
	r := newBorshReader(value)
	n, err := r.u32()
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode consensus set length")
	}
	entries := make([]chain.ConsensusSetEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		stake, err := r.u256()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode stake of consensus validator %d", i)
		}
		address, err := r.address()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode address of consensus validator %d", i)
		}
		entries = append(entries, chain.ConsensusSetEntry{Address: address, BondedStake: stake})
	}
	return entries, r.done()
}

func (c *Client) PosParameters(ctx context.Context) (*chain.PosParameters, error) {
	value, err := c.query(ctx, "/vp/pos/pos_params")
	if err != nil {
		return nil, err
	}
	params, err := decodePosParams(newBorshReader(value))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode pos params")
	}
	return params, nil
}

func (c *Client) NodeStatus(ctx context.Context) (*chain.NodeStatus, error) {
	var status *ctypes.ResultStatus
	err := c.retry(ctx, "status", func() error {
		var err error
		status, err = c.rpc.Status(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &chain.NodeStatus{
		LatestBlockHeight: status.SyncInfo.LatestBlockHeight,
		CatchingUp:        status.SyncInfo.CatchingUp,
		Network:           status.NodeInfo.Network,
		NodeID:            string(status.NodeInfo.DefaultNodeID),
		Moniker:           status.NodeInfo.Moniker,
	}, nil
}

// query runs an ABCI query and returns the response value.
func (c *Client) query(ctx context.Context, path string) ([]byte, error) {
	var res *ctypes.ResultABCIQuery
	err := c.retry(ctx, path, func() error {
		var err error
		res, err = c.rpc.ABCIQuery(ctx, path, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Response.Code != 0 {
		msg := res.Response.Info
		if msg == "" {
			msg = res.Response.Log
		}
		return nil, errors.Errorf("query %s failed with code %d: %s", path, res.Response.Code, msg)
	}
	logger.Debug("Query %s returned %d bytes", path, len(res.Response.Value))
	return res.Response.Value, nil
}

// retry runs fn up to maxRetries times with exponential backoff between
// transport failures.
func (c *Client) retry(ctx context.Context, what string, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Debug("Request %s failed (attempt %d/%d) on %s: %v", what, attempt+1, maxRetries, c.endpoint, err)
	}
	return errors.Wrapf(err, "%s failed after %d attempts", what, maxRetries)
}

func withEpoch(path string, epoch *uint64) string {
	if epoch == nil {
		return path
	}
	return path + "/" + strconv.FormatUint(*epoch, 10)
}
