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
	"fmt"

	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/cometbft/cometbft/crypto/secp256k1"

	"github.com/namada-exporter/namada-exporter/internal/chain"
)

// Borsh variant indices of common::PublicKey.
const (
	keyVariantEd25519   = 0
	keyVariantSecp256k1 = 1
)

// Borsh variant indices of the PoS ValidatorState enum.
var validatorStates = []chain.ValidatorState{
	chain.StateConsensus,
	chain.StateBelowCapacity,
	chain.StateBelowThreshold,
	chain.StateInactive,
	chain.StateJailed,
}

func (r *borshReader) validatorState() (chain.ValidatorState, error) {
	variant, err := r.u8()
	if err != nil {
		return chain.StateUnknown, err
	}
	if int(variant) >= len(validatorStates) {
		return chain.StateUnknown, fmt.Errorf("borsh: unknown validator state %d", variant)
	}
	return validatorStates[variant], nil
}

// consensusKeyHash decodes a public key and returns its Tendermint address
// as uppercase hex.
func (r *borshReader) consensusKeyHash() (string, error) {
	variant, err := r.u8()
	if err != nil {
		return "", err
	}
	switch variant {
	case keyVariantEd25519:
		b, err := r.take(ed25519.PubKeySize)
		if err != nil {
			return "", err
		}
		return ed25519.PubKey(b).Address().String(), nil
	case keyVariantSecp256k1:
		b, err := r.take(secp256k1.PubKeySize)
		if err != nil {
			return "", err
		}
		return secp256k1.PubKey(b).Address().String(), nil
	default:
		return "", fmt.Errorf("borsh: unsupported public key variant %d", variant)
	}
}

// decodePosParams reads PosParams: the owned parameters followed by the
// governance max proposal period.
func decodePosParams(r *borshReader) (*chain.PosParameters, error) {
	p := &chain.PosParameters{}
	var err error
	if p.MaxValidatorSlots, err = r.u64(); err != nil {
		return nil, err
	}
	if p.PipelineLen, err = r.u64(); err != nil {
		return nil, err
	}
	if p.UnbondingLen, err = r.u64(); err != nil {
		return nil, err
	}
	// tm_votes_per_token, block_proposer_reward, block_vote_reward,
	// max_inflation_rate, target_staked_ratio,
	// duplicate_vote_min_slash_rate, light_client_attack_min_slash_rate
	if err := r.skipDecs(7); err != nil {
		return nil, err
	}
	if p.CubicSlashingWindow, err = r.u64(); err != nil {
		return nil, err
	}
	if p.ValidatorStakeThreshold, err = r.u256(); err != nil {
		return nil, err
	}
	if p.LivenessWindowCheck, err = r.u64(); err != nil {
		return nil, err
	}
	if p.LivenessThreshold, err = r.dec(); err != nil {
		return nil, err
	}
	// rewards_gain_p, rewards_gain_d
	if err := r.skipDecs(2); err != nil {
		return nil, err
	}
	if p.MaxProposalPeriod, err = r.u64(); err != nil {
		return nil, err
	}
	return p, r.done()
}

func (r *borshReader) skipDecs(n int) error {
	_, err := r.take(32 * n)
	return err
}
