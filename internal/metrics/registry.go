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
	"bytes"
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// ContentType is the media type of Render output.
const ContentType = "application/openmetrics-text; version=1.0.0; charset=utf-8"

const absent = -1

var (
	validatorLabels = []string{"chain_id", "validator_tm_address", "validator_hash_address"}
	networkLabels   = []string{"chain_id"}
	nodeLabels      = []string{"chain_id", "node_id", "moniker"}
)

// Registry holds the published gauge families. Families render in the order
// they were registered.
type Registry struct {
	mu    sync.RWMutex
	reg   *prometheus.Registry
	order []string

	uptime     *prometheus.GaugeVec
	state      *prometheus.GaugeVec
	rank       *prometheus.GaugeVec
	missed     *prometheus.GaugeVec
	totalBonds *prometheus.GaugeVec
	commission *prometheus.GaugeVec

	epoch          *prometheus.GaugeVec
	catchUp        *prometheus.GaugeVec
	lowestStake    *prometheus.GaugeVec
	maxSetSize     *prometheus.GaugeVec
	stakeThreshold *prometheus.GaugeVec
	activeSetSize  *prometheus.GaugeVec

	latestBlock           *prometheus.GaugeVec
	deprecatedLatestBlock *prometheus.GaugeVec

	scrapeFailures *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.uptime = r.gauge("namada_validator_uptime_percentage",
		"Validator uptime in percentage; -1 value if validator not in active set", validatorLabels)
	r.state = r.gauge("namada_validator_state",
		"Validator state; 0 - unknown, 1 - active consensus set, 2 - active below capacity set, 3 - active below threshold set, 4 - jailed, 5 - inactive", validatorLabels)
	r.rank = r.gauge("namada_validator_active_set_rank",
		"Validator active set rank, -1 value if not in active set", validatorLabels)
	r.missed = r.gauge("namada_validator_missed_blocks",
		"Validator missed blocks in liveness window; -1 value if not in active set", validatorLabels)
	r.totalBonds = r.gauge("namada_validator_total_bonds",
		"Validator total bonds", validatorLabels)
	r.commission = r.gauge("namada_validator_commission",
		"Validator commission", validatorLabels)

	r.epoch = r.gauge("namada_network_epoch", "Current network epoch", networkLabels)
	r.catchUp = r.gauge("namada_node_catch_up",
		"Validator catch up status; 0 - not catching up, 1 - catching up", networkLabels)
	r.lowestStake = r.gauge("namada_network_lowest_active_set_stake", "Lowest active set stake", networkLabels)
	r.maxSetSize = r.gauge("namada_network_max_set_size", "Max set size", networkLabels)
	r.stakeThreshold = r.gauge("namada_network_stake_threshold", "Stake threshold", networkLabels)
	r.activeSetSize = r.gauge("namada_network_active_set_size", "Active set size", networkLabels)

	r.latestBlock = r.gauge("namada_node_latest_block", "Latest block from rpc", nodeLabels)
	r.deprecatedLatestBlock = r.gauge("namada_validator_node_latest_block",
		"Latest block from rpc. This metric is deprecated and will be removed in future versions please use namada_node_latest_block", networkLabels)

	r.scrapeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "namada_exporter_scrape_failures_total",
		Help: "Number of failed scrapes by pipeline stage",
	}, []string{"stage"})
	r.reg.MustRegister(r.scrapeFailures)
	r.order = append(r.order, "namada_exporter_scrape_failures_total")

	return r
}

func (r *Registry) gauge(name, help string, labels []string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
	r.reg.MustRegister(g)
	r.order = append(r.order, name)
	return g
}

// Publish writes the records into the registry. Absent values are written as
// sentinels. A concurrent Render observes either all of the records or none.
func (r *Registry) Publish(v *ValidatorRecord, n *NetworkRecord, node *NodeRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v != nil {
		labels := prometheus.Labels{
			"chain_id":               v.ChainID,
			"validator_tm_address":   v.Address,
			"validator_hash_address": v.ConsensusKeyHash,
		}
		r.uptime.With(labels).Set(optionalInt(v.UptimePercentage))
		r.state.With(labels).Set(float64(v.State.Number()))
		r.rank.With(labels).Set(optionalInt(v.Rank))
		if v.MissedBlocks != nil {
			r.missed.With(labels).Set(float64(*v.MissedBlocks))
		} else {
			r.missed.With(labels).Set(absent)
		}
		if v.TotalBonds != nil {
			r.totalBonds.With(labels).Set(amountFloat(v.TotalBonds))
		} else {
			r.totalBonds.With(labels).Set(absent)
		}
		commission := 0.0
		if v.Commission != nil {
			commission = v.Commission.Round(2).InexactFloat64()
		}
		r.commission.With(labels).Set(commission)
	}

	if n != nil {
		labels := prometheus.Labels{"chain_id": n.ChainID}
		r.epoch.With(labels).Set(float64(n.Epoch))
		catchUp := 0.0
		if n.CatchingUp {
			catchUp = 1
		}
		r.catchUp.With(labels).Set(catchUp)
		r.lowestStake.With(labels).Set(amountFloat(n.LowestActiveSetStake))
		r.maxSetSize.With(labels).Set(float64(n.MaxSetSize))
		r.stakeThreshold.With(labels).Set(amountFloat(n.StakeThreshold))
		r.activeSetSize.With(labels).Set(float64(n.ActiveSetSize))
	}

	if node != nil {
		r.latestBlock.With(prometheus.Labels{
			"chain_id": node.ChainID,
			"node_id":  node.NodeID,
			"moniker":  node.Moniker,
		}).Set(float64(node.LatestBlock))
		r.deprecatedLatestBlock.With(prometheus.Labels{"chain_id": node.ChainID}).Set(float64(node.LatestBlock))
	}
}

// RecordFailure counts a failed scrape at the given stage.
func (r *Registry) RecordFailure(stage string) {
	r.scrapeFailures.WithLabelValues(stage).Inc()
}

// Render encodes every family in the OpenMetrics text format.
func (r *Registry) Render() ([]byte, error) {
	r.mu.RLock()
	families, err := r.reg.Gather()
	r.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeOpenMetrics))
	for _, mf := range r.ordered(families) {
		if err := enc.Encode(mf); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	if closer, ok := enc.(expfmt.Closer); ok {
		if err := closer.Close(); err != nil {
			return nil, fmt.Errorf("failed to finish encoding: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// ordered sorts gathered families into registration order.
func (r *Registry) ordered(families []*dto.MetricFamily) []*dto.MetricFamily {
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}
	out := make([]*dto.MetricFamily, 0, len(families))
	for _, name := range r.order {
		if mf, ok := byName[name]; ok {
			out = append(out, mf)
			delete(byName, name)
		}
	}
	for _, mf := range families {
		if _, ok := byName[mf.GetName()]; ok {
			out = append(out, mf)
		}
	}
	return out
}

func optionalInt(v *int64) float64 {
	if v == nil {
		return absent
	}
	return float64(*v)
}

func amountFloat(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
