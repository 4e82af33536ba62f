package metrics

import (
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namada-exporter/namada-exporter/internal/chain"
)

const validatorSeries = `{chain_id="namada-test",validator_hash_address="ABCDEF",validator_tm_address="V"}`

func sampleRecords() (*ValidatorRecord, *NetworkRecord, *NodeRecord) {
	rate := decimal.RequireFromString("0.0512")
	status := &chain.NodeStatus{Network: "namada-test", NodeID: "abc123", Moniker: "validator-1", LatestBlockHeight: 1000}
	set := []chain.ConsensusSetEntry{entry("A", 60000), entry("V", 50000), entry("B", 10000)}
	snap := &ValidatorSnapshot{
		Address:          "V",
		Commission:       &chain.CommissionPair{Rate: &rate},
		Stake:            uint256.NewInt(50000),
		ConsensusKeyHash: "ABCDEF",
		MissedBlocks:     u64(900),
		State:            chain.StateConsensus,
	}

	v, err := DeriveValidator(status.Network, snap, set, testParams())
	if err != nil {
		panic(err)
	}
	n, err := DeriveNetwork(7, status, set, testParams())
	if err != nil {
		panic(err)
	}
	return v, n, DeriveNode(status)
}

func render(t *testing.T, r *Registry) string {
	t.Helper()
	out, err := r.Render()
	require.NoError(t, err)
	return string(out)
}

func TestRegistry_Render(t *testing.T) {
	r := NewRegistry()
	r.Publish(sampleRecords())

	out := render(t, r)

	for _, line := range []string{
		"namada_validator_uptime_percentage" + validatorSeries + " 90.0",
		"namada_validator_state" + validatorSeries + " 1.0",
		"namada_validator_active_set_rank" + validatorSeries + " 2.0",
		"namada_validator_missed_blocks" + validatorSeries + " 900.0",
		"namada_validator_total_bonds" + validatorSeries + " 50000.0",
		"namada_validator_commission" + validatorSeries + " 0.05",
		`namada_network_epoch{chain_id="namada-test"} 7.0`,
		`namada_node_catch_up{chain_id="namada-test"} 0.0`,
		`namada_network_lowest_active_set_stake{chain_id="namada-test"} 10000.0`,
		`namada_network_max_set_size{chain_id="namada-test"} 100.0`,
		`namada_network_stake_threshold{chain_id="namada-test"} 1000.0`,
		`namada_network_active_set_size{chain_id="namada-test"} 3.0`,
		`namada_node_latest_block{chain_id="namada-test",moniker="validator-1",node_id="abc123"} 1000.0`,
		`namada_validator_node_latest_block{chain_id="namada-test"} 1000.0`,
	} {
		assert.Contains(t, out, line+"\n")
	}
	assert.Contains(t, out, "# HELP namada_validator_state Validator state; 0 - unknown, 1 - active consensus set")
	assert.Contains(t, out, "# TYPE namada_validator_uptime_percentage gauge")
	assert.True(t, strings.HasSuffix(out, "# EOF\n"))
}

func TestRegistry_RenderOrder(t *testing.T) {
	r := NewRegistry()
	r.Publish(sampleRecords())

	out := render(t, r)

	var families []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "# TYPE ") {
			families = append(families, strings.Fields(line)[2])
		}
	}
	assert.Equal(t, []string{
		"namada_validator_uptime_percentage",
		"namada_validator_state",
		"namada_validator_active_set_rank",
		"namada_validator_missed_blocks",
		"namada_validator_total_bonds",
		"namada_validator_commission",
		"namada_network_epoch",
		"namada_node_catch_up",
		"namada_network_lowest_active_set_stake",
		"namada_network_max_set_size",
		"namada_network_stake_threshold",
		"namada_network_active_set_size",
		"namada_node_latest_block",
		"namada_validator_node_latest_block",
	}, families)
}

func TestRegistry_RenderDeterministic(t *testing.T) {
	r := NewRegistry()
	r.Publish(sampleRecords())
	first := render(t, r)

	r.Publish(sampleRecords())
	assert.Equal(t, first, render(t, r))
}

func TestRegistry_AbsentValidatorSentinels(t *testing.T) {
	r := NewRegistry()
	r.Publish(&ValidatorRecord{
		ChainID:          "namada-test",
		Address:          "V",
		ConsensusKeyHash: "ABCDEF",
		State:            chain.StateJailed,
	}, nil, nil)

	out := render(t, r)

	assert.Contains(t, out, "namada_validator_uptime_percentage"+validatorSeries+" -1.0\n")
	assert.Contains(t, out, "namada_validator_active_set_rank"+validatorSeries+" -1.0\n")
	assert.Contains(t, out, "namada_validator_missed_blocks"+validatorSeries+" -1.0\n")
	assert.Contains(t, out, "namada_validator_total_bonds"+validatorSeries+" -1.0\n")
	assert.Contains(t, out, "namada_validator_commission"+validatorSeries+" 0.0\n")
	assert.Contains(t, out, "namada_validator_state"+validatorSeries+" 4.0\n")
}

func TestRegistry_RecordFailure(t *testing.T) {
	r := NewRegistry()
	r.RecordFailure("querying")
	r.RecordFailure("querying")

	out := render(t, r)

	assert.Contains(t, out, "# TYPE namada_exporter_scrape_failures counter")
	assert.Contains(t, out, `namada_exporter_scrape_failures_total{stage="querying"} 2.0`)
}
