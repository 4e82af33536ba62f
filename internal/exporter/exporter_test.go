package exporter

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namada-exporter/namada-exporter/internal/chain"
	"github.com/namada-exporter/namada-exporter/internal/metrics"
	"github.com/namada-exporter/namada-exporter/internal/testutil"
)

var series = `{chain_id="` + testutil.ChainID + `",validator_hash_address="` + testutil.ConsensusKeyHash +
	`",validator_tm_address="` + testutil.ValidatorAddress + `"}`

func newTestExporter(q chain.Querier) *Exporter {
	return New(q, metrics.NewRegistry(), testutil.ValidatorAddress)
}

func rendered(t *testing.T, e *Exporter) string {
	t.Helper()
	out, err := e.Render()
	require.NoError(t, err)
	return string(out)
}

func TestScrape(t *testing.T) {
	e := newTestExporter(testutil.NewFakeQuerier())

	require.NoError(t, e.Scrape(context.Background()))

	out := rendered(t, e)
	assert.Contains(t, out, "namada_validator_uptime_percentage"+series+" 90.0\n")
	assert.Contains(t, out, "namada_validator_active_set_rank"+series+" 2.0\n")
	assert.Contains(t, out, "namada_validator_total_bonds"+series+" 50000.0\n")
	assert.Contains(t, out, "namada_validator_missed_blocks"+series+" 900.0\n")
	assert.Contains(t, out, "namada_validator_state"+series+" 1.0\n")
	assert.Contains(t, out, "namada_validator_commission"+series+" 0.05\n")
	assert.Contains(t, out, `namada_network_active_set_size{chain_id="`+testutil.ChainID+`"} 3.0`)
	assert.Contains(t, out, `namada_network_lowest_active_set_stake{chain_id="`+testutil.ChainID+`"} 20000.0`)
	assert.Contains(t, out, `namada_network_epoch{chain_id="`+testutil.ChainID+`"} 42.0`)
	assert.Contains(t, out, `namada_node_latest_block{chain_id="`+testutil.ChainID+`",moniker="validator-1",node_id="`+testutil.NodeID+`"} 1000.0`)
}

func TestScrape_SingleEpoch(t *testing.T) {
	q := testutil.NewFakeQuerier()
	q.Epoch = 77
	e := newTestExporter(q)

	require.NoError(t, e.Scrape(context.Background()))

	assert.Equal(t, map[string]uint64{
		"ValidatorCommission":   77,
		"ValidatorStake":        77,
		"ValidatorState":        77,
		"ConsensusValidatorSet": 77,
	}, q.EpochsUsed())
}

func TestScrape_FailureKeepsPreviousValues(t *testing.T) {
	q := testutil.NewFakeQuerier()
	e := newTestExporter(q)
	require.NoError(t, e.Scrape(context.Background()))

	q.Stake = uint256.NewInt(1)
	q.Fail("PosParameters", errors.New("connection refused"))

	err := e.Scrape(context.Background())
	var scrapeErr *ScrapeError
	require.ErrorAs(t, err, &scrapeErr)
	assert.Equal(t, StageQuerying, scrapeErr.Stage)
	assert.Contains(t, err.Error(), "connection refused")

	out := rendered(t, e)
	assert.Contains(t, out, "namada_validator_total_bonds"+series+" 50000.0\n")
	assert.Contains(t, out, `namada_exporter_scrape_failures_total{stage="querying"} 1.0`)
}

func TestScrape_QueryFailures(t *testing.T) {
	for _, method := range []string{
		"CurrentEpoch",
		"NodeStatus",
		"ValidatorCommission",
		"ValidatorStake",
		"ValidatorMetadata",
		"ValidatorConsensusKeyHash",
		"ValidatorState",
		"ConsensusValidatorSet",
		"PosParameters",
	} {
		t.Run(method, func(t *testing.T) {
			q := testutil.NewFakeQuerier()
			q.Fail(method, errors.New("rpc unavailable"))
			e := newTestExporter(q)

			err := e.Scrape(context.Background())

			var scrapeErr *ScrapeError
			require.ErrorAs(t, err, &scrapeErr)
			assert.Equal(t, StageQuerying, scrapeErr.Stage)
			assert.NotContains(t, rendered(t, e), "namada_validator_state")
		})
	}
}

func TestScrape_EmptyConsensusSet(t *testing.T) {
	q := testutil.NewFakeQuerier()
	q.ConsensusSet = nil
	e := newTestExporter(q)

	err := e.Scrape(context.Background())

	var scrapeErr *ScrapeError
	require.ErrorAs(t, err, &scrapeErr)
	assert.Equal(t, StageDeriving, scrapeErr.Stage)
	assert.ErrorIs(t, err, metrics.ErrEmptyConsensusSet)
}

func TestScrape_MissedBlocksUnknown(t *testing.T) {
	tests := []struct {
		name  string
		setup func(q *testutil.FakeQuerier)
	}{
		{
			name:  "no liveness record",
			setup: func(q *testutil.FakeQuerier) { q.Storage = map[string][]byte{} },
		},
		{
			name:  "liveness read fails",
			setup: func(q *testutil.FakeQuerier) { q.Fail("RawStorageValue", errors.New("timeout")) },
		},
		{
			name: "malformed liveness value",
			setup: func(q *testutil.FakeQuerier) {
				for k := range q.Storage {
					q.Storage[k] = []byte{1, 2, 3}
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := testutil.NewFakeQuerier()
			tt.setup(q)
			e := newTestExporter(q)

			require.NoError(t, e.Scrape(context.Background()))

			out := rendered(t, e)
			assert.Contains(t, out, "namada_validator_uptime_percentage"+series+" -1.0\n")
			assert.Contains(t, out, "namada_validator_missed_blocks"+series+" -1.0\n")
			assert.Contains(t, out, "namada_validator_active_set_rank"+series+" 2.0\n")
		})
	}
}

func TestScrape_ValidatorNotInSet(t *testing.T) {
	q := testutil.NewFakeQuerier()
	q.ConsensusSet = q.ConsensusSet[:2]
	jailed := chain.StateJailed
	q.State = &jailed
	q.Commission = nil
	e := newTestExporter(q)

	require.NoError(t, e.Scrape(context.Background()))

	out := rendered(t, e)
	assert.Contains(t, out, "namada_validator_active_set_rank"+series+" -1.0\n")
	assert.Contains(t, out, "namada_validator_uptime_percentage"+series+" -1.0\n")
	assert.Contains(t, out, "namada_validator_missed_blocks"+series+" -1.0\n")
	assert.Contains(t, out, "namada_validator_total_bonds"+series+" -1.0\n")
	assert.Contains(t, out, "namada_validator_commission"+series+" 0.0\n")
	assert.Contains(t, out, "namada_validator_state"+series+" 4.0\n")
	assert.Contains(t, out, `namada_network_active_set_size{chain_id="`+testutil.ChainID+`"} 2.0`)
}

func TestScrape_CancelledBeforePublish(t *testing.T) {
	e := newTestExporter(testutil.NewFakeQuerier())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Scrape(ctx)

	var scrapeErr *ScrapeError
	require.ErrorAs(t, err, &scrapeErr)
	assert.Equal(t, StagePublishing, scrapeErr.Stage)
	assert.ErrorIs(t, err, context.Canceled)
	out := rendered(t, e)
	assert.NotContains(t, out, "namada_validator_state")
	assert.NotContains(t, out, "namada_exporter_scrape_failures_total")
}

func TestScrape_DeadlineCountsAsFailure(t *testing.T) {
	q := testutil.NewFakeQuerier()
	q.Fail("CurrentEpoch", context.DeadlineExceeded)
	e := newTestExporter(q)

	err := e.Scrape(context.Background())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, rendered(t, e), `namada_exporter_scrape_failures_total{stage="querying"} 1.0`)
}
