package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/cometbft/flowcontrol/config"
	"github.com/cometbft/flowcontrol/flowcontrol"
	cmtos "github.com/cometbft/flowcontrol/internal/os"
	"github.com/cometbft/flowcontrol/libs/cli"
	"github.com/cometbft/flowcontrol/libs/log"
	"github.com/cometbft/flowcontrol/version"
)

// setTestConfig points the package config at a fresh home directory.
func setTestConfig(t *testing.T) {
	t.Helper()
	config = cfg.TestConfig().SetRoot(t.TempDir())
	logger = log.TestingLogger()
	t.Cleanup(func() { config = cfg.DefaultConfig() })
}

func testCmd() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	return cmd, &buf
}

func TestInitFiles(t *testing.T) {
	setTestConfig(t)

	require.NoError(t, initFilesWithConfig(config))
	assert.True(t, cmtos.FileExists(config.PeerParamsFile()))

	peerParams, err := cfg.LoadPeerParamsFile(config.PeerParamsFile())
	require.NoError(t, err)
	assert.Equal(t, cfg.DefaultFlowControlConfig(), peerParams)

	// running it again keeps what is there
	require.NoError(t, cfg.WritePeerParamsFile(config.PeerParamsFile(), cfg.TestFlowControlConfig()))
	require.NoError(t, initFilesWithConfig(config))
	peerParams, err = cfg.LoadPeerParamsFile(config.PeerParamsFile())
	require.NoError(t, err)
	assert.Equal(t, cfg.TestFlowControlConfig(), peerParams)
}

func TestShowParams(t *testing.T) {
	setTestConfig(t)
	require.NoError(t, initFilesWithConfig(config))
	defer func() { showPeerParams = false }()

	for _, tc := range []struct {
		peer        bool
		bufferLimit int64
	}{
		{false, cfg.TestFlowControlConfig().BufferLimit},
		{true, cfg.DefaultFlowControlConfig().BufferLimit},
	} {
		showPeerParams = tc.peer
		cmd, out := testCmd()
		require.NoError(t, showParams(cmd, nil))

		var got flowControlParamsJSON
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, tc.bufferLimit, got.BufferLimit)
		assert.Equal(t, messageCostJSON{Base: 1000, PerItem: 1000}, got.MessageCosts[cfg.DefaultMessageKind])
	}
}

func TestBudget(t *testing.T) {
	setTestConfig(t)
	require.NoError(t, initFilesWithConfig(config))
	defer func() {
		budgetKind = cfg.DefaultMessageKind
		budgetBV = -1
		budgetElapsed = 0
	}()

	testCases := map[string]struct {
		bv      int64
		elapsed time.Duration
		args    []string
		want    string
	}{
		"full buffer":      {-1, 0, nil, "max_request_count: 299999\n"},
		"fits now":         {-1, 0, []string{"100"}, "max_request_count: 299999\nwait: 0s\n"},
		"recharged":        {0, 10 * time.Millisecond, nil, "max_request_count: 99\n"},
		"needs to wait":    {0, 10 * time.Millisecond, []string{"100"}, "max_request_count: 99\nwait: 100µs\n"},
		"exhausted budget": {500, 0, nil, "max_request_count: 0\n"},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			budgetKind = cfg.DefaultMessageKind
			budgetBV = tc.bv
			budgetElapsed = tc.elapsed

			cmd, out := testCmd()
			require.NoError(t, budget(cmd, tc.args))
			assert.Equal(t, tc.want, out.String())
		})
	}

	t.Run("unknown kind", func(t *testing.T) {
		budgetKind = "GetReceipts"
		cmd, _ := testCmd()
		err := budget(cmd, nil)
		require.ErrorIs(t, err, flowcontrol.ErrUnknownMessageKind)
	})

	t.Run("invalid count", func(t *testing.T) {
		budgetKind = cfg.DefaultMessageKind
		cmd, _ := testCmd()
		require.Error(t, budget(cmd, []string{"many"}))
	})
}

func TestSimulationStep(t *testing.T) {
	params, err := flowcontrol.ParamsFromConfig(cfg.TestFlowControlConfig())
	require.NoError(t, err)
	server, err := flowcontrol.NewFlowController(params)
	require.NoError(t, err)

	sim := &simulation{
		server:   server,
		kind:     cfg.DefaultMessageKind,
		maxItems: 50,
		logger:   log.TestingLogger(),
		peers:    []*simPeer{newSimPeer(params, false), newSimPeer(params, true)},
	}
	polite, greedy := sim.peers[0], sim.peers[1]

	for i := 0; i < 1000; i++ {
		require.NoError(t, sim.step(polite))
		require.NoError(t, sim.step(greedy))
	}

	assert.Zero(t, polite.drops, "a peer sizing requests by its estimate is never dropped")
	assert.Positive(t, polite.requests)
	assert.Positive(t, polite.skipped)
	assert.Positive(t, greedy.drops)

	var out bytes.Buffer
	sim.report(&out)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "PEER"))
	assert.Contains(t, lines[1], string(polite.id))
}

func TestSimulateCmd(t *testing.T) {
	setTestConfig(t)
	defer func() {
		simPeers, simGreedy = 4, 1
		simDuration, simInterval = 10*time.Second, 10*time.Millisecond
		simMaxItems, simFailOnDrop = 192, false
	}()
	simPeers, simGreedy = 3, 1
	simDuration, simInterval = 100*time.Millisecond, time.Millisecond
	simMaxItems, simFailOnDrop = 50, true

	cmd, out := testCmd()
	require.NoError(t, simulate(cmd, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 1+3)
}

func TestSimulateRejectsInvalidFlags(t *testing.T) {
	setTestConfig(t)
	defer func() {
		simPeers, simGreedy = 4, 1
		simDuration, simInterval = 10*time.Second, 10*time.Millisecond
		simMaxItems = 192
	}()

	testCases := map[string]func(){
		"zero interval":      func() { simInterval = 0 },
		"negative interval":  func() { simInterval = -time.Second },
		"zero max items":     func() { simMaxItems = 0 },
		"negative max items": func() { simMaxItems = -1 },
		"zero duration":      func() { simDuration = 0 },
		"negative peers":     func() { simPeers = -1 },
		"too many greedy":    func() { simGreedy = 5 },
	}
	for name, modify := range testCases {
		t.Run(name, func(t *testing.T) {
			simPeers, simGreedy = 4, 1
			simDuration, simInterval = 10*time.Second, 10*time.Millisecond
			simMaxItems = 192
			modify()

			cmd, out := testCmd()
			require.NotPanics(t, func() {
				assert.Error(t, simulate(cmd, nil))
			})
			assert.Empty(t, out.String())
		})
	}
}

func TestVersionCmd(t *testing.T) {
	defer clearConfig(t)
	rootCmd := testRootCmd()
	rootCmd.AddCommand(VersionCmd)
	exec := cli.PrepareBaseCmd(rootCmd, "FC", t.TempDir())

	stdout, _, err := cli.RunCaptureWithArgs(exec, []string{rootCmd.Use, "version"}, nil)
	require.NoError(t, err)
	assert.Equal(t, version.FCSemVer+"\n", stdout)
}
