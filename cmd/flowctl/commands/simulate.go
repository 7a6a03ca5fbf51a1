package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	cfg "github.com/cometbft/flowcontrol/config"
	"github.com/cometbft/flowcontrol/flowcontrol"
	"github.com/cometbft/flowcontrol/libs/cli"
	"github.com/cometbft/flowcontrol/libs/log"
	cmtrand "github.com/cometbft/flowcontrol/libs/rand"
	"github.com/cometbft/flowcontrol/p2p"
	"github.com/cometbft/flowcontrol/p2p/mock"
)

var (
	simPeers      int
	simGreedy     int
	simDuration   time.Duration
	simInterval   time.Duration
	simMaxItems   int64
	simFailOnDrop bool
)

// SimulateCmd serves simulated peers from a single flow controller.
var SimulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Serve simulated peers and report who gets dropped",
	Long: `Runs a flow controller with the local parameters serving --peers simulated
clients for --duration. Well behaved clients size every request with their own
estimate of our buffer value; the --greedy ones don't and are eventually
dropped. When prometheus is enabled in the config the controller metrics are
served while the simulation runs.`,
	RunE: simulate,
}

func init() {
	SimulateCmd.Flags().IntVar(&simPeers, "peers", 4, "number of simulated peers")
	SimulateCmd.Flags().IntVar(&simGreedy, "greedy", 1, "how many of the peers ignore their budget")
	SimulateCmd.Flags().DurationVar(&simDuration, "duration", 10*time.Second, "how long to run")
	SimulateCmd.Flags().DurationVar(&simInterval, "interval", 10*time.Millisecond, "time between two requests of a peer")
	SimulateCmd.Flags().Int64Var(&simMaxItems, "max-items", 192, "maximum items per request")
	SimulateCmd.Flags().BoolVar(&simFailOnDrop, "fail-on-drop", false, "exit with code 2 if a well behaved peer was dropped")
}

func simulate(cmd *cobra.Command, _ []string) error {
	if err := validateSimulateFlags(); err != nil {
		return err
	}
	params, err := flowcontrol.ParamsFromConfig(config.FlowControl)
	if err != nil {
		return err
	}

	metrics := flowcontrol.NopMetrics()
	if config.Instrumentation.IsPrometheusEnabled() {
		metrics = flowcontrol.PrometheusMetrics(config.Instrumentation.Namespace, "moniker", config.Moniker)
	}
	server, err := flowcontrol.NewFlowController(params,
		flowcontrol.WithLogger(logger.With("module", "flowcontrol")),
		flowcontrol.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancel = context.WithTimeout(ctx, simDuration)
	defer cancel()

	sim := &simulation{
		server:   server,
		kind:     cfg.DefaultMessageKind,
		interval: simInterval,
		maxItems: simMaxItems,
		logger:   logger,
	}
	for i := 0; i < simPeers; i++ {
		sim.peers = append(sim.peers, newSimPeer(params, i < simGreedy))
	}

	g, ctx := errgroup.WithContext(ctx)
	if config.Instrumentation.IsPrometheusEnabled() {
		startMetricsServer(ctx, g, config.Instrumentation.PrometheusListenAddr)
	}
	g.Go(func() error { return sim.run(ctx) })
	if err := g.Wait(); err != nil {
		return err
	}

	sim.report(cmd.OutOrStdout())
	if simFailOnDrop {
		for _, p := range sim.peers {
			if !p.greedy && p.drops > 0 {
				return cli.ExitCodeError{Err: fmt.Errorf("well behaved peer %s was dropped", p.id), Code: 2}
			}
		}
	}
	return nil
}

func validateSimulateFlags() error {
	switch {
	case simPeers < 0:
		return fmt.Errorf("--peers can't be negative, got %d", simPeers)
	case simGreedy < 0 || simGreedy > simPeers:
		return fmt.Errorf("--greedy must be between 0 and --peers (%d), got %d", simPeers, simGreedy)
	case simDuration <= 0:
		return fmt.Errorf("--duration must be positive, got %s", simDuration)
	case simInterval <= 0:
		return fmt.Errorf("--interval must be positive, got %s", simInterval)
	case simMaxItems <= 0:
		return fmt.Errorf("--max-items must be positive, got %d", simMaxItems)
	}
	return nil
}

func startMetricsServer(ctx context.Context, g *errgroup.Group, addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 3 * time.Second,
	}
	g.Go(func() error {
		logger.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// simPeer is a remote client. It keeps its own flow controller to estimate
// what it may still request from us.
type simPeer struct {
	id     p2p.ID
	greedy bool

	// client side view of the server
	estimator *flowcontrol.FlowController
	server    *mock.Peer

	requests int64
	items    int64
	skipped  int64
	drops    int64
}

func newSimPeer(serverParams *flowcontrol.Params, greedy bool) *simPeer {
	estimator, err := flowcontrol.NewFlowController(serverParams)
	if err != nil {
		panic(err)
	}
	server := mock.NewPeer("")
	flowcontrol.SetPeerParams(server, serverParams)
	return &simPeer{
		id:        p2p.RandomID(),
		greedy:    greedy,
		estimator: estimator,
		server:    server,
	}
}

type simulation struct {
	server   *flowcontrol.FlowController
	kind     string
	interval time.Duration
	maxItems int64
	logger   log.Logger

	peers []*simPeer
}

// run drives every peer in its own goroutine until ctx is done.
func (s *simulation) run(ctx context.Context) error {
	var g errgroup.Group
	for _, p := range s.peers {
		p := p
		g.Go(func() error { return s.drive(ctx, p) })
	}
	return g.Wait()
}

func (s *simulation) drive(ctx context.Context, p *simPeer) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.server.RemovePeer(p.id)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := s.step(p); err != nil {
			return err
		}
	}
}

// step sends one request from p and updates both sides.
func (s *simulation) step(p *simPeer) error {
	items := cmtrand.Int63n(s.maxItems) + 1
	if !p.greedy {
		n, err := p.estimator.MaxRequestCount(p.server, s.kind)
		if err != nil {
			return err
		}
		if n == 0 {
			p.skipped++
			return nil
		}
		items = min(items, n)
	}

	bv, err := s.server.ChargeRequest(p.id, s.kind, items)
	if err != nil {
		return err
	}
	p.requests++
	if bv < 0 {
		// disconnect, the peer reconnects with a clean slate on both sides
		p.drops++
		s.server.RemovePeer(p.id)
		p.estimator.RemovePeer(p.server.ID())
		s.logger.Debug("Dropped peer", "peer", p.id, "greedy", p.greedy)
		return nil
	}
	p.items += items
	p.estimator.RecordAnnouncement(p.server.ID(), bv)
	return nil
}

func (s *simulation) report(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PEER\tGREEDY\tREQUESTS\tITEMS\tSKIPPED\tDROPS")
	for _, p := range s.peers {
		fmt.Fprintf(tw, "%s\t%t\t%d\t%d\t%d\t%d\n", p.id, p.greedy, p.requests, p.items, p.skipped, p.drops)
	}
	tw.Flush()
}
