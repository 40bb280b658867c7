// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed as part of the simtrace project.

package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/simbricks/simtrace/config"
	"github.com/simbricks/simtrace/event"
	"github.com/simbricks/simtrace/export"
	"github.com/simbricks/simtrace/internal/log"
	"github.com/simbricks/simtrace/internal/metrics"
	"github.com/simbricks/simtrace/parser"
	"github.com/simbricks/simtrace/pipeline"
	"github.com/simbricks/simtrace/spanner"
	"github.com/simbricks/simtrace/tracer"
)

var (
	configPath string
	logPaths   struct {
		hostClient string
		hostServer string
		nicClient  string
		nicServer  string
		network    string
	}
	metricsAddr string
	printSpans  bool
)

var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "run the simtrace pipeline against a set of log files",
	RunE:  runPipeline,
}

func init() {
	RunCmd.Flags().StringVar(&configPath, "config", "", "path to the simtrace YAML config file (required)")
	RunCmd.Flags().StringVar(&logPaths.hostClient, "host-client-log", "", "JSONL log for the client-side host")
	RunCmd.Flags().StringVar(&logPaths.hostServer, "host-server-log", "", "JSONL log for the server-side host")
	RunCmd.Flags().StringVar(&logPaths.nicClient, "nic-client-log", "", "JSONL log for the client-side NIC")
	RunCmd.Flags().StringVar(&logPaths.nicServer, "nic-server-log", "", "JSONL log for the server-side NIC")
	RunCmd.Flags().StringVar(&logPaths.network, "network-log", "", "JSONL log for the network")
	RunCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "statsd/dogstatsd agent address (host:port); empty disables metrics")
	RunCmd.Flags().BoolVar(&printSpans, "print-spans", false, "log every span's String() form as it is exported")
	_ = RunCmd.MarkFlagRequired("config")
}

// spanner instance roles (spec.md §2 "five external parsers ... feed
// exactly one spanner: host-client, host-server, nic-client, nic-server,
// network"). All five share the single set of five context queues
// spec.md §6 enumerates — the spec describes one client/server link, not
// a multi-tenant fan-out, matching the single-flow worked scenarios of
// spec.md §8 (see DESIGN.md).
const (
	sourceHostClient uint64 = iota + 1
	sourceHostServer
	sourceNicClient
	sourceNicServer
	sourceNetwork
)

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	defer log.Flush()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := metrics.New(metricsAddr)
	if err != nil {
		return fmt.Errorf("connecting metrics client: %w", err)
	}
	defer m.Close()

	tp, err := export.NewTracerProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building tracer provider: %w", err)
	}
	var exp tracer.Exporter = export.New(tp, cfg.ServiceName, time.Now(), m, cfg.ExportRateLimit)
	if printSpans {
		exp = export.WithSpanLogging(exp)
	}

	tr := tracer.New(exp, int64(cfg.MaxBackgroundThreads))
	queues := pipeline.NewQueues()

	hostClient := spanner.NewHostSpanner(cfg, tr, queues, sourceHostClient)
	hostServer := spanner.NewHostSpanner(cfg, tr, queues, sourceHostServer)
	nicClient := spanner.NewNicSpanner(tr, queues, sourceNicClient)
	nicServer := spanner.NewNicSpanner(tr, queues, sourceNicServer)
	network := spanner.NewNetworkSpanner(cfg, tr, queues, sourceNetwork)
	hostClient.SetMetrics(m)
	hostServer.SetMetrics(m)
	nicClient.SetMetrics(m)
	nicServer.SetMetrics(m)
	network.SetMetrics(m)

	gaps := parser.NewGapDetector()
	streams := []struct {
		path     string
		source   parser.Source
		feed     func(*pipeline.Channel[event.Event])
	}{
		{logPaths.hostClient, parser.Source{ID: sourceHostClient, Name: "host-client"}, hostClient.Run},
		{logPaths.hostServer, parser.Source{ID: sourceHostServer, Name: "host-server"}, hostServer.Run},
		{logPaths.nicClient, parser.Source{ID: sourceNicClient, Name: "nic-client"}, nicClient.Run},
		{logPaths.nicServer, parser.Source{ID: sourceNicServer, Name: "nic-server"}, nicServer.Run},
		{logPaths.network, parser.Source{ID: sourceNetwork, Name: "network"}, network.Run},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, st := range streams {
		st := st
		if st.path == "" {
			return fmt.Errorf("missing log path for %s", st.source.Name)
		}
		f, err := os.Open(st.path)
		if err != nil {
			return fmt.Errorf("opening %s log: %w", st.source.Name, err)
		}
		defer f.Close()

		in := pipeline.NewChannel[event.Event](256)
		p := &parser.JSONLParser{Src: st.source, Reader: f, Gaps: gaps}

		g.Go(func() error {
			return p.Run(gctx, in)
		})
		g.Go(func() error {
			st.feed(in)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("pipeline stream failed: %v", err)
	}

	queues.PoisonAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return tr.Shutdown(shutdownCtx)
}
