package registry

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BukiOffor/registry/cli/options"
	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/ccdrpc/result"
	"github.com/BukiOffor/registry/pkg/registry"
	"github.com/BukiOffor/registry/pkg/rpcclient/invoker"
	"github.com/BukiOffor/registry/pkg/services/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// DefaultMonitorInterval is the default tag polling interval.
const DefaultMonitorInterval = 30 * time.Second

var (
	tagRegistered = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Help:      "Whether the tag is registered (1) or not (0)",
			Name:      "tag_registered",
			Namespace: "registry",
		},
		[]string{"tag"},
	)
	pollErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of failed tag polls",
			Name:      "tag_poll_errors_total",
			Namespace: "registry",
		},
	)
)

func init() {
	prometheus.MustRegister(
		tagRegistered,
		pollErrors,
	)
}

// pollTags dry-runs get_key for every tag and updates the metrics. Tags are
// looked up normalized since that's how the contract stores them.
func pollTags(r *registry.ContractReader, tags []string, log *zap.Logger) {
	for _, tag := range tags {
		res, err := r.DryRunGetKey(registry.NormalizeTag(tag), ccd.ContractInvokeMetadata{})
		if err != nil {
			pollErrors.Inc()
			log.Warn("failed to poll tag", zap.String("tag", tag), zap.Error(err))
			continue
		}
		var v float64
		if res.Tag == result.InvokeSuccess {
			v = 1
		}
		tagRegistered.WithLabelValues(tag).Set(v)
		log.Debug("tag polled", zap.String("tag", tag), zap.Bool("registered", v == 1))
	}
}

func monitor(ctx *cli.Context) error {
	tags := ctx.Args()
	if len(tags) == 0 {
		return cli.NewExitError("no tags to monitor", 1)
	}
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	interval := ctx.Duration("interval")
	if interval <= 0 {
		return cli.NewExitError(fmt.Errorf("invalid interval %s", interval), 1)
	}

	// The client lives as long as the monitor does.
	gctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, ec := options.GetRPCClient(gctx, cfg, log)
	if ec != nil {
		return ec
	}
	defer c.Close()
	reader := registry.NewReader(invoker.New(c, nil), cfg.Registry.Address())

	pollTags(reader, tags, log)
	if ctx.Bool("once") {
		return nil
	}

	prom := metrics.NewPrometheusService(cfg.ApplicationConfiguration.Prometheus, log)
	prom.Start()
	defer prom.ShutDown()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pollTags(reader, tags, log)
		case err := <-prom.Errors():
			return cli.NewExitError(err, 1)
		case <-sigCh:
			log.Info("shutting down monitor")
			return nil
		}
	}
}
