// Command adder runs a few adder replicas and hammers them from concurrent
// callers, checking every response.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mini-lpc/adder"
	"mini-lpc/client"
	"mini-lpc/loadbalance"
	"mini-lpc/registry"
	"mini-lpc/service"
)

type config struct {
	callers    int
	calls      int
	replicas   int
	inboxLimit int
	etcd       string
	debug      bool
}

func parseFlags() config {
	var cfg config
	flag.IntVar(&cfg.callers, "callers", 2, "concurrent caller goroutines")
	flag.IntVar(&cfg.calls, "calls", 1000, "calls per caller")
	flag.IntVar(&cfg.replicas, "replicas", 1, "adder workers to start")
	flag.IntVar(&cfg.inboxLimit, "inbox-limit", 0, "max queued calls per worker, 0 for unbounded")
	flag.StringVar(&cfg.etcd, "etcd", "", "comma separated etcd endpoints; empty keeps the registry in memory")
	flag.BoolVar(&cfg.debug, "debug", false, "development logging")
	flag.Parse()
	return cfg
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg := parseFlags()
	logger, err := newLogger(cfg.debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config, logger *zap.Logger) error {
	var reg registry.Registry = registry.NewMemoryRegistry()
	if cfg.etcd != "" {
		etcdReg, err := registry.NewEtcdRegistry(strings.Split(cfg.etcd, ","), logger)
		if err != nil {
			return err
		}
		defer etcdReg.Close()
		reg = etcdReg
	}

	cli := client.NewClient[adder.Request, adder.Response](reg, loadbalance.NewConsistentHashBalancer(), client.WithLogger(logger))
	defer cli.Close()

	stoppers := make([]service.Stopper, 0, cfg.replicas)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := service.ShutdownAll(ctx, stoppers...); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()
	for i := 0; i < cfg.replicas; i++ {
		s := adder.New(
			service.WithLogger(logger),
			service.WithRegistry(reg),
			service.WithInboxLimit(cfg.inboxLimit),
		)
		if err := s.Start(); err != nil {
			return err
		}
		stoppers = append(stoppers, s)
		cli.Bind(s.ID(), s.Sender())
	}

	cases := []struct{ a, b, want int }{
		{5, 2, 7},
		{6, 3, 9},
	}

	start := time.Now()
	var g errgroup.Group
	for i := 0; i < cfg.callers; i++ {
		tc := cases[i%len(cases)]
		key := fmt.Sprintf("caller-%d", i)
		g.Go(func() error {
			for j := 0; j < cfg.calls; j++ {
				resp, err := cli.Call(context.Background(), adder.Name, key, adder.Add{A: tc.a, B: tc.b})
				if err != nil {
					return fmt.Errorf("%s call %d: %w", key, j, err)
				}
				r, ok := resp.(adder.AddResult)
				if !ok {
					return fmt.Errorf("%s: %w: %T", key, adder.ErrUnexpectedResponse, resp)
				}
				if r.Total != tc.want {
					return fmt.Errorf("%s: Add(%d, %d) = %d, want %d", key, tc.a, tc.b, r.Total, tc.want)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("all calls succeeded",
		zap.Int("callers", cfg.callers),
		zap.Int("calls", cfg.callers*cfg.calls),
		zap.Int("replicas", cfg.replicas),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
