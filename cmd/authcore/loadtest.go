package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eamcap/authcore"
	"github.com/eamcap/authcore/store/memory"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

type loadtestOptions struct {
	accounts    int
	concurrency int
	ops         int
	redisAddr   string
	throttle    bool
}

// loadtestCmd drives ValidateAccess and Refresh against an in-process engine
// backed by the memory store.
func loadtestCmd() *cobra.Command {
	var opts loadtestOptions

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure validate and refresh throughput in-process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadtest(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.accounts, "accounts", 1000, "number of accounts to register")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 64, "number of concurrent workers")
	cmd.Flags().IntVar(&opts.ops, "ops", 100000, "operations per phase (validate + refresh)")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address for --throttle; REDIS_ADDR env or miniredis when empty")
	cmd.Flags().BoolVar(&opts.throttle, "throttle", false, "enable the refresh throttle during the refresh phase")
	return cmd
}

func runLoadtest(ctx context.Context, out io.Writer, opts loadtestOptions) error {
	if opts.accounts <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
		return errors.New("accounts, concurrency, and ops must be > 0")
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return err
	}
	cfg := authcore.DefaultConfig()
	cfg.JWT.PrivateKey = key
	cfg.Password.BcryptCost = bcrypt.MinCost
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	builder := authcore.New()
	if opts.throttle {
		client, cleanup, err := loadtestRedis(out, opts.redisAddr)
		if err != nil {
			return err
		}
		defer cleanup()
		cfg.Security.EnableRefreshThrottle = true
		cfg.Security.MaxRefreshAttempts = opts.ops + 1
		cfg.Security.RefreshCooldownDuration = time.Hour
		builder = builder.WithRedis(client)
	}

	engine, err := builder.WithConfig(cfg).WithUserStore(memory.New()).Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Fprintf(out, "registering %d accounts...\n", opts.accounts)
	startSeed := time.Now()
	pairs := make([]*authcore.TokenPair, opts.accounts)
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return err
	}
	for i := range pairs {
		pair, err := engine.Register(ctx, authcore.RegisterRequest{
			Email:    fmt.Sprintf("load-%d-%s@example.com", i, hex.EncodeToString(suffix)),
			Password: "load-test-password",
			Name:     fmt.Sprintf("Load %d", i),
		})
		if err != nil {
			return fmt.Errorf("register: %w", err)
		}
		pairs[i] = pair
	}
	fmt.Fprintf(out, "registered in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validate := runPhase(opts, func(r *mrand.Rand) error {
		_, err := engine.ValidateAccess(ctx, pairs[r.Intn(len(pairs))].AccessToken)
		return err
	})
	refresh := runPhase(opts, func(r *mrand.Rand) error {
		_, err := engine.Refresh(ctx, pairs[r.Intn(len(pairs))].RefreshToken)
		return err
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "validate", validate)
	printStats(out, "refresh", refresh)
	return nil
}

func loadtestRedis(out io.Writer, addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Fprintf(out, "using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Fprintf(out, "using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func runPhase(opts loadtestOptions, op func(*mrand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, opts.ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= opts.ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
