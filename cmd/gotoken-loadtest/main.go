package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/claims"
	"github.com/MrEthical07/goToken/keys"
	"github.com/MrEthical07/goToken/metrics/export/prometheus"
	"github.com/MrEthical07/goToken/signing"
	"github.com/MrEthical07/goToken/token"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		tokens      = flag.Int("tokens", 10000, "number of access tokens to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "decode operations")
		algName     = flag.String("alg", "HS256", "access token algorithm (HS256..HS512, RS256..RS512)")
		revokeEvery = flag.Int("revoke-every", 10, "revoke one in N seeded tokens during the decode phase; 0 disables")
		tracked     = flag.Int("tracked", 1000, "tokens issued under the key manager before rotation")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "rv", "revocation key prefix")
		dumpMetrics = flag.Bool("metrics", false, "print engine metrics in Prometheus text format at the end")
	)
	flag.Parse()

	if *tokens <= 0 || *concurrency <= 0 || *ops <= 0 || *tracked < 0 || *revokeEvery < 0 {
		fmt.Fprintln(os.Stderr, "tokens, concurrency and ops must be > 0; tracked and revoke-every must be >= 0")
		os.Exit(2)
	}

	alg, err := signing.ParseAlgorithm(*algName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -alg: %v\n", err)
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, verifyKey, err := buildEngine(alg, client, *prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d %s tokens...\n", *tokens, alg)
	seed := make([]string, *tokens)
	startSeed := time.Now()
	for i := range seed {
		tok, err := engine.IssueAccessToken(fmt.Sprintf("user-%d", i), []string{"read"}, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		seed[i] = tok
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	decodeStats := runDecodePhase(ctx, engine, verifyKey, seed, *ops, *concurrency, *revokeEvery)
	rotateStats, rotation := runRotatePhase(ctx, engine, *tracked)

	fmt.Println("---- results ----")
	printStats("decode", decodeStats)
	printStats("rotate", rotateStats)
	fmt.Printf("rotation: reencoded=%d dropped=%d\n", len(rotation.Reencoded), rotation.Dropped)

	if *dumpMetrics {
		fmt.Println("---- metrics ----")
		fmt.Print(prometheus.NewPrometheusExporter(engine).Render())
	}
}

// buildEngine returns the engine and the key that verifies its access tokens.
func buildEngine(alg signing.Algorithm, client redis.UniversalClient, prefix string) (*goToken.Engine, []byte, error) {
	secret, err := goToken.GenerateSecret(32)
	if err != nil {
		return nil, nil, err
	}

	cfg := goToken.DefaultConfig()
	cfg.Signing.Algorithm = alg.String()
	cfg.Signing.Secret = []byte(secret)
	cfg.Tokens.Issuer = "gotoken-loadtest"
	cfg.Revocation.Backend = goToken.BackendRedis
	cfg.Revocation.RedisPrefix = prefix
	cfg.Keys.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	if alg.Family() == signing.FamilyRSA {
		pair, err := keys.GenerateKeyPair()
		if err != nil {
			return nil, nil, err
		}
		cfg.Signing.PrivateKey = pair.PrivateKey
		cfg.Signing.PublicKey = pair.PublicKey
	}

	verifyKey := cfg.Signing.Secret
	if alg.Family() == signing.FamilyRSA {
		verifyKey = cfg.Signing.PublicKey
	}

	engine, err := goToken.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		return nil, nil, err
	}
	return engine, verifyKey, nil
}

// runDecodePhase decodes random seeded tokens while one worker revokes every
// revokeEvery-th token. Revoked rejections are expected and not counted as failures.
func runDecodePhase(ctx context.Context, engine *goToken.Engine, verifyKey []byte, seed []string, ops, concurrency, revokeEvery int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		revoked   int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	if revokeEvery > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < len(seed); i += revokeEvery {
				if _, err := engine.Revoke(ctx, seed[i], engine.Algorithm(), verifyKey); err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				tok := seed[r.Intn(len(seed))]
				t0 := time.Now()
				_, err := engine.DecodeAccessToken(ctx, tok)
				d := time.Since(t0)
				switch {
				case err == nil:
				case errors.Is(err, goToken.ErrTokenRevoked):
					atomic.AddInt64(&revoked, 1)
				default:
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	stats := computeStats(total, latencies, failures)
	stats.revoked = revoked
	return stats
}

// runRotatePhase issues tracked tokens under the key manager, then times one rotation.
func runRotatePhase(ctx context.Context, engine *goToken.Engine, tracked int) (phaseStats, keys.Rotation) {
	var failures int64
	for i := 0; i < tracked; i++ {
		_, err := engine.IssueWithActiveKey(claims.Claims{claims.Subject: fmt.Sprintf("svc-%d", i)}, token.EncodeOptions{ExpiresIn: time.Hour})
		if err != nil {
			failures++
		}
	}

	start := time.Now()
	rotation, err := engine.RotateKeys(ctx)
	d := time.Since(start)
	if err != nil {
		failures++
	}
	return computeStats(d, []time.Duration{d}, failures), rotation
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	revoked  int64
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

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d revoked=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.revoked,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
