package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goToken "github.com/MrEthical07/goToken"
	"github.com/alicebob/miniredis/v2"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func TestSecretAndJTI(t *testing.T) {
	secret := strings.TrimSpace(mustRun(t, "secret", "--bytes", "16"))
	if len(secret) != 32 {
		t.Fatalf("expected 32 hex chars, got %q", secret)
	}

	var out map[string]string
	if err := json.Unmarshal([]byte(mustRun(t, "jti", "-o", "json")), &out); err != nil {
		t.Fatalf("jti json: %v", err)
	}
	if len(out["jti"]) != 36 {
		t.Fatalf("expected uuid jti, got %q", out["jti"])
	}
}

func TestEncodeDecodeHMAC(t *testing.T) {
	common := []string{"--secret", testSecret, "--issuer", "cli.test", "--audience", "api"}

	tok := strings.TrimSpace(mustRun(t, append([]string{"encode", `{"sub":"alice","role":"admin","uid":9007199254740993}`}, common...)...))
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("expected compact token, got %q", tok)
	}

	out := mustRun(t, append([]string{"decode", tok}, common...)...)
	for _, want := range []string{"sub: alice", "role: admin", "iss: cli.test", "aud: api", "uid: 9007199254740993"} {
		if !strings.Contains(out, want) {
			t.Fatalf("decode output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "e+09") {
		t.Fatalf("numeric dates should print as integers:\n%s", out)
	}

	_, err := run(t, "decode", tok, "--secret", testSecret, "--issuer", "other", "--audience", "api")
	if !errors.Is(err, goToken.ErrInvalidClaim) {
		t.Fatalf("expected ErrInvalidClaim for issuer mismatch, got %v", err)
	}

	_, err = run(t, "decode", tok, "--secret", strings.Repeat("x", 32))
	if !errors.Is(err, goToken.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestEncodeRejectsShortSecret(t *testing.T) {
	if _, err := run(t, "encode", "--secret", "short"); err == nil {
		t.Fatalf("expected config validation error")
	}
}

func TestEncodeRejectsNonObjectClaims(t *testing.T) {
	if _, err := run(t, "encode", "[1,2]", "--secret", testSecret); err == nil {
		t.Fatalf("expected claims error")
	}
}

func TestKeygenAndRSA(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, "keygen", "--out-dir", dir)

	info, err := os.Stat(filepath.Join(dir, "private.pem"))
	if err != nil {
		t.Fatalf("stat private key: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 private key, got %v", info.Mode().Perm())
	}

	rsa := []string{
		"--alg", "RS256",
		"--private-key", filepath.Join(dir, "private.pem"),
		"--public-key", filepath.Join(dir, "public.pem"),
	}
	tok := strings.TrimSpace(mustRun(t, append([]string{"encode", `{"sub":"svc"}`}, rsa...)...))
	out := mustRun(t, append([]string{"decode", tok, "-o", "json"}, rsa...)...)

	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if payload["sub"] != "svc" {
		t.Fatalf("unexpected payload: %v", payload)
	}

	_, err = run(t, "decode", tok, "--secret", testSecret)
	if !errors.Is(err, goToken.ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm for HS256 verifier, got %v", err)
	}
}

func TestKeygenStdout(t *testing.T) {
	out := mustRun(t, "keygen")
	if !strings.Contains(out, "PRIVATE KEY") || !strings.Contains(out, "PUBLIC KEY") {
		t.Fatalf("expected both PEM blocks:\n%s", out)
	}
}

func TestConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gotoken.yaml")
	cfg := "signing:\n  algorithm: HS384\n  secret: " + testSecret + "\ntokens:\n  issuer: file.test\n"
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	tok := strings.TrimSpace(mustRun(t, "encode", `{"sub":"bob"}`, "--config", path))
	out := mustRun(t, "decode", tok, "--config", path)
	if !strings.Contains(out, "iss: file.test") {
		t.Fatalf("issuer from config file not applied:\n%s", out)
	}

	t.Setenv("GOTOKEN_SIGNING_ALGORITHM", "HS384")
	t.Setenv("GOTOKEN_SIGNING_SECRET", testSecret)
	out = mustRun(t, "decode", tok)
	if !strings.Contains(out, "sub: bob") {
		t.Fatalf("env configuration not applied:\n%s", out)
	}

	// Flags take precedence over the environment.
	_, err := run(t, "decode", tok, "--alg", "HS256")
	if !errors.Is(err, goToken.ErrUnsupportedAlgorithm) {
		t.Fatalf("expected flag to override env algorithm, got %v", err)
	}
}

func TestExtendUntil(t *testing.T) {
	common := []string{"--secret", testSecret}
	tok := strings.TrimSpace(mustRun(t, append([]string{"encode", `{"sub":"carol"}`, "--ttl", "1m"}, common...)...))

	until := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	extended := strings.TrimSpace(mustRun(t, append([]string{"extend", tok, "--until", until.Format(time.RFC3339)}, common...)...))

	out := mustRun(t, append([]string{"decode", extended, "-o", "json"}, common...)...)
	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if exp, _ := payload["exp"].(float64); int64(exp) != until.Unix() {
		t.Fatalf("expected exp %d, got %v", until.Unix(), payload["exp"])
	}

	if _, err := run(t, append([]string{"extend", tok, "--until", "tomorrow"}, common...)...); err == nil {
		t.Fatalf("expected --until parse error")
	}
}

func TestRevokeRequiresRedis(t *testing.T) {
	tok := strings.TrimSpace(mustRun(t, "encode", "--secret", testSecret))
	_, err := run(t, "revoke", tok, "--secret", testSecret)
	if !errors.Is(err, errRevokeNeedsRedis) {
		t.Fatalf("expected errRevokeNeedsRedis, got %v", err)
	}

	_, err = run(t, "decode", tok, "--secret", testSecret, "--backend", "redis")
	if err == nil || !strings.Contains(err.Error(), "redis_addr") {
		t.Fatalf("expected missing redis address error, got %v", err)
	}
}

func TestRevokeWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	common := []string{"--secret", testSecret, "--backend", "redis", "--redis-addr", mr.Addr()}

	tok := strings.TrimSpace(mustRun(t, append([]string{"encode", `{"sub":"dave"}`}, common...)...))
	mustRun(t, append([]string{"decode", tok}, common...)...)

	out := mustRun(t, append([]string{"revoke", tok}, common...)...)
	if !strings.Contains(out, "newly_revoked: true") {
		t.Fatalf("expected first revoke to be new:\n%s", out)
	}
	out = mustRun(t, append([]string{"revoke", tok}, common...)...)
	if !strings.Contains(out, "newly_revoked: false") {
		t.Fatalf("expected second revoke to be a no-op:\n%s", out)
	}

	_, err := run(t, append([]string{"decode", tok}, common...)...)
	if !errors.Is(err, goToken.ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}
