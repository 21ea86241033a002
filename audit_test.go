package goToken

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goToken/claims"
	"github.com/MrEthical07/goToken/signing"
	"github.com/MrEthical07/goToken/token"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func buildAuditTestEngine(t *testing.T, sink AuditSink) *Engine {
	t.Helper()

	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 32
	cfg.Audit.DropIfFull = false

	engine, err := New().WithConfig(cfg).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func nextEvent(t *testing.T, events <-chan AuditEvent) AuditEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
	}
	return AuditEvent{}
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	engine, err := New().WithConfig(testConfig()).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	tok, err := engine.IssueAccessToken("u1", nil, nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := engine.Revoke(context.Background(), tok, signing.HS256, testSecret); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	engine.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no sink calls with audit disabled, got %d", sink.Count())
	}
}

func TestAuditRevokeEventFields(t *testing.T) {
	sink := NewChannelSink(32)
	engine := buildAuditTestEngine(t, sink)

	tok, err := engine.IssueAccessToken("u1", []string{"read"}, nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	issued := nextEvent(t, sink.Events())
	if issued.Type != AuditTokenIssued || issued.Metadata["kind"] != "access" {
		t.Fatalf("unexpected issue event: %+v", issued)
	}

	if _, err := engine.Revoke(context.Background(), tok, signing.HS256, testSecret); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ev := nextEvent(t, sink.Events())

	if ev.Type != AuditTokenRevoked {
		t.Fatalf("expected %s, got %s", AuditTokenRevoked, ev.Type)
	}
	if !ev.Success || ev.Error != "" {
		t.Fatalf("expected successful event, got %+v", ev)
	}
	if ev.Subject != "u1" || ev.TokenID != issued.TokenID || ev.TokenID == "" {
		t.Fatalf("unexpected identity fields: %+v", ev)
	}
	if ev.Algorithm != "HS256" {
		t.Fatalf("expected HS256, got %q", ev.Algorithm)
	}
	if ev.Metadata["newly_revoked"] != "true" {
		t.Fatalf("expected newly_revoked=true, got %q", ev.Metadata["newly_revoked"])
	}
	if ev.EventID == "" || ev.EventID == issued.EventID {
		t.Fatal("expected distinct event ids")
	}
}

func TestAuditFailureCarriesErrorCode(t *testing.T) {
	sink := NewChannelSink(32)
	engine := buildAuditTestEngine(t, sink)

	_, err := engine.Revoke(context.Background(), "a.b", signing.HS256, testSecret)
	if err == nil {
		t.Fatal("expected malformed token to fail")
	}
	ev := nextEvent(t, sink.Events())
	if ev.Success || ev.Error != AuditErrMalformedToken {
		t.Fatalf("expected malformed_token failure, got %+v", ev)
	}
}

func TestAuditErrorCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{ErrMalformedToken, AuditErrMalformedToken},
		{ErrUnsupportedAlgorithm, AuditErrUnsupportedAlgorithm},
		{ErrMissingKeyMaterial, AuditErrMissingKeyMaterial},
		{ErrInvalidSignature, AuditErrInvalidSignature},
		{ErrTokenExpired, AuditErrTokenExpired},
		{ErrTokenNotYetValid, AuditErrTokenNotYetValid},
		{ErrMissingClaim, AuditErrClaimRejected},
		{ErrInvalidClaim, AuditErrClaimRejected},
		{ErrTokenRevoked, AuditErrTokenRevoked},
		{ErrNoActiveKey, AuditErrNoActiveKey},
		{ErrRedisUnavailable, AuditErrBackendUnavailable},
		{context.Canceled, AuditErrInternal},
	}
	for _, tc := range tests {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	queue := newAuditQueue(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)
	defer func() {
		close(sink.gate)
		queue.Close()
	}()

	queue.Emit(context.Background(), AuditEvent{EventID: "e1"})
	queue.Emit(context.Background(), AuditEvent{EventID: "e2"})

	start := time.Now()
	queue.Emit(context.Background(), AuditEvent{EventID: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if queue.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	queue := newAuditQueue(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink)
	defer func() {
		close(sink.gate)
		queue.Close()
	}()

	queue.Emit(context.Background(), AuditEvent{EventID: "e1"})
	queue.Emit(context.Background(), AuditEvent{EventID: "e2"})

	done := make(chan struct{})
	go func() {
		queue.Emit(context.Background(), AuditEvent{EventID: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{
		EventID:   "ev-1",
		Timestamp: time.Now().UTC(),
		Type:      AuditKeysRotated,
		Algorithm: "RS256",
		Success:   true,
		Metadata:  map[string]string{"reencoded": "2"},
	})

	line := strings.TrimSuffix(buf.String(), "\n")
	if strings.Contains(line, "\n") {
		t.Fatal("expected exactly one line")
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if decoded["event_type"] != "keys_rotated" || decoded["alg"] != "RS256" {
		t.Fatalf("unexpected JSON fields: %v", decoded)
	}
	if _, ok := decoded["jti"]; ok {
		t.Fatal("expected empty jti to be omitted")
	}
}

func TestAuditQueueCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	sink := &countingSink{}
	queue := newAuditQueue(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, sink)

	queue.Emit(context.Background(), AuditEvent{EventID: "e1"})
	queue.Close()
	queue.Close()
	queue.Emit(context.Background(), AuditEvent{EventID: "e2"})

	if sink.Count() != 1 {
		t.Fatalf("expected queued event to be flushed on close, got %d", sink.Count())
	}
}

func TestAuditNoTokenOrKeyMaterialInEvents(t *testing.T) {
	var buf syncBuffer
	engine := buildAuditTestEngine(t, NewJSONWriterSink(&buf))
	ctx := context.Background()

	tok, err := engine.IssueAccessToken("u1", nil, nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	refresh, err := engine.IssueRefreshToken("u1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	extended, err := engine.ExtendExpiration(ctx, tok, signing.HS256, testSecret, testSecret, time.Time{})
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if _, err := engine.Revoke(ctx, tok, signing.HS256, testSecret); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	engine.Close()

	out := buf.String()
	if strings.Count(out, "\n") != 4 {
		t.Fatalf("expected 4 audit lines, got:\n%s", out)
	}
	for _, needle := range []string{tok, refresh, extended, string(testSecret)} {
		if strings.Contains(out, needle) {
			t.Fatalf("sensitive value leaked into audit output: %q", needle)
		}
	}
}

func TestAuditRevokeWithoutJTIRecordsNoop(t *testing.T) {
	sink := NewChannelSink(32)
	engine := buildAuditTestEngine(t, sink)

	tok, err := engine.Encode(claims.Claims{"sub": "u1"}, signing.HS256, testSecret, token.EncodeOptions{ExpiresIn: time.Minute})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	added, err := engine.Revoke(context.Background(), tok, signing.HS256, testSecret)
	if err != nil || added {
		t.Fatalf("expected false and no error, got %v %v", added, err)
	}

	ev := nextEvent(t, sink.Events())
	if ev.Type != AuditTokenRevoked || !ev.Success || ev.Error != "" {
		t.Fatalf("expected a successful revoke event, got %+v", ev)
	}
	if ev.Subject != "u1" || ev.TokenID != "" {
		t.Fatalf("unexpected identity fields: %+v", ev)
	}
	if ev.Metadata["newly_revoked"] != "false" || ev.Metadata["reason"] != "no_jti" {
		t.Fatalf("unexpected metadata: %v", ev.Metadata)
	}
}

func TestFilterSinkForwardsListedTypes(t *testing.T) {
	var got []AuditEventType
	sink := FilterSink(AuditSinkFunc(func(_ context.Context, ev AuditEvent) {
		got = append(got, ev.Type)
	}), AuditTokenRevoked, AuditKeysRotated)

	for _, typ := range []AuditEventType{AuditTokenIssued, AuditTokenRevoked, AuditTokenExtended, AuditKeysRotated} {
		sink.Emit(context.Background(), AuditEvent{Type: typ})
	}

	if len(got) != 2 || got[0] != AuditTokenRevoked || got[1] != AuditKeysRotated {
		t.Fatalf("unexpected forwarded types: %v", got)
	}
}

func TestFilterSinkWithEngine(t *testing.T) {
	sink := NewChannelSink(32)
	engine := buildAuditTestEngine(t, FilterSink(sink, AuditTokenRevoked))

	tok, err := engine.IssueAccessToken("u1", nil, nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := engine.Revoke(context.Background(), tok, signing.HS256, testSecret); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ev := nextEvent(t, sink.Events()); ev.Type != AuditTokenRevoked {
		t.Fatalf("expected only the revoke event, got %+v", ev)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestJSONWriterSinkCountsFailures(t *testing.T) {
	sink := NewJSONWriterSink(failingWriter{})
	sink.Emit(context.Background(), AuditEvent{Type: AuditTokenIssued})
	sink.Emit(context.Background(), AuditEvent{Type: AuditTokenRevoked})
	if sink.Failures() != 2 {
		t.Fatalf("expected 2 failures, got %d", sink.Failures())
	}

	var nilWriter *JSONWriterSink
	nilWriter.Emit(context.Background(), AuditEvent{})
	if nilWriter.Failures() != 0 {
		t.Fatal("nil sink must report no failures")
	}
}

func TestAuditQueueSurvivesPanickingSink(t *testing.T) {
	var delivered atomic.Int64
	queue := newAuditQueue(AuditConfig{Enabled: true, BufferSize: 4}, AuditSinkFunc(func(_ context.Context, ev AuditEvent) {
		if ev.EventID == "bad" {
			panic("sink failure")
		}
		delivered.Add(1)
	}))

	queue.Emit(context.Background(), AuditEvent{EventID: "bad"})
	queue.Emit(context.Background(), AuditEvent{EventID: "good"})
	queue.Close()

	if delivered.Load() != 1 {
		t.Fatalf("expected the event after the panic to be delivered, got %d", delivered.Load())
	}
	if queue.Dropped() != 1 {
		t.Fatalf("expected the panicking delivery counted as dropped, got %d", queue.Dropped())
	}
}

func TestAuditQueueCountsCanceledEmit(t *testing.T) {
	sink := newGateSink()
	queue := newAuditQueue(AuditConfig{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		queue.Close()
	}()

	queue.Emit(context.Background(), AuditEvent{EventID: "e1"})
	queue.Emit(context.Background(), AuditEvent{EventID: "e2"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	queue.Emit(ctx, AuditEvent{EventID: "e3"})

	if queue.Dropped() != 1 {
		t.Fatalf("expected canceled emit counted as dropped, got %d", queue.Dropped())
	}
}

func TestAuditQueueDisabledIsNil(t *testing.T) {
	queue := newAuditQueue(AuditConfig{Enabled: false}, &countingSink{})
	if queue != nil {
		t.Fatal("expected nil queue when auditing is disabled")
	}
	queue.Emit(context.Background(), AuditEvent{})
	queue.Close()
	if queue.Dropped() != 0 {
		t.Fatal("nil queue must report zero drops")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
