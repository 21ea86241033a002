package internaldefs

import (
	goToken "github.com/MrEthical07/goToken"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goToken.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   goToken.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in rendering order.
var CounterDefs = []CounterDef{
	{ID: goToken.MetricEncodeSuccess, Name: "gotoken_encode_success_total", Help: "Tokens signed."},
	{ID: goToken.MetricEncodeFailure, Name: "gotoken_encode_failure_total", Help: "Encode attempts rejected for algorithm or key problems."},
	{ID: goToken.MetricDecodeSuccess, Name: "gotoken_decode_success_total", Help: "Tokens that passed every decode stage."},
	{ID: goToken.MetricDecodeMalformed, Name: "gotoken_decode_malformed_total", Help: "Tokens rejected as structurally malformed."},
	{ID: goToken.MetricDecodeUnsupportedAlgorithm, Name: "gotoken_decode_unsupported_algorithm_total", Help: "Tokens whose header algorithm did not match the expected one."},
	{ID: goToken.MetricDecodeMissingKey, Name: "gotoken_decode_missing_key_total", Help: "Decodes attempted without key material."},
	{ID: goToken.MetricDecodeInvalidSignature, Name: "gotoken_decode_invalid_signature_total", Help: "Tokens rejected by signature verification."},
	{ID: goToken.MetricDecodeExpired, Name: "gotoken_decode_expired_total", Help: "Tokens rejected after exp."},
	{ID: goToken.MetricDecodeNotYetValid, Name: "gotoken_decode_not_yet_valid_total", Help: "Tokens rejected before nbf."},
	{ID: goToken.MetricDecodeClaimRejected, Name: "gotoken_decode_claim_rejected_total", Help: "Tokens with missing or mismatched required claims."},
	{ID: goToken.MetricDecodeRevoked, Name: "gotoken_decode_revoked_total", Help: "Tokens rejected because their jti is revoked."},
	{ID: goToken.MetricRevocationBackendError, Name: "gotoken_revocation_backend_error_total", Help: "Revocation registry operations that failed."},
	{ID: goToken.MetricRevokeSuccess, Name: "gotoken_revoke_success_total", Help: "Token ids newly added to the revocation registry."},
	{ID: goToken.MetricRevokeNoop, Name: "gotoken_revoke_noop_total", Help: "Revocations of an already revoked token id."},
	{ID: goToken.MetricTokenExtended, Name: "gotoken_token_extended_total", Help: "Tokens re-issued with a new expiry."},
	{ID: goToken.MetricKeyRotation, Name: "gotoken_key_rotation_total", Help: "Completed key rotations."},
	{ID: goToken.MetricTokensReencoded, Name: "gotoken_tokens_reencoded_total", Help: "Tracked tokens re-signed during key rotation."},
	{ID: goToken.MetricTokensDropped, Name: "gotoken_tokens_dropped_total", Help: "Tracked tokens discarded during key rotation."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goToken.MetricDecodeLatency, Name: "gotoken_decode_latency_seconds", Help: "Decode latency histogram."},
}

// AuditDroppedName and AuditDroppedHelp describe the dispatcher drop counter.
const (
	AuditDroppedName = "gotoken_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramBounds are the "le" labels of the latency buckets.
var HistogramBounds = []string{
	"0.00005",
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.01",
	"+Inf",
}

// HistogramUpperBounds are the finite bucket bounds in seconds, matching HistogramBounds.
var HistogramUpperBounds = []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.01}

// NormalizeBuckets copies raw into a fixed 8-bucket array, zero filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
