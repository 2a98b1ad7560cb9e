// Package observability provides OpenTelemetry metrics and tracing for the eventhub API and workers.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameHTTPRequests          = "eventhub_http_requests_total"
	MetricNameHTTPRequestDuration   = "eventhub_http_request_duration_seconds"
	MetricNameRequestBodyTooLarge   = "eventhub_request_body_too_large_total"
	MetricNameToolCalls             = "eventhub_tool_calls_total"
	MetricNameToolCallDuration      = "eventhub_tool_call_duration_seconds"
	MetricNameEmbeddingJobsEnqueued = "eventhub_embedding_jobs_enqueued_total"
	MetricNameEmbeddingProviderErrs = "eventhub_embedding_provider_errors_total"
	MetricNameEmbeddingOutcomes     = "eventhub_embedding_outcomes_total"
	MetricNameEmbeddingWorkerErrors = "eventhub_embedding_worker_errors_total"
	MetricNameEmbeddingDuration     = "eventhub_embedding_duration_seconds"
	MetricNameEmbeddingQueueDepth   = "eventhub_embedding_queue_depth"
	MetricNameCacheHits             = "eventhub_cache_hits_total"
	MetricNameCacheMisses           = "eventhub_cache_misses_total"
)

// Attribute keys.
const (
	AttrReason      = "reason"
	AttrStatus      = "status"
	AttrTool        = "tool"
	AttrOutcome     = "outcome"
	AttrEntityType  = "entity_type"
	AttrCache       = "cache"
	AttrMethod      = "method"
	AttrRoute       = "route"
	AttrStatusClass = "status_class"
)

// CacheNameQueryEmbedding labels the search query embedding cache.
const CacheNameQueryEmbedding = "query_embedding"

// AllowedCacheNames bounds the cache label.
var AllowedCacheNames = map[string]bool{
	CacheNameQueryEmbedding: true,
}

// AllowedEmbeddingProviderReasons for eventhub_embedding_provider_errors_total.
var AllowedEmbeddingProviderReasons = map[string]bool{
	"timeout":        true,
	"unavailable":    true,
	"enqueue_failed": true,
}

// AllowedEmbeddingStatuses for eventhub_embedding_outcomes_total and the duration histogram.
var AllowedEmbeddingStatuses = map[string]bool{
	"success":        true,
	"empty_text":     true,
	"failed":         true,
	"entity_missing": true,
}

// AllowedEmbeddingWorkerReasons for eventhub_embedding_worker_errors_total.
var AllowedEmbeddingWorkerReasons = map[string]bool{
	"load_entity": true,
	"regenerate":  true,
	"delete":      true,
}

// AllowedToolOutcomes for eventhub_tool_calls_total.
var AllowedToolOutcomes = map[string]bool{
	"ok":         true,
	"text":       true,
	"not_found":  true,
	"validation": true,
	"provider":   true,
	"internal":   true,
	"panic":      true,
}

// AllowedEntityTypes bounds the entity_type label.
var AllowedEntityTypes = map[string]bool{
	"speaker": true,
	"session": true,
}

// NormalizeReason returns reason if in allowed, otherwise "other".
func NormalizeReason(reason string, allowed map[string]bool) string {
	if allowed[reason] {
		return reason
	}

	return "other"
}

// NormalizeCacheName returns name if it is a known cache, otherwise "other".
func NormalizeCacheName(name string) string {
	return NormalizeReason(name, AllowedCacheNames)
}
