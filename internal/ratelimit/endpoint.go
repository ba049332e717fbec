package ratelimit

import "github.com/danielgtaylor/huma/v2"

// MetadataKey is the key used to store rate limit config in operation metadata.
const MetadataKey = "rateLimit"

// EndpointConfig defines per-endpoint rate limit configuration.
// This can be attached to Huma operations via the Metadata field.
type EndpointConfig struct {
	// Quota overrides the resolver's quota for this endpoint when set.
	Quota *Quota

	// Disabled skips rate limiting entirely for this endpoint. No headers are
	// written and no record is touched.
	Disabled bool
}

// OperationRequest is implemented by requests that know their Huma operation.
type OperationRequest interface {
	Operation() *huma.Operation
}

// GetEndpointConfig extracts the EndpointConfig from operation metadata, if present.
func GetEndpointConfig(op *huma.Operation) *EndpointConfig {
	if op == nil || op.Metadata == nil {
		return nil
	}

	cfg, ok := op.Metadata[MetadataKey].(EndpointConfig)
	if !ok {
		return nil
	}

	return &cfg
}

// OperationQuota resolves the quota from the request's operation metadata,
// falling back to the given resolver.
func OperationQuota(fallback QuotaFunc) QuotaFunc {
	return func(req Request) Quota {
		if opReq, ok := req.(OperationRequest); ok {
			if cfg := GetEndpointConfig(opReq.Operation()); cfg != nil && cfg.Quota != nil {
				return *cfg.Quota
			}
		}

		return fallback(req)
	}
}

// StaticQuota always resolves to q.
func StaticQuota(q Quota) QuotaFunc {
	return func(Request) Quota { return q }
}
