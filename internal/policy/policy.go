// Package policy loads per-route and per-tier quotas from a YAML file.
//
// Example:
//
//	default: {max: 100, window: 60}
//	tierHeader: X-Tier
//	tiers:
//	  premium: {max: 1000, window: 60}
//	routes:
//	  - method: POST
//	    path: /orders
//	    quota: {max: 10, window: 60}
//	skip: [127.0.0.1]
//
// A route quota wins over a tier quota, which wins over the default.
package policy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/serroba/ratelimit-go/internal/ratelimit"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPolicy is returned for policies that fail validation.
var ErrInvalidPolicy = errors.New("invalid rate limit policy")

// Route assigns a quota to a path, optionally restricted to one method.
// Path is matched against the route template when the framework knows it,
// e.g. /status/{code}, and against the literal request path otherwise.
type Route struct {
	Method string          `yaml:"method"`
	Path   string          `yaml:"path"`
	Quota  ratelimit.Quota `yaml:"quota"`
}

// Policy is the quota configuration of a limiter.
type Policy struct {
	Default    ratelimit.Quota            `yaml:"default"`
	TierHeader string                     `yaml:"tierHeader"`
	Tiers      map[string]ratelimit.Quota `yaml:"tiers"`
	Routes     []Route                    `yaml:"routes"`
	Skip       []string                   `yaml:"skip"`
}

// Load reads and validates the policy file at path.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes and validates a YAML policy. A missing default quota
// falls back to ratelimit.DefaultQuota.
func Parse(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}

	if p.Default == (ratelimit.Quota{}) {
		p.Default = ratelimit.DefaultQuota()
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

// Validate checks every quota in the policy.
func (p *Policy) Validate() error {
	if err := p.Default.Validate(); err != nil {
		return fmt.Errorf("%w: default: %w", ErrInvalidPolicy, err)
	}

	for name, q := range p.Tiers {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("%w: tier %q: %w", ErrInvalidPolicy, name, err)
		}
	}

	for i, r := range p.Routes {
		if r.Path == "" {
			return fmt.Errorf("%w: route %d: path is required", ErrInvalidPolicy, i)
		}

		if err := r.Quota.Validate(); err != nil {
			return fmt.Errorf("%w: route %s: %w", ErrInvalidPolicy, r.Path, err)
		}
	}

	return nil
}

// QuotaFunc resolves request quotas from the policy.
func (p *Policy) QuotaFunc() ratelimit.QuotaFunc {
	return func(req ratelimit.Request) ratelimit.Quota {
		if q, ok := p.routeQuota(req); ok {
			return q
		}

		if p.TierHeader != "" {
			if q, ok := p.Tiers[req.Header(p.TierHeader)]; ok {
				return q
			}
		}

		return p.Default
	}
}

func (p *Policy) routeQuota(req ratelimit.Request) (ratelimit.Quota, bool) {
	path := requestPath(req)

	for _, r := range p.Routes {
		if r.Method != "" && !strings.EqualFold(r.Method, req.Method()) {
			continue
		}

		if r.Path == path {
			return r.Quota, true
		}
	}

	return ratelimit.Quota{}, false
}

func requestPath(req ratelimit.Request) string {
	if opReq, ok := req.(ratelimit.OperationRequest); ok {
		if op := opReq.Operation(); op != nil && op.Path != "" {
			return op.Path
		}
	}

	path, _, _ := strings.Cut(req.URL(), "?")

	return path
}
