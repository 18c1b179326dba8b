package cache

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ResourcePlayers    = "players"
	ResourceLineups    = "lineups"
	ResourceSquads     = "squads"
	ResourceFixtures   = "fixtures"
	ResourceHeadToHead = "headtohead"
	ResourceStatistics = "statistics"
	ResourceInjuries   = "injuries"
	ResourceStatus     = "status"
)

type ttlKind uint8

const (
	ttlNever ttlKind = iota
	ttlInfinite
	ttlDuration
)

// TTL is the freshness rule of a resource type: never cached, cached forever,
// or cached for a fixed duration.
type TTL struct {
	kind ttlKind
	d    time.Duration
}

func Never() TTL    { return TTL{kind: ttlNever} }
func Infinite() TTL { return TTL{kind: ttlInfinite} }

// For returns a duration TTL; d <= 0 means never cache.
func For(d time.Duration) TTL {
	if d <= 0 {
		return Never()
	}
	return TTL{kind: ttlDuration, d: d}
}

func (t TTL) Cacheable() bool  { return t.kind != ttlNever }
func (t TTL) IsInfinite() bool { return t.kind == ttlInfinite }

func (t TTL) Duration() time.Duration {
	if t.kind != ttlDuration {
		return 0
	}
	return t.d
}

// Fresh reports whether an entry written at cachedAt may still be served at now.
func (t TTL) Fresh(cachedAt, now time.Time) bool {
	switch t.kind {
	case ttlInfinite:
		return true
	case ttlDuration:
		return now.Before(cachedAt.Add(t.d))
	default:
		return false
	}
}

func (t TTL) String() string {
	switch t.kind {
	case ttlInfinite:
		return "infinite"
	case ttlDuration:
		return t.d.String()
	default:
		return "never"
	}
}

func ParseTTL(raw string) (TTL, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "infinite", "forever", "none":
		return Infinite(), nil
	case "never", "0", "":
		return Never(), nil
	}

	if strings.HasSuffix(value, "d") {
		var days int
		if _, err := fmt.Sscanf(value, "%dd", &days); err == nil && days > 0 {
			return For(time.Duration(days) * 24 * time.Hour), nil
		}
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return TTL{}, fmt.Errorf("parse ttl %q: %w", raw, err)
	}
	if d < 0 {
		return TTL{}, fmt.Errorf("ttl %q must not be negative", raw)
	}
	return For(d), nil
}

type resourceRule struct {
	ttl     TTL
	byParam map[string]TTL
}

// Policy maps resource types to TTLs. Unknown resource types are never cached.
type Policy struct {
	rules map[string]resourceRule
}

func DefaultPolicy() Policy {
	tenDays := For(10 * 24 * time.Hour)
	return Policy{
		rules: map[string]resourceRule{
			ResourcePlayers: {ttl: Infinite()},
			ResourceLineups: {ttl: Infinite()},
			ResourceSquads:  {ttl: For(7 * 24 * time.Hour)},
			ResourceFixtures: {
				ttl:     tenDays,
				byParam: map[string]TTL{"last": For(2 * 24 * time.Hour)},
			},
			ResourceHeadToHead: {ttl: tenDays},
			ResourceStatistics: {ttl: tenDays},
			ResourceInjuries:   {ttl: Never()},
			ResourceStatus:     {ttl: Never()},
		},
	}
}

// Lookup resolves the TTL for a request. A parameter-specific rule wins over the
// resource default; when several match, the alphabetically first parameter wins.
func (p Policy) Lookup(resourceType string, params map[string]string) TTL {
	rule, ok := p.rules[normalizeResourceType(resourceType)]
	if !ok {
		return Never()
	}
	if len(rule.byParam) > 0 && len(params) > 0 {
		names := make([]string, 0, len(rule.byParam))
		for name := range rule.byParam {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, present := params[name]; present {
				return rule.byParam[name]
			}
		}
	}
	return rule.ttl
}

// With returns a copy of p with resourceType's default TTL replaced.
func (p Policy) With(resourceType string, ttl TTL) Policy {
	resourceType = normalizeResourceType(resourceType)
	out := p.clone()
	rule := out.rules[resourceType]
	rule.ttl = ttl
	out.rules[resourceType] = rule
	return out
}

// WithParam returns a copy of p with a parameter-specific TTL for resourceType.
func (p Policy) WithParam(resourceType, param string, ttl TTL) Policy {
	resourceType = normalizeResourceType(resourceType)
	out := p.clone()
	rule, ok := out.rules[resourceType]
	if !ok {
		rule.ttl = Never()
	}
	if rule.byParam == nil {
		rule.byParam = make(map[string]TTL)
	}
	rule.byParam[param] = ttl
	out.rules[resourceType] = rule
	return out
}

func (p Policy) ResourceTypes() []string {
	out := make([]string, 0, len(p.rules))
	for name := range p.rules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (p Policy) clone() Policy {
	out := Policy{rules: make(map[string]resourceRule, len(p.rules))}
	for name, rule := range p.rules {
		copied := resourceRule{ttl: rule.ttl}
		if len(rule.byParam) > 0 {
			copied.byParam = make(map[string]TTL, len(rule.byParam))
			for param, ttl := range rule.byParam {
				copied.byParam[param] = ttl
			}
		}
		out.rules[name] = copied
	}
	return out
}

type policyFile struct {
	Resources map[string]struct {
		TTL       string            `yaml:"ttl"`
		WhenParam map[string]string `yaml:"when_param"`
	} `yaml:"resources"`
}

// LoadPolicyFile layers the YAML overrides at path on top of DefaultPolicy.
//
//	resources:
//	  fixtures:
//	    ttl: 10d
//	    when_param:
//	      last: 48h
//	  injuries:
//	    ttl: never
func LoadPolicyFile(path string) (Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read ttl policy file: %w", err)
	}
	return ParsePolicy(raw)
}

func ParsePolicy(raw []byte) (Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Policy{}, fmt.Errorf("decode ttl policy: %w", err)
	}

	policy := DefaultPolicy()
	for name, res := range file.Resources {
		if strings.TrimSpace(name) == "" {
			return Policy{}, fmt.Errorf("ttl policy has an empty resource name")
		}
		resourceType := normalizeResourceType(name)
		if strings.TrimSpace(res.TTL) != "" {
			ttl, err := ParseTTL(res.TTL)
			if err != nil {
				return Policy{}, fmt.Errorf("resource %s: %w", resourceType, err)
			}
			policy = policy.With(resourceType, ttl)
		}
		for param, rawTTL := range res.WhenParam {
			ttl, err := ParseTTL(rawTTL)
			if err != nil {
				return Policy{}, fmt.Errorf("resource %s param %s: %w", resourceType, param, err)
			}
			policy = policy.WithParam(resourceType, param, ttl)
		}
	}
	return policy, nil
}
