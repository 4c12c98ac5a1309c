// Copyright (c) 2026 Blood Bridge. All rights reserved.

package access

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/bloodbridge/portal/internal/role"
)

//go:embed policy.yaml
var defaultPolicy []byte

// Policy maps route patterns to gates.
type Policy struct {
	gates  map[string]Gate
	routes map[string]string
}

type policyFile struct {
	Gates  map[string][]string `yaml:"gates"`
	Routes []struct {
		Pattern string `yaml:"pattern"`
		Gate    string `yaml:"gate"`
	} `yaml:"routes"`
}

// LoadPolicy reads the policy at path, or the embedded default when path is empty.
func LoadPolicy(path string) (*Policy, error) {
	raw := defaultPolicy
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("access: read policy: %w", err)
		}
		raw = data
	}
	return ParsePolicy(raw)
}

// ParsePolicy decodes and validates a YAML policy document.
func ParsePolicy(raw []byte) (*Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("access: decode policy: %w", err)
	}

	policy := &Policy{gates: make(map[string]Gate, len(file.Gates)), routes: make(map[string]string, len(file.Routes))}

	for name, values := range file.Gates {
		allowed := make(role.Set, 0, len(values))
		for _, value := range values {
			r, err := role.Parse(value)
			if err != nil || r == role.None {
				return nil, fmt.Errorf("access: gate %q: invalid role %q", name, value)
			}
			allowed = append(allowed, r)
		}
		policy.gates[name] = Gate{Name: name, Allowed: allowed}
	}

	for _, route := range file.Routes {
		if route.Pattern == "" {
			return nil, fmt.Errorf("access: route without pattern")
		}
		if _, ok := policy.gates[route.Gate]; !ok {
			return nil, fmt.Errorf("access: route %q references unknown gate %q", route.Pattern, route.Gate)
		}
		if _, dup := policy.routes[route.Pattern]; dup {
			return nil, fmt.Errorf("access: route %q listed twice", route.Pattern)
		}
		policy.routes[route.Pattern] = route.Gate
	}

	return policy, nil
}

// Gate returns a named gate.
func (p *Policy) Gate(name string) (Gate, bool) {
	gate, ok := p.gates[name]
	return gate, ok
}

// Route returns the gate guarding a route pattern. ok is false for public routes.
func (p *Policy) Route(pattern string) (Gate, bool) {
	name, ok := p.routes[pattern]
	if !ok {
		return Gate{}, false
	}
	return p.gates[name], true
}

// Patterns lists every guarded pattern in sorted order.
func (p *Policy) Patterns() []string {
	patterns := make([]string, 0, len(p.routes))
	for pattern := range p.routes {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)
	return patterns
}
