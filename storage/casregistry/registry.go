// Package casregistry maps backend names to storage.CAS constructors.
//
// Backends register themselves in init(); a binary enables a backend by
// importing its package (often as a blank import).
package casregistry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"xdao.co/c2paview/storage"
)

// Usage restricts which programs should accept a given backend.
type Usage uint8

const (
	// UsageCLI marks backends available to the command-line tool.
	UsageCLI Usage = 1 << iota
	// UsageDaemon marks backends available to the long-running server.
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }

// Settings holds backend options keyed by dotted names such as
// "localfs.dir" or "grpc.target".
type Settings map[string]string

// Get returns the trimmed value for key.
func (s Settings) Get(key string) string {
	return strings.TrimSpace(s[key])
}

// Require returns the value for key or an error naming the backend.
func (s Settings) Require(backend, key string) (string, error) {
	v := s.Get(key)
	if v == "" {
		return "", fmt.Errorf("casregistry: backend %q requires %s", backend, key)
	}
	return v, nil
}

// Backend is a build-time plugin that can open a storage.CAS implementation.
type Backend struct {
	Name        string
	Description string
	Usage       Usage

	// Open constructs the CAS from settings. It returns an optional close
	// function.
	Open func(ctx context.Context, s Settings) (storage.CAS, func() error, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("casregistry: backend name is required")
	}
	if b.Open == nil {
		return fmt.Errorf("casregistry: backend %q missing Open", b.Name)
	}
	if b.Usage == 0 {
		return fmt.Errorf("casregistry: backend %q missing Usage", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("casregistry: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns backends matching usage, sorted by name.
func List(usage Usage) []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns backend names matching usage, sorted.
func Names(usage Usage) []string {
	bs := List(usage)
	n := make([]string, 0, len(bs))
	for _, b := range bs {
		n = append(n, b.Name)
	}
	return n
}

// Open opens the named backend if it exists and matches usage.
func Open(ctx context.Context, name string, usage Usage, s Settings) (storage.CAS, func() error, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("unknown backend %q (available: %s)", name, strings.Join(Names(usage), ", "))
	}
	if !b.Usage.allows(usage) {
		return nil, nil, fmt.Errorf("backend %q not supported in this binary", name)
	}
	cas, closeFn, err := b.Open(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return cas, closeFn, nil
}
