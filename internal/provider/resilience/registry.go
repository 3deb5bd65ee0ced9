package resilience

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ProviderStatus is a point-in-time view of one tracked provider client.
// Zero times mean no outcome of that kind has been observed yet.
type ProviderStatus struct {
	Name                string
	State               gobreaker.State
	ConsecutiveFailures uint32
	Calls               uint64
	Failures            uint64
	LastSuccess         time.Time
	LastFailure         time.Time
	LastError           string
}

// Available reports whether calls reach the provider normally.
func (s ProviderStatus) Available() bool {
	return s.State == gobreaker.StateClosed
}

// Probing reports whether the breaker is letting trial calls through.
func (s ProviderStatus) Probing() bool {
	return s.State == gobreaker.StateHalfOpen
}

// Registry tracks provider clients so /v1/ops/status can report on them.
// One per process, handed to clients through ClientConfig.Registry.
type Registry struct {
	mu      sync.RWMutex
	tracked map[string]*trackedClient
	now     func() time.Time
}

type trackedClient struct {
	client      *Client
	calls       uint64
	failures    uint64
	lastSuccess time.Time
	lastFailure time.Time
	lastError   string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tracked: make(map[string]*trackedClient),
		now:     time.Now,
	}
}

// Track starts reporting on client under name. A later Track with the same
// name replaces the earlier client and resets its history.
func (r *Registry) Track(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracked[name] = &trackedClient{client: client}
}

// Observe records the outcome of one logical call; a nil err is a success.
// Untracked names are ignored.
func (r *Registry) Observe(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tracked[name]
	if !ok {
		return
	}
	t.calls++
	if err == nil {
		t.lastSuccess = r.now()
		return
	}
	t.failures++
	t.lastFailure = r.now()
	t.lastError = err.Error()
}

// Status returns the status of name and whether it is tracked.
func (r *Registry) Status(name string) (ProviderStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tracked[name]
	if !ok {
		return ProviderStatus{}, false
	}
	return t.status(name), true
}

// Snapshot returns every tracked provider ordered by name.
func (r *Registry) Snapshot() []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderStatus, 0, len(r.tracked))
	for name, t := range r.tracked {
		out = append(out, t.status(name))
	}
	slices.SortFunc(out, func(a, b ProviderStatus) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Len returns the number of tracked providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tracked)
}

func (t *trackedClient) status(name string) ProviderStatus {
	return ProviderStatus{
		Name:                name,
		State:               t.client.CircuitBreakerState(),
		ConsecutiveFailures: t.client.CircuitBreakerCounts().ConsecutiveFailures,
		Calls:               t.calls,
		Failures:            t.failures,
		LastSuccess:         t.lastSuccess,
		LastFailure:         t.lastFailure,
		LastError:           t.lastError,
	}
}
