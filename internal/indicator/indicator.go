package indicator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"MarketWatch/internal/domain/models"
)

// Indicator computes one series over historical bars. Params are
// indicator-specific; the first is conventionally the period.
type Indicator interface {
	Name() string
	Execute(bars []models.Bar, params ...int) ([]decimal.Decimal, error)
}

// Registry maps indicator names to implementations so strategies can look
// them up by name.
type Registry struct {
	mu         sync.RWMutex
	indicators map[string]Indicator
}

// NewRegistry returns a registry preloaded with the built-in indicators.
func NewRegistry() *Registry {
	r := &Registry{indicators: make(map[string]Indicator)}
	r.Register(SMA{})
	r.Register(RSI{})
	r.Register(StochRSI{})
	return r
}

func (r *Registry) Register(ind Indicator) {
	r.mu.Lock()
	r.indicators[ind.Name()] = ind
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ind, ok := r.indicators[name]
	if !ok {
		return nil, fmt.Errorf("unknown indicator %q", name)
	}
	return ind, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.indicators))
	for name := range r.indicators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func closes(bars []models.Bar) []decimal.Decimal {
	out := make([]decimal.Decimal, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func periodParam(params []int, def int) (int, error) {
	period := def
	if len(params) > 0 {
		period = params[0]
	}
	if period < 1 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	return period, nil
}
