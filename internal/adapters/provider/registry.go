// Package provider resolves processor names to live adapter instances.
package provider

import (
	"log/slog"
	"sync"

	"github.com/sebagarciam/servipay/internal/adapters/provider/mercadopago"
	stripeadapter "github.com/sebagarciam/servipay/internal/adapters/provider/stripe"
	"github.com/sebagarciam/servipay/internal/adapters/provider/transbank"
	"github.com/sebagarciam/servipay/internal/config"
	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/ports"
)

type factory func(r *Registry) (ports.ProviderPort, error)

// Registry is the provider factory: configs are populated eagerly at startup,
// adapter instances lazily on first Get. Construction failures are never
// cached, so a later call can recover once credentials are fixed, without a
// process restart.
type Registry struct {
	mu        sync.Mutex
	cfg       config.ProvidersConfig
	sessions  config.SessionsConfig
	adapters  map[domain.ProviderName]ports.ProviderPort
	factories map[domain.ProviderName]factory
	logger    *slog.Logger
}

func NewRegistry(cfg config.ProvidersConfig, sessions config.SessionsConfig, logger *slog.Logger) *Registry {
	r := &Registry{
		cfg:      cfg,
		sessions: sessions,
		adapters: make(map[domain.ProviderName]ports.ProviderPort),
		logger:   logger,
	}
	r.factories = map[domain.ProviderName]factory{
		domain.ProviderTransbank:   buildTransbank,
		domain.ProviderMercadoPago: buildMercadoPago,
		domain.ProviderStripe:      buildStripe,
	}
	return r
}

// Get returns the cached adapter for name, constructing it on first use.
func (r *Registry) Get(name domain.ProviderName) (ports.ProviderPort, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if adapter, ok := r.adapters[name]; ok {
		return adapter, nil
	}

	build, ok := r.factories[name]
	if !ok {
		return nil, domain.NewUnknownProviderError(string(name))
	}

	adapter, err := build(r)
	if err != nil {
		return nil, err
	}

	r.adapters[name] = adapter
	r.logger.Info("provider adapter initialized",
		"provider", name,
		"method", adapter.Method(),
		"test_mode", adapter.TestMode(),
	)
	return adapter, nil
}

// IsAvailable answers without forcing adapter construction: true if an
// instance is cached, or credentials resolve (explicitly or via a public
// test profile).
func (r *Registry) IsAvailable(name domain.ProviderName) bool {
	r.mu.Lock()
	_, cached := r.adapters[name]
	r.mu.Unlock()
	if cached {
		return true
	}
	_, _, err := r.resolveCredentials(name)
	return err == nil
}

// List describes every provider this registry knows about, available or not.
func (r *Registry) List() []domain.ProviderInfo {
	names := []domain.ProviderName{
		domain.ProviderTransbank,
		domain.ProviderMercadoPago,
		domain.ProviderStripe,
	}
	infos := make([]domain.ProviderInfo, 0, len(names))
	for _, name := range names {
		_, testMode, err := r.resolveCredentials(name)
		infos = append(infos, domain.ProviderInfo{
			Provider: name,
			Method:   primaryMethod(name),
			Enabled:  err == nil,
			TestMode: err == nil && testMode,
		})
	}
	return infos
}

func primaryMethod(name domain.ProviderName) domain.TokenizationMethod {
	if name == domain.ProviderTransbank {
		return domain.MethodRedirect
	}
	return domain.MethodDirect
}

func buildTransbank(r *Registry) (ports.ProviderPort, error) {
	cfg, testMode, err := resolveTransbank(r.cfg.Transbank)
	if err != nil {
		return nil, err
	}
	return transbank.New(cfg, r.sessions.TransbankTTL, testMode, r.logger), nil
}

func buildMercadoPago(r *Registry) (ports.ProviderPort, error) {
	cfg, _, err := resolveMercadoPago(r.cfg.MercadoPago)
	if err != nil {
		return nil, err
	}
	return mercadopago.New(cfg, r.logger), nil
}

func buildStripe(r *Registry) (ports.ProviderPort, error) {
	cfg, _, err := resolveStripe(r.cfg.Stripe)
	if err != nil {
		return nil, err
	}
	return stripeadapter.New(cfg, r.sessions.StripeTTL, r.logger), nil
}
