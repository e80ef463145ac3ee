package provider

import (
	"github.com/sebagarciam/servipay/internal/config"
	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/ports"
)

// Transbank publishes shared integration credentials for its Webpay OneClick
// Mall sandbox. They are safe to embed: anyone can use them against the
// integration environment and they move no real money.
const (
	transbankIntegrationBaseURL       = "https://webpay3gint.transbank.cl"
	transbankIntegrationCommerceCode  = "597055555541"
	transbankIntegrationChildCommerce = "597055555542"
	transbankIntegrationAPIKey        = "579B532A7440BB0C9079DED94D31EA1615BACEB56610332264630D42D0A36B1C"
)

// resolveCredentials applies the three-tier policy for one provider:
// explicit caller config, else a public test profile where the processor has
// one, else MISSING_CONFIG. Only Transbank has a public sandbox; MercadoPago
// and Stripe credentials are never substituted.
func (r *Registry) resolveCredentials(name domain.ProviderName) (any, bool, error) {
	switch name {
	case domain.ProviderTransbank:
		cfg, testMode, err := resolveTransbank(r.cfg.Transbank)
		return cfg, testMode, err
	case domain.ProviderMercadoPago:
		cfg, testMode, err := resolveMercadoPago(r.cfg.MercadoPago)
		return cfg, testMode, err
	case domain.ProviderStripe:
		cfg, testMode, err := resolveStripe(r.cfg.Stripe)
		return cfg, testMode, err
	default:
		return nil, false, domain.NewUnknownProviderError(string(name))
	}
}

// resolveTransbank applies the fallback tier: an explicit enabled=false
// switches the provider off, explicit credentials win, and an absent config
// gets the public integration profile.
func resolveTransbank(cfg config.TransbankConfig) (config.TransbankConfig, bool, error) {
	if cfg.Enabled != nil && !*cfg.Enabled {
		return cfg, false, domain.NewProviderDisabledError(domain.ProviderTransbank)
	}
	if cfg.CommerceCode != "" && cfg.APIKey != "" {
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://webpay3g.transbank.cl"
		}
		if cfg.ChildCommerce == "" {
			cfg.ChildCommerce = cfg.CommerceCode
		}
		return cfg, false, nil
	}
	return config.TransbankConfig{
		CommerceCode:  transbankIntegrationCommerceCode,
		ChildCommerce: transbankIntegrationChildCommerce,
		APIKey:        transbankIntegrationAPIKey,
		BaseURL:       transbankIntegrationBaseURL,
	}, true, nil
}

func resolveMercadoPago(cfg config.MercadoPagoConfig) (config.MercadoPagoConfig, bool, error) {
	if !cfg.Enabled || cfg.AccessToken == "" {
		return cfg, false, domain.NewMissingConfigError(domain.ProviderMercadoPago, "access_token")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mercadopago.com"
	}
	return cfg, false, nil
}

func resolveStripe(cfg config.StripeConfig) (config.StripeConfig, bool, error) {
	if !cfg.Enabled || cfg.SecretKey == "" {
		return cfg, false, domain.NewMissingConfigError(domain.ProviderStripe, "secret_key")
	}
	return cfg, false, nil
}

var _ ports.ProviderRegistry = (*Registry)(nil)
