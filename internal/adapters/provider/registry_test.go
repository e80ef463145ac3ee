package provider

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sebagarciam/servipay/internal/config"
	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSessions() config.SessionsConfig {
	return config.SessionsConfig{
		Store:        "postgres",
		TransbankTTL: 10 * time.Minute,
		StripeTTL:    24 * time.Hour,
	}
}

func TestRegistryTransbankFallsBackToIntegrationProfile(t *testing.T) {
	r := NewRegistry(config.ProvidersConfig{}, testSessions(), testLogger())

	adapter, err := r.Get(domain.ProviderTransbank)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderTransbank, adapter.Name())
	assert.Equal(t, domain.MethodRedirect, adapter.Method())
	assert.True(t, adapter.TestMode())
}

func TestRegistryTransbankExplicitCredentials(t *testing.T) {
	r := NewRegistry(config.ProvidersConfig{
		Transbank: config.TransbankConfig{
			CommerceCode: "597012345678",
			APIKey:       "live-key",
		},
	}, testSessions(), testLogger())

	adapter, err := r.Get(domain.ProviderTransbank)
	require.NoError(t, err)
	assert.False(t, adapter.TestMode())
}

func TestRegistryTransbankExplicitlyDisabled(t *testing.T) {
	off := false
	r := NewRegistry(config.ProvidersConfig{
		Transbank: config.TransbankConfig{Enabled: &off},
	}, testSessions(), testLogger())

	_, err := r.Get(domain.ProviderTransbank)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeMissingConfig))
	assert.False(t, r.IsAvailable(domain.ProviderTransbank))

	for _, info := range r.List() {
		if info.Provider == domain.ProviderTransbank {
			assert.False(t, info.Enabled)
			assert.False(t, info.TestMode)
		}
	}
}

func TestRegistryMercadoPagoRequiresCredentials(t *testing.T) {
	r := NewRegistry(config.ProvidersConfig{}, testSessions(), testLogger())

	_, err := r.Get(domain.ProviderMercadoPago)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeMissingConfig))
	assert.False(t, r.IsAvailable(domain.ProviderMercadoPago))

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Contains(t, domainErr.Message, "access_token")
}

func TestRegistryStripeRequiresCredentials(t *testing.T) {
	r := NewRegistry(config.ProvidersConfig{}, testSessions(), testLogger())

	_, err := r.Get(domain.ProviderStripe)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeMissingConfig))

	r = NewRegistry(config.ProvidersConfig{
		Stripe: config.StripeConfig{Enabled: true, SecretKey: "sk_test_123"},
	}, testSessions(), testLogger())

	adapter, err := r.Get(domain.ProviderStripe)
	require.NoError(t, err)
	assert.Equal(t, domain.MethodDirect, adapter.Method())
	assert.True(t, r.IsAvailable(domain.ProviderStripe))
}

func TestRegistryUnknownProvider(t *testing.T) {
	r := NewRegistry(config.ProvidersConfig{}, testSessions(), testLogger())

	_, err := r.Get(domain.ProviderName("paypal"))
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeUnknownProvider))
	assert.False(t, r.IsAvailable(domain.ProviderName("paypal")))
}

func TestRegistryCachesAdapters(t *testing.T) {
	r := NewRegistry(config.ProvidersConfig{}, testSessions(), testLogger())

	built := 0
	original := r.factories[domain.ProviderTransbank]
	r.factories[domain.ProviderTransbank] = func(r *Registry) (ports.ProviderPort, error) {
		built++
		return original(r)
	}

	first, err := r.Get(domain.ProviderTransbank)
	require.NoError(t, err)
	second, err := r.Get(domain.ProviderTransbank)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, built)
}

func TestRegistryDoesNotCacheFailures(t *testing.T) {
	r := NewRegistry(config.ProvidersConfig{}, testSessions(), testLogger())

	attempts := 0
	original := r.factories[domain.ProviderMercadoPago]
	r.factories[domain.ProviderMercadoPago] = func(r *Registry) (ports.ProviderPort, error) {
		attempts++
		return original(r)
	}

	_, err := r.Get(domain.ProviderMercadoPago)
	require.Error(t, err)

	// Credentials fixed at runtime; the next call retries construction.
	r.cfg.MercadoPago = config.MercadoPagoConfig{Enabled: true, AccessToken: "APP_USR-123"}
	adapter, err := r.Get(domain.ProviderMercadoPago)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderMercadoPago, adapter.Name())
	assert.Equal(t, 2, attempts)
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry(config.ProvidersConfig{
		Stripe: config.StripeConfig{Enabled: true, SecretKey: "sk_test_123"},
	}, testSessions(), testLogger())

	infos := r.List()
	require.Len(t, infos, 3)

	byName := make(map[domain.ProviderName]domain.ProviderInfo, len(infos))
	for _, info := range infos {
		byName[info.Provider] = info
	}

	assert.True(t, byName[domain.ProviderTransbank].Enabled)
	assert.True(t, byName[domain.ProviderTransbank].TestMode)
	assert.Equal(t, domain.MethodRedirect, byName[domain.ProviderTransbank].Method)

	assert.False(t, byName[domain.ProviderMercadoPago].Enabled)

	assert.True(t, byName[domain.ProviderStripe].Enabled)
	assert.False(t, byName[domain.ProviderStripe].TestMode)
}
