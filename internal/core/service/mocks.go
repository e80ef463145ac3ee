package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/ports"
)

// MockProvider implements ports.ProviderPort with overridable behavior.
type MockProvider struct {
	ProviderName domain.ProviderName
	Tokenization domain.TokenizationMethod
	InTestMode   bool

	TokenizeDirectFn            func(ctx context.Context, req domain.TokenizeRequest) (*domain.TokenizationResult, error)
	CreateTokenizationSessionFn func(ctx context.Context, req domain.SessionRequest) (*domain.SessionResult, error)
	CompleteTokenizationFn      func(ctx context.Context, providerSessionID string, callback domain.CallbackData) (*domain.TokenizationResult, error)
	ProcessPaymentFn            func(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error)
	RefundPaymentFn             func(ctx context.Context, req domain.RefundRequest) error
	GetPaymentStatusFn          func(ctx context.Context, transactionID string) (*domain.ChargeResult, error)
	VerifyWebhookFn             func(payload []byte, signature string) bool
	ParseWebhookFn              func(ctx context.Context, payload []byte) (*domain.WebhookEvent, error)
}

func NewMockProvider(name domain.ProviderName) *MockProvider {
	return &MockProvider{
		ProviderName: name,
		Tokenization: domain.MethodDirect,
	}
}

func (m *MockProvider) Name() domain.ProviderName { return m.ProviderName }

func (m *MockProvider) Method() domain.TokenizationMethod { return m.Tokenization }

func (m *MockProvider) TestMode() bool { return m.InTestMode }

func (m *MockProvider) TokenizeDirect(ctx context.Context, req domain.TokenizeRequest) (*domain.TokenizationResult, error) {
	if m.TokenizeDirectFn != nil {
		return m.TokenizeDirectFn(ctx, req)
	}
	return &domain.TokenizationResult{
		Token:    "tok-" + uuid.NewString(),
		LastFour: req.Card.LastFour(),
		Brand:    req.Card.Brand(),
		CardType: "credit",
		ExpMonth: req.Card.ExpMonth,
		ExpYear:  req.Card.ExpYear,
	}, nil
}

func (m *MockProvider) CreateTokenizationSession(ctx context.Context, req domain.SessionRequest) (*domain.SessionResult, error) {
	if m.CreateTokenizationSessionFn != nil {
		return m.CreateTokenizationSessionFn(ctx, req)
	}
	return &domain.SessionResult{
		ProviderSessionID: "psid-" + uuid.NewString(),
		RedirectURL:       "https://vendor.test/redirect",
		ExpiresAt:         time.Now().Add(10 * time.Minute),
	}, nil
}

func (m *MockProvider) CompleteTokenization(ctx context.Context, providerSessionID string, callback domain.CallbackData) (*domain.TokenizationResult, error) {
	if m.CompleteTokenizationFn != nil {
		return m.CompleteTokenizationFn(ctx, providerSessionID, callback)
	}
	return &domain.TokenizationResult{
		Token:    "tok-" + uuid.NewString(),
		LastFour: "6623",
		Brand:    "Visa",
		CardType: "credit",
	}, nil
}

func (m *MockProvider) ProcessPayment(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	if m.ProcessPaymentFn != nil {
		return m.ProcessPaymentFn(ctx, req)
	}
	return &domain.ChargeResult{
		TransactionID: "txn-" + uuid.NewString(),
		Status:        domain.PaymentCompleted,
		RawStatus:     "AUTHORIZED",
	}, nil
}

func (m *MockProvider) RefundPayment(ctx context.Context, req domain.RefundRequest) error {
	if m.RefundPaymentFn != nil {
		return m.RefundPaymentFn(ctx, req)
	}
	return nil
}

func (m *MockProvider) GetPaymentStatus(ctx context.Context, transactionID string) (*domain.ChargeResult, error) {
	if m.GetPaymentStatusFn != nil {
		return m.GetPaymentStatusFn(ctx, transactionID)
	}
	return &domain.ChargeResult{TransactionID: transactionID, Status: domain.PaymentCompleted}, nil
}

func (m *MockProvider) VerifyWebhook(payload []byte, signature string) bool {
	if m.VerifyWebhookFn != nil {
		return m.VerifyWebhookFn(payload, signature)
	}
	return true
}

func (m *MockProvider) ParseWebhook(ctx context.Context, payload []byte) (*domain.WebhookEvent, error) {
	if m.ParseWebhookFn != nil {
		return m.ParseWebhookFn(ctx, payload)
	}
	return nil, nil
}

// MockRegistry resolves provider names against a fixed adapter map.
type MockRegistry struct {
	Providers map[domain.ProviderName]ports.ProviderPort
	GetFn     func(name domain.ProviderName) (ports.ProviderPort, error)
}

func NewMockRegistry(providers ...ports.ProviderPort) *MockRegistry {
	m := &MockRegistry{Providers: make(map[domain.ProviderName]ports.ProviderPort)}
	for _, p := range providers {
		m.Providers[p.Name()] = p
	}
	return m
}

func (m *MockRegistry) Get(name domain.ProviderName) (ports.ProviderPort, error) {
	if m.GetFn != nil {
		return m.GetFn(name)
	}
	if p, ok := m.Providers[name]; ok {
		return p, nil
	}
	return nil, domain.NewMissingConfigError(name, "credentials")
}

func (m *MockRegistry) IsAvailable(name domain.ProviderName) bool {
	_, ok := m.Providers[name]
	return ok
}

func (m *MockRegistry) List() []domain.ProviderInfo {
	infos := make([]domain.ProviderInfo, 0, len(m.Providers))
	for _, p := range m.Providers {
		infos = append(infos, domain.ProviderInfo{
			Provider: p.Name(),
			Method:   p.Method(),
			Enabled:  true,
			TestMode: p.TestMode(),
		})
	}
	return infos
}

// MockCardStore is a map-backed CardStore.
type MockCardStore struct {
	mu    sync.RWMutex
	cards map[uuid.UUID]*domain.PaymentCard

	CreateFn        func(ctx context.Context, card *domain.PaymentCard) error
	UnsetDefaultsFn func(ctx context.Context, userID string, exceptID uuid.UUID) error
}

func NewMockCardStore() *MockCardStore {
	return &MockCardStore{cards: make(map[uuid.UUID]*domain.PaymentCard)}
}

func (m *MockCardStore) Create(ctx context.Context, card *domain.PaymentCard) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, card)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *card
	m.cards[card.ID] = &copied
	return nil
}

func (m *MockCardStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.PaymentCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.cards[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, nil
}

func (m *MockCardStore) FindByToken(ctx context.Context, userID, token string) (*domain.PaymentCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.cards {
		if c.UserID == userID && c.PaymentToken == token {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockCardStore) FindByUser(ctx context.Context, userID string) ([]*domain.PaymentCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.PaymentCard
	for _, c := range m.cards {
		if c.UserID == userID {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *MockCardStore) UnsetDefaults(ctx context.Context, userID string, exceptID uuid.UUID) error {
	if m.UnsetDefaultsFn != nil {
		return m.UnsetDefaultsFn(ctx, userID, exceptID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cards {
		if c.UserID == userID && c.ID != exceptID {
			c.IsDefault = false
		}
	}
	return nil
}

// MockSessionStore is a map-backed SessionStore.
type MockSessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*domain.TokenizationSession

	CreateFn func(ctx context.Context, session *domain.TokenizationSession) error
	UpdateFn func(ctx context.Context, session *domain.TokenizationSession) error
}

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{sessions: make(map[uuid.UUID]*domain.TokenizationSession)}
}

func (m *MockSessionStore) Create(ctx context.Context, session *domain.TokenizationSession) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *MockSessionStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.TokenizationSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (m *MockSessionStore) Update(ctx context.Context, session *domain.TokenizationSession) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

// MockPaymentStore is a map-backed PaymentStore.
type MockPaymentStore struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.Payment

	CreateFn func(ctx context.Context, payment *domain.Payment) error
	UpdateFn func(ctx context.Context, payment *domain.Payment) error
}

func NewMockPaymentStore() *MockPaymentStore {
	return &MockPaymentStore{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (m *MockPaymentStore) Create(ctx context.Context, payment *domain.Payment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, payment)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *payment
	m.payments[payment.ID] = &copied
	return nil
}

func (m *MockPaymentStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.payments[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (m *MockPaymentStore) FindByTransactionID(ctx context.Context, provider domain.ProviderName, transactionID string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.Provider == provider && p.TransactionID != nil && *p.TransactionID == transactionID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockPaymentStore) FindByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Payment
	for _, p := range m.payments {
		if p.UserID == userID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *MockPaymentStore) FindProcessing(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := time.Now().Add(-olderThan)
	var out []*domain.Payment
	for _, p := range m.payments {
		if p.Status == domain.PaymentProcessing && p.CreatedAt.Before(cutoff) {
			copied := *p
			out = append(out, &copied)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockPaymentStore) Update(ctx context.Context, payment *domain.Payment) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, payment)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *payment
	m.payments[payment.ID] = &copied
	return nil
}
