package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/billing"
	"github.com/ledgerlink/backend/internal/domain/entitlement"
	"github.com/ledgerlink/backend/internal/domain/identity"
	"github.com/ledgerlink/backend/internal/domain/shared"
)

// =============================================================================
// Mock gateway
// =============================================================================

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateCustomer(ctx context.Context, email string) (*billing.GatewayCustomer, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.GatewayCustomer), args.Error(1)
}

func (m *MockPaymentGateway) StartSubscription(ctx context.Context, customerID, paymentMethodID string, amount decimal.Decimal) (*billing.GatewaySubscription, error) {
	args := m.Called(ctx, customerID, paymentMethodID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.GatewaySubscription), args.Error(1)
}

func (m *MockPaymentGateway) UpdateSubscriptionAmount(ctx context.Context, subscriptionID string, amount decimal.Decimal) error {
	return m.Called(ctx, subscriptionID, amount).Error(0)
}

func (m *MockPaymentGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

func (m *MockPaymentGateway) Resume(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

func (m *MockPaymentGateway) UpdatePaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	return m.Called(ctx, customerID, paymentMethodID).Error(0)
}

// =============================================================================
// In-memory repositories
// =============================================================================

type memSubRepo struct {
	subs map[uuid.UUID]*billing.Subscription
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{subs: make(map[uuid.UUID]*billing.Subscription)}
}

func (r *memSubRepo) Save(_ context.Context, sub *billing.Subscription) error {
	r.subs[sub.AccountID] = sub
	return nil
}

func (r *memSubRepo) Update(_ context.Context, sub *billing.Subscription) error {
	if _, ok := r.subs[sub.AccountID]; !ok {
		return shared.ErrNotFound
	}
	r.subs[sub.AccountID] = sub
	return nil
}

func (r *memSubRepo) FindByAccount(_ context.Context, accountID uuid.UUID) (*billing.Subscription, error) {
	sub, ok := r.subs[accountID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return sub, nil
}

func (r *memSubRepo) FindDueForRenewal(_ context.Context, cutoff time.Time, limit int) ([]*billing.Subscription, error) {
	var due []*billing.Subscription
	for _, sub := range r.subs {
		if (sub.Status == billing.StatusFirstMonth || sub.Status == billing.StatusActive) && !sub.PeriodEnd.After(cutoff) {
			due = append(due, sub)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (r *memSubRepo) FindElapsedEnding(_ context.Context, cutoff time.Time, limit int) ([]*billing.Subscription, error) {
	var out []*billing.Subscription
	for _, sub := range r.subs {
		if sub.Status == billing.StatusEnding && !sub.PeriodEnd.After(cutoff) {
			out = append(out, sub)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type memAccountRepo struct {
	accounts map[uuid.UUID]*identity.Account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[uuid.UUID]*identity.Account)}
}

func (r *memAccountRepo) Save(_ context.Context, acc *identity.Account) error {
	r.accounts[acc.ID] = acc
	return nil
}

func (r *memAccountRepo) Update(_ context.Context, acc *identity.Account) error {
	r.accounts[acc.ID] = acc
	return nil
}

func (r *memAccountRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.accounts, id)
	return nil
}

func (r *memAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*identity.Account, error) {
	acc, ok := r.accounts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return acc, nil
}

func (r *memAccountRepo) FindByEmail(_ context.Context, email string) (*identity.Account, error) {
	for _, acc := range r.accounts {
		if acc.Email == email {
			return acc, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memAccountRepo) FindByEmailChangeToken(_ context.Context, token string) (*identity.Account, error) {
	for _, acc := range r.accounts {
		if acc.EmailChangeToken == token {
			return acc, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memAccountRepo) FindByGatewayCustomerID(_ context.Context, customerID string) (*identity.Account, error) {
	for _, acc := range r.accounts {
		if acc.GatewayCustomerID != "" && acc.GatewayCustomerID == customerID {
			return acc, nil
		}
	}
	return nil, shared.ErrNotFound
}

type memConnRepo struct {
	conns map[uuid.UUID]*entitlement.BankConnection
}

func newMemConnRepo() *memConnRepo {
	return &memConnRepo{conns: make(map[uuid.UUID]*entitlement.BankConnection)}
}

func (r *memConnRepo) Save(_ context.Context, conn *entitlement.BankConnection) error {
	r.conns[conn.ID] = conn
	return nil
}

func (r *memConnRepo) Update(_ context.Context, conn *entitlement.BankConnection) error {
	r.conns[conn.ID] = conn
	return nil
}

func (r *memConnRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.conns, id)
	return nil
}

func (r *memConnRepo) FindByID(_ context.Context, id uuid.UUID) (*entitlement.BankConnection, error) {
	conn, ok := r.conns[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return conn, nil
}

func (r *memConnRepo) FindByItemID(_ context.Context, accountID uuid.UUID, itemID string) (*entitlement.BankConnection, error) {
	for _, c := range r.conns {
		if c.AccountID == accountID && c.ItemID == itemID {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memConnRepo) FindByAccount(_ context.Context, accountID uuid.UUID) (entitlement.ConnectionSet, error) {
	var set entitlement.ConnectionSet
	for _, c := range r.conns {
		if c.AccountID == accountID {
			set = append(set, c)
		}
	}
	return set, nil
}

type memWalletRepo struct {
	wallets map[uuid.UUID]*entitlement.TokenWallet
}

func newMemWalletRepo() *memWalletRepo {
	return &memWalletRepo{wallets: make(map[uuid.UUID]*entitlement.TokenWallet)}
}

func (r *memWalletRepo) Save(_ context.Context, w *entitlement.TokenWallet) error {
	r.wallets[w.AccountID] = w
	return nil
}

func (r *memWalletRepo) Update(_ context.Context, w *entitlement.TokenWallet) error {
	if _, ok := r.wallets[w.AccountID]; !ok {
		return shared.ErrNotFound
	}
	r.wallets[w.AccountID] = w
	return nil
}

func (r *memWalletRepo) FindByAccount(_ context.Context, accountID uuid.UUID) (*entitlement.TokenWallet, error) {
	w, ok := r.wallets[accountID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return w, nil
}

type memHistoryRepo struct {
	entries []*entitlement.TokenHistoryEntry
}

func (r *memHistoryRepo) Append(_ context.Context, entries ...*entitlement.TokenHistoryEntry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *memHistoryRepo) FindByAccount(_ context.Context, accountID uuid.UUID, filter shared.Filter) (shared.Paginated[entitlement.TokenHistoryEntry], error) {
	var items []entitlement.TokenHistoryEntry
	for _, e := range r.entries {
		if e.AccountID == accountID {
			items = append(items, *e)
		}
	}
	return shared.NewPaginated(items, int64(len(items)), 1, filter.Limit()), nil
}

type fakeBankLink struct {
	removed []string
}

func (f *fakeBankLink) CreateLinkToken(_ context.Context, _ string) (string, error) {
	return "link-token", nil
}

func (f *fakeBankLink) ExchangePublicToken(_ context.Context, publicToken string) (*entitlement.LinkedItem, error) {
	return &entitlement.LinkedItem{ItemID: "item-" + publicToken, InstitutionName: "Testbank", AccessToken: "access-" + publicToken}, nil
}

func (f *fakeBankLink) RemoveItem(_ context.Context, accessToken string) error {
	f.removed = append(f.removed, accessToken)
	return nil
}

type noopLocker struct{}

func (noopLocker) WithLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type noopTxManager struct{}

func (noopTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// =============================================================================
// Fixture
// =============================================================================

type fixture struct {
	svc      *SubscriptionService
	gateway  *MockPaymentGateway
	subs     *memSubRepo
	accounts *memAccountRepo
	conns    *memConnRepo
	wallets  *memWalletRepo
	history  *memHistoryRepo
	bankLink *fakeBankLink
	account  *identity.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gateway:  &MockPaymentGateway{},
		subs:     newMemSubRepo(),
		accounts: newMemAccountRepo(),
		conns:    newMemConnRepo(),
		wallets:  newMemWalletRepo(),
		history:  &memHistoryRepo{},
		bankLink: &fakeBankLink{},
	}

	acc, err := identity.NewAccount("user@example.com", "Test User", "correct-horse")
	require.NoError(t, err)
	acc.ClearDomainEvents()
	require.NoError(t, f.accounts.Save(context.Background(), acc))
	f.account = acc

	f.svc = NewSubscriptionService(
		f.subs, f.accounts, f.conns, f.wallets, f.history,
		f.gateway, f.bankLink, nil, noopLocker{}, noopTxManager{}, zap.NewNop(),
		DefaultSubscriptionServiceConfig(),
	)
	return f
}

func (f *fixture) subscribe(t *testing.T, tx, inv int) {
	t.Helper()
	f.gateway.On("CreateCustomer", mock.Anything, f.account.Email).
		Return(&billing.GatewayCustomer{CustomerID: "cus_1", Email: f.account.Email}, nil).Once()
	f.gateway.On("StartSubscription", mock.Anything, "cus_1", "pm_1", mock.Anything).
		Return(&billing.GatewaySubscription{SubscriptionID: "sub_1", CustomerID: "cus_1"}, nil).Once()

	_, err := f.svc.Subscribe(context.Background(), SubscribeInput{
		AccountID:       f.account.ID,
		PaymentMethodID: "pm_1",
		Transaction:     tx,
		Investment:      inv,
	})
	require.NoError(t, err)
}

// =============================================================================
// Tests
// =============================================================================

func TestSubscriptionService_Subscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("charges the gateway then fills the wallet", func(t *testing.T) {
		f := newFixture(t)
		f.subscribe(t, 3, 1)

		status, err := f.svc.GetStatus(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, "first_month", status.Status)
		assert.Equal(t, billing.SelectedLimits{Transaction: 3, Investment: 1}, status.CurrentLimits)

		wallet, err := f.wallets.FindByAccount(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, entitlement.TokenBalance{Transaction: 3, Investment: 1, Swap: 1}, wallet.Balance)

		// every counter moved from zero, so each gets a refill entry
		assert.Len(t, f.history.entries, 3)
		f.gateway.AssertExpectations(t)
	})

	t.Run("declined payment leaves nothing behind", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("CreateCustomer", mock.Anything, mock.Anything).
			Return(&billing.GatewayCustomer{CustomerID: "cus_1"}, nil).Once()
		f.gateway.On("StartSubscription", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, billing.ErrGatewayCardDeclined).Once()

		_, err := f.svc.Subscribe(ctx, SubscribeInput{
			AccountID:       f.account.ID,
			PaymentMethodID: "pm_1",
			Transaction:     2,
		})
		require.Error(t, err)

		status, err := f.svc.GetStatus(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, "unsubscribed", status.Status)

		_, err = f.wallets.FindByAccount(ctx, f.account.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("double subscribe is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.subscribe(t, 1, 0)

		_, err := f.svc.Subscribe(ctx, SubscribeInput{
			AccountID:       f.account.ID,
			PaymentMethodID: "pm_1",
			Transaction:     1,
		})
		assert.Error(t, err)
	})
}

func TestSubscriptionService_ProposeNextCycleLimits(t *testing.T) {
	ctx := context.Background()

	t.Run("validates against the connection set before repricing", func(t *testing.T) {
		f := newFixture(t)
		f.subscribe(t, 3, 0)

		for i := 0; i < 2; i++ {
			conn, err := entitlement.NewBankConnection(f.account.ID, uuid.NewString(), "Testbank", []entitlement.ProductType{entitlement.ProductTypeTransaction})
			require.NoError(t, err)
			require.NoError(t, f.conns.Save(ctx, conn))
		}

		// below the 2-connection minimum
		_, err := f.svc.ProposeNextCycleLimits(ctx, f.account.ID, 1, 0)
		require.Error(t, err)
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.ErrCodeBelowMinimum, de.Code)

		f.gateway.On("UpdateSubscriptionAmount", mock.Anything, "sub_1", mock.Anything).Return(nil).Once()
		dto, err := f.svc.ProposeNextCycleLimits(ctx, f.account.ID, 4, 0)
		require.NoError(t, err)
		assert.Equal(t, billing.SelectedLimits{Transaction: 4}, dto.NextLimits)

		wallet, err := f.wallets.FindByAccount(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, entitlement.NextCycleLimits{Transaction: 4}, wallet.NextLimits)
		f.gateway.AssertExpectations(t)
	})

	t.Run("rejected after cancel", func(t *testing.T) {
		f := newFixture(t)
		f.subscribe(t, 1, 0)

		f.gateway.On("CancelAtPeriodEnd", mock.Anything, "sub_1").Return(nil).Once()
		dto, err := f.svc.Cancel(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, "ending", dto.Status)

		_, err = f.svc.ProposeNextCycleLimits(ctx, f.account.ID, 2, 0)
		require.Error(t, err)
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "SUBSCRIPTION_LOCKED", de.Code)
	})
}

func TestSubscriptionService_CancelKeepFix(t *testing.T) {
	ctx := context.Background()

	t.Run("keep resumes the gateway and restores the status", func(t *testing.T) {
		f := newFixture(t)
		f.subscribe(t, 1, 0)

		f.gateway.On("CancelAtPeriodEnd", mock.Anything, "sub_1").Return(nil).Once()
		_, err := f.svc.Cancel(ctx, f.account.ID)
		require.NoError(t, err)

		f.gateway.On("Resume", mock.Anything, "sub_1").Return(nil).Once()
		dto, err := f.svc.Keep(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, "first_month", dto.Status)
		f.gateway.AssertExpectations(t)
	})

	t.Run("fix payment swaps the card and clears the failure", func(t *testing.T) {
		f := newFixture(t)
		f.subscribe(t, 1, 0)

		_, err := f.svc.RecordPaymentFailure(ctx, f.account.ID)
		require.NoError(t, err)

		f.gateway.On("UpdatePaymentMethod", mock.Anything, "cus_1", "pm_2").Return(nil).Once()
		dto, err := f.svc.FixPayment(ctx, f.account.ID, "pm_2")
		require.NoError(t, err)
		assert.Equal(t, "active", dto.Status)
	})

	t.Run("gateway failure keeps the local state", func(t *testing.T) {
		f := newFixture(t)
		f.subscribe(t, 1, 0)

		f.gateway.On("CancelAtPeriodEnd", mock.Anything, "sub_1").Return(billing.ErrGatewayUnavailable).Once()
		_, err := f.svc.Cancel(ctx, f.account.ID)
		require.Error(t, err)

		status, err := f.svc.GetStatus(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, "first_month", status.Status)
	})
}

func TestSubscriptionService_RollOverCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("removes flagged connections and refills the wallet", func(t *testing.T) {
		f := newFixture(t)
		f.subscribe(t, 3, 0)

		keep, err := entitlement.NewBankConnection(f.account.ID, "item-keep", "Testbank", []entitlement.ProductType{entitlement.ProductTypeTransaction})
		require.NoError(t, err)
		require.NoError(t, f.conns.Save(ctx, keep))

		flagged, err := entitlement.NewBankConnection(f.account.ID, "item-drop", "Testbank", []entitlement.ProductType{entitlement.ProductTypeTransaction})
		require.NoError(t, err)
		flagged.AccessToken = "access-drop"
		flagged.SetRemovalFlag(true)
		require.NoError(t, f.conns.Save(ctx, flagged))

		require.NoError(t, f.svc.RollOverCycle(ctx, f.account.ID, time.Now().AddDate(0, 1, 0)))

		status, err := f.svc.GetStatus(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, "active", status.Status)

		conns, err := f.conns.FindByAccount(ctx, f.account.ID)
		require.NoError(t, err)
		require.Len(t, conns, 1)
		assert.Equal(t, "item-keep", conns[0].ItemID)
		assert.Contains(t, f.bankLink.removed, "access-drop")

		wallet, err := f.wallets.FindByAccount(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, entitlement.TokenBalance{Transaction: 3, Investment: 0, Swap: 1}, wallet.Balance)
	})

	t.Run("rejects rollover while payment is failing and keeps connections", func(t *testing.T) {
		f := newFixture(t)
		f.subscribe(t, 3, 0)

		flagged, err := entitlement.NewBankConnection(f.account.ID, "item-drop", "Testbank", []entitlement.ProductType{entitlement.ProductTypeTransaction})
		require.NoError(t, err)
		flagged.AccessToken = "access-drop"
		flagged.SetRemovalFlag(true)
		require.NoError(t, f.conns.Save(ctx, flagged))

		_, err = f.svc.RecordPaymentFailure(ctx, f.account.ID)
		require.NoError(t, err)

		// A paid-invoice webhook arriving out of order must not destroy
		// the flagged connection before the status check rejects it.
		err = f.svc.RollOverCycle(ctx, f.account.ID, time.Now().AddDate(0, 1, 0))
		require.Error(t, err)

		conns, err := f.conns.FindByAccount(ctx, f.account.ID)
		require.NoError(t, err)
		require.Len(t, conns, 1)
		assert.Equal(t, "item-drop", conns[0].ItemID)
		assert.Empty(t, f.bankLink.removed)
	})

	t.Run("writes refill history only for counters that moved", func(t *testing.T) {
		f := newFixture(t)
		f.subscribe(t, 2, 0)
		entriesAfterSubscribe := len(f.history.entries)

		// Spend one transaction token so its balance differs from the
		// next-cycle limit; investment and swap land where they already are.
		wallet, err := f.wallets.FindByAccount(ctx, f.account.ID)
		require.NoError(t, err)
		require.NoError(t, wallet.Consume(entitlement.TokenTypeTransaction, 1))
		require.NoError(t, f.wallets.Update(ctx, wallet))

		require.NoError(t, f.svc.RollOverCycle(ctx, f.account.ID, time.Now().AddDate(0, 1, 0)))

		refills := f.history.entries[entriesAfterSubscribe:]
		require.Len(t, refills, 1)
		assert.Equal(t, entitlement.TokenTypeTransaction, refills[0].TokenType)
		assert.Equal(t, 2, refills[0].ResultingBalance)
	})
}

func TestSubscriptionService_TearDownElapsed(t *testing.T) {
	ctx := context.Background()

	t.Run("unlinks everything and returns to unsubscribed", func(t *testing.T) {
		f := newFixture(t)
		f.subscribe(t, 2, 1)

		conn, err := entitlement.NewBankConnection(f.account.ID, "item-1", "Testbank", []entitlement.ProductType{entitlement.ProductTypeTransaction})
		require.NoError(t, err)
		conn.AccessToken = "access-1"
		require.NoError(t, f.conns.Save(ctx, conn))

		f.gateway.On("CancelAtPeriodEnd", mock.Anything, "sub_1").Return(nil).Once()
		_, err = f.svc.Cancel(ctx, f.account.ID)
		require.NoError(t, err)

		require.NoError(t, f.svc.TearDownElapsed(ctx, f.account.ID, time.Now().AddDate(0, 1, 0)))

		status, err := f.svc.GetStatus(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, "unsubscribed", status.Status)

		conns, err := f.conns.FindByAccount(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Empty(t, conns)
		assert.Contains(t, f.bankLink.removed, "access-1")

		wallet, err := f.wallets.FindByAccount(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, entitlement.TokenBalance{}, wallet.Balance)
	})

	t.Run("rejects teardown before the period elapsed", func(t *testing.T) {
		f := newFixture(t)
		f.subscribe(t, 2, 1)

		conn, err := entitlement.NewBankConnection(f.account.ID, "item-1", "Testbank", []entitlement.ProductType{entitlement.ProductTypeTransaction})
		require.NoError(t, err)
		require.NoError(t, f.conns.Save(ctx, conn))

		f.gateway.On("CancelAtPeriodEnd", mock.Anything, "sub_1").Return(nil).Once()
		_, err = f.svc.Cancel(ctx, f.account.ID)
		require.NoError(t, err)

		err = f.svc.TearDownElapsed(ctx, f.account.ID, time.Now())
		require.Error(t, err)

		// Nothing was unlinked by the rejected teardown.
		conns, err := f.conns.FindByAccount(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Len(t, conns, 1)
		assert.Empty(t, f.bankLink.removed)
	})
}

func TestSubscriptionService_FinalizeElapsedEndings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.subscribe(t, 2, 1)

	f.gateway.On("CancelAtPeriodEnd", mock.Anything, "sub_1").Return(nil).Once()
	_, err := f.svc.Cancel(ctx, f.account.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.FinalizeElapsedEndings(ctx, time.Now().AddDate(0, 1, 0), 100))

	status, err := f.svc.GetStatus(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, "unsubscribed", status.Status)
}

func TestSubscriptionService_QuotePricing(t *testing.T) {
	f := newFixture(t)

	dto, err := f.svc.QuotePricing(context.Background(), 4, 2)
	require.NoError(t, err)
	assert.True(t, dto.Total.Equal(decimal.NewFromFloat(2.86)), "got %s", dto.Total)
}
