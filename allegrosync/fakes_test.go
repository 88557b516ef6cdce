package allegrosync

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fakturo/invoices_backend/models"
	"github.com/sirupsen/logrus"
)

// In-memory collaborators for exercising the service without MySQL or Redis.

type fakeAPI struct {
	authorizeState string
	exchangeToken  *TokenResponse
	exchangeErr    error
	refreshToken   *TokenResponse
	refreshErr     error
	refreshCalls   int
	accountId      string
	orders         []NormalizedOrder
	listErrs       []error
	listCalls      int
}

func (f *fakeAPI) AuthorizeURL(state string) string {
	f.authorizeState = state
	return "https://allegro.example/authorize?state=" + state
}

func (f *fakeAPI) ExchangeAuthCode(ctx context.Context, code string) (*TokenResponse, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchangeToken, nil
}

func (f *fakeAPI) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshToken, nil
}

func (f *fakeAPI) AccountId(ctx context.Context, accessToken string) (string, error) {
	return f.accountId, nil
}

func (f *fakeAPI) ListOrders(ctx context.Context, accessToken string, limit int) ([]NormalizedOrder, error) {
	f.listCalls++
	if len(f.listErrs) > 0 {
		err := f.listErrs[0]
		f.listErrs = f.listErrs[1:]
		if err != nil {
			return nil, &FetchError{Err: err}
		}
	}
	return f.orders, nil
}

type fakeStore struct {
	integrations map[uint]*models.Integration
	saves        int
}

func newFakeStore(items ...*models.Integration) *fakeStore {
	s := &fakeStore{integrations: map[uint]*models.Integration{}}
	for _, integ := range items {
		s.integrations[integ.ID] = integ
	}
	return s
}

func (f *fakeStore) Get(ctx context.Context, id uint) (*models.Integration, error) {
	integ, ok := f.integrations[id]
	if !ok {
		return nil, errors.New("integration not found")
	}
	return integ, nil
}

func (f *fakeStore) FindByAccount(ctx context.Context, userId int, externalAccountId string) (*models.Integration, error) {
	for _, integ := range f.integrations {
		if integ.UserId == userId && integ.ExternalAccountId == externalAccountId {
			return integ, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Save(ctx context.Context, integ *models.Integration) error {
	f.saves++
	if integ.ID == 0 {
		integ.ID = uint(len(f.integrations) + 1)
	}
	f.integrations[integ.ID] = integ
	return nil
}

type fakeCustomers struct {
	byBuyerId map[string]*models.Customer
	createErr error
	creates   int
}

func newFakeCustomers() *fakeCustomers {
	return &fakeCustomers{byBuyerId: map[string]*models.Customer{}}
}

func (f *fakeCustomers) FindByExternalBuyerId(ctx context.Context, buyerId string) (*models.Customer, error) {
	return f.byBuyerId[buyerId], nil
}

func (f *fakeCustomers) Create(ctx context.Context, input *models.NewCustomer) (*models.Customer, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.creates++
	customer := &models.Customer{
		ID:              len(f.byBuyerId) + 1,
		Name:            input.Name,
		Email:           input.Email,
		Phone:           input.Phone,
		AddressLine1:    input.AddressLine1,
		City:            input.City,
		PostalCode:      input.PostalCode,
		CountryCode:     input.CountryCode,
		ExternalBuyerId: input.ExternalBuyerId,
	}
	f.byBuyerId[input.ExternalBuyerId] = customer
	return customer, nil
}

type fakeProducts struct {
	byOfferId map[string]*models.Product
	createErr error
	creates   int
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{byOfferId: map[string]*models.Product{}}
}

func (f *fakeProducts) FindByExternalOfferId(ctx context.Context, offerId string) (*models.Product, error) {
	return f.byOfferId[offerId], nil
}

func (f *fakeProducts) Create(ctx context.Context, input *models.NewProduct) (*models.Product, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.creates++
	product := &models.Product{
		ID:              len(f.byOfferId) + 1,
		Name:            input.Name,
		Sku:             input.Sku,
		SalesPrice:      input.SalesPrice,
		VatRate:         input.VatRate,
		ExternalOfferId: input.ExternalOfferId,
	}
	f.byOfferId[input.ExternalOfferId] = product
	return product, nil
}

type fakeInvoices struct {
	byOrderId  map[string]*models.SalesInvoice
	inputs     []*models.NewSalesInvoice
	failOrders map[string]error
}

func newFakeInvoices() *fakeInvoices {
	return &fakeInvoices{
		byOrderId:  map[string]*models.SalesInvoice{},
		failOrders: map[string]error{},
	}
}

func (f *fakeInvoices) ExistsForOrder(ctx context.Context, externalOrderId string) (bool, error) {
	_, ok := f.byOrderId[externalOrderId]
	return ok, nil
}

func (f *fakeInvoices) Create(ctx context.Context, input *models.NewSalesInvoice) (*models.SalesInvoice, error) {
	if err := f.failOrders[input.ExternalOrderId]; err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, input)
	invoice := &models.SalesInvoice{
		ID:              len(f.byOrderId) + 1,
		CustomerId:      input.CustomerId,
		ExternalOrderId: input.ExternalOrderId,
	}
	f.byOrderId[input.ExternalOrderId] = invoice
	return invoice, nil
}

type fakeCache struct {
	keys      map[string]time.Duration
	existsErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{keys: map[string]time.Duration{}}
}

func (f *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.keys[key]
	return ok, nil
}

func (f *fakeCache) SetSentinel(ctx context.Context, key string, ttl time.Duration) error {
	f.keys[key] = ttl
	return nil
}

// plainCipher marks values instead of encrypting them so tests can assert on
// what was stored.
type plainCipher struct{}

func (plainCipher) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (plainCipher) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", errors.New("not encrypted")
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

type fixture struct {
	service   *Service
	api       *fakeAPI
	store     *fakeStore
	customers *fakeCustomers
	products  *fakeProducts
	invoices  *fakeInvoices
	cache     *fakeCache
	sleeps    []time.Duration
	now       time.Time
}

func newFixture(integrations ...*models.Integration) *fixture {
	f := &fixture{
		api:       &fakeAPI{},
		store:     newFakeStore(integrations...),
		customers: newFakeCustomers(),
		products:  newFakeProducts(),
		invoices:  newFakeInvoices(),
		cache:     newFakeCache(),
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	logger := logrus.New()
	logger.SetOutput(nullWriter{})

	svc, err := NewService(Dependencies{
		API:       f.api,
		Store:     f.store,
		Customers: f.customers,
		Products:  f.products,
		Invoices:  f.invoices,
		Cache:     f.cache,
		Cipher:    plainCipher{},
		Logger:    logger,
	})
	if err != nil {
		panic(err)
	}
	svc.now = func() time.Time { return f.now }
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return nil
	}
	f.service = svc
	return f
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

func activeIntegration(id uint) *models.Integration {
	active := true
	expires := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	return &models.Integration{
		ID:                id,
		BusinessId:        "biz-1",
		UserId:            7,
		Provider:          models.IntegrationProviderAllegro,
		ExternalAccountId: "acct-1",
		AccessToken:       "enc:access-token",
		RefreshToken:      "enc:refresh-token",
		TokenExpiresAt:    expires,
		IsActive:          &active,
	}
}
