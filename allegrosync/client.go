package allegrosync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fakturo/invoices_backend/config"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const networkTimeout = 10 * time.Second

// Statuses worth pulling: orders a seller still has to act on. Shipped or
// cancelled checkout forms never become invoices here.
var actionableStatuses = []string{"READY_FOR_PROCESSING", "NEW"}

type allegroClient struct {
	apiURL       string
	authURL      string
	clientID     string
	clientSecret string
	redirectURI  string
	http         *http.Client
	logger       *logrus.Logger
}

func NewAllegroClient() *allegroClient {
	apiURL := strings.TrimSpace(os.Getenv("ALLEGRO_API_BASE_URL"))
	if apiURL == "" {
		apiURL = "https://api.allegro.pl"
	}
	authURL := strings.TrimSpace(os.Getenv("ALLEGRO_AUTH_BASE_URL"))
	if authURL == "" {
		authURL = "https://allegro.pl/auth/oauth"
	}
	return &allegroClient{
		apiURL:       strings.TrimRight(apiURL, "/"),
		authURL:      strings.TrimRight(authURL, "/"),
		clientID:     strings.TrimSpace(os.Getenv("ALLEGRO_CLIENT_ID")),
		clientSecret: strings.TrimSpace(os.Getenv("ALLEGRO_CLIENT_SECRET")),
		redirectURI:  strings.TrimSpace(os.Getenv("ALLEGRO_REDIRECT_URI")),
		http:         &http.Client{Timeout: networkTimeout},
		logger:       config.GetLogger(),
	}
}

func (c *allegroClient) AuthorizeURL(state string) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", c.redirectURI)
	params.Set("state", state)
	return c.authURL + "/authorize?" + params.Encode()
}

func (c *allegroClient) ExchangeAuthCode(ctx context.Context, code string) (*TokenResponse, error) {
	body := url.Values{}
	body.Set("grant_type", "authorization_code")
	body.Set("code", code)
	body.Set("redirect_uri", c.redirectURI)
	return c.tokenRequest(ctx, body)
}

func (c *allegroClient) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	body := url.Values{}
	body.Set("grant_type", "refresh_token")
	body.Set("refresh_token", refreshToken)
	return c.tokenRequest(ctx, body)
}

func (c *allegroClient) tokenRequest(ctx context.Context, body url.Values) (*TokenResponse, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return nil, errors.New("allegro client credentials are not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL+"/token", strings.NewReader(body.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var token TokenResponse
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, errors.New("token endpoint returned no access_token")
	}
	return &token, nil
}

func (c *allegroClient) AccountId(ctx context.Context, accessToken string) (string, error) {
	raw, err := c.get(ctx, accessToken, "/me", nil)
	if err != nil {
		return "", err
	}
	var me struct {
		ID    string `json:"id"`
		Login string `json:"login"`
	}
	if err := json.Unmarshal(raw, &me); err != nil {
		return "", err
	}
	if me.ID == "" {
		return "", errors.New("/me returned no account id")
	}
	return me.ID, nil
}

func (c *allegroClient) ListOrders(ctx context.Context, accessToken string, limit int) ([]NormalizedOrder, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	for _, status := range actionableStatuses {
		params.Add("status", status)
	}

	raw, err := c.get(ctx, accessToken, "/order/checkout-forms", params)
	if err != nil {
		return nil, &FetchError{Err: err}
	}

	var parsed checkoutFormsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &FetchError{Err: err}
	}

	orders := make([]NormalizedOrder, 0, len(parsed.CheckoutForms))
	for _, form := range parsed.CheckoutForms {
		order, err := normalizeOrder(form)
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"module":   "allegrosync",
				"funcName": "ListOrders",
				"orderId":  form.ID,
			}).Warnf("dropping malformed order: %v", err)
			continue
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

func (c *allegroClient) get(ctx context.Context, accessToken string, path string, params url.Values) ([]byte, error) {
	endpoint := c.apiURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.allegro.public.v1+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("allegro api error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

type checkoutFormsResponse struct {
	CheckoutForms []checkoutForm `json:"checkoutForms"`
	Count         int            `json:"count"`
	TotalCount    int            `json:"totalCount"`
}

type checkoutForm struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	Status      string `json:"status"`
	Marketplace struct {
		ID string `json:"id"`
	} `json:"marketplace"`
	Buyer struct {
		ID          string `json:"id"`
		Login       string `json:"login"`
		Email       string `json:"email"`
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		PhoneNumber string `json:"phoneNumber"`
	} `json:"buyer"`
	Delivery struct {
		Address struct {
			Street      string `json:"street"`
			City        string `json:"city"`
			ZipCode     string `json:"zipCode"`
			CountryCode string `json:"countryCode"`
		} `json:"address"`
	} `json:"delivery"`
	Summary struct {
		TotalToPay struct {
			Amount   json.Number `json:"amount"`
			Currency string      `json:"currency"`
		} `json:"totalToPay"`
	} `json:"summary"`
	LineItems []struct {
		Offer struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"offer"`
		Quantity json.Number `json:"quantity"`
		Price    struct {
			Amount json.Number `json:"amount"`
		} `json:"price"`
	} `json:"lineItems"`
	BoughtAt string `json:"boughtAt"`
}

// normalizeOrder maps one wire checkout form into a NormalizedOrder. An order
// without a buyer id or without any usable line item is malformed and rejected;
// the caller drops it without failing the fetch.
func normalizeOrder(form checkoutForm) (*NormalizedOrder, error) {
	externalId := strings.TrimSpace(form.ID)
	if externalId == "" {
		return nil, errors.New("order id missing")
	}
	buyerId := strings.TrimSpace(form.Buyer.ID)
	if buyerId == "" {
		buyerId = strings.TrimSpace(form.Buyer.Login)
	}
	if buyerId == "" {
		return nil, errors.New("buyer id missing")
	}

	var items []OrderLineItem
	for _, li := range form.LineItems {
		offerId := strings.TrimSpace(li.Offer.ID)
		if offerId == "" {
			continue
		}
		qty := decimalFromNumber(li.Quantity)
		if qty.LessThanOrEqual(decimal.Zero) {
			qty = decimal.NewFromInt(1)
		}
		items = append(items, OrderLineItem{
			OfferId:   offerId,
			Title:     strings.TrimSpace(li.Offer.Name),
			Quantity:  qty,
			UnitPrice: decimalFromNumber(li.Price.Amount),
		})
	}
	if len(items) == 0 {
		return nil, errors.New("no usable line items")
	}

	number := strings.TrimSpace(form.Number)
	if number == "" {
		number = externalId
	}
	buyerName := strings.TrimSpace(strings.TrimSpace(form.Buyer.FirstName) + " " + strings.TrimSpace(form.Buyer.LastName))

	return &NormalizedOrder{
		ExternalId:  externalId,
		OrderNumber: number,
		Marketplace: strings.TrimSpace(form.Marketplace.ID),
		BuyerId:     buyerId,
		BuyerEmail:  strings.TrimSpace(form.Buyer.Email),
		BuyerName:   buyerName,
		BuyerPhone:  strings.TrimSpace(form.Buyer.PhoneNumber),
		Street:      strings.TrimSpace(form.Delivery.Address.Street),
		City:        strings.TrimSpace(form.Delivery.Address.City),
		PostalCode:  strings.TrimSpace(form.Delivery.Address.ZipCode),
		CountryCode: strings.TrimSpace(form.Delivery.Address.CountryCode),
		TotalToPay:  decimalFromNumber(form.Summary.TotalToPay.Amount),
		LineItems:   items,
		Status:      strings.TrimSpace(form.Status),
		BoughtAt:    parseTimeOrNow(form.BoughtAt),
	}, nil
}

func decimalFromNumber(num json.Number) decimal.Decimal {
	if num.String() == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(num.String()); err == nil {
		return d
	}
	return decimal.Zero
}

func parseTimeOrNow(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now()
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Now()
}
