package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/voicemetrics/callbridge/internal/domain/record"
	"github.com/voicemetrics/callbridge/pkg/logger"
	"github.com/voicemetrics/callbridge/pkg/metrics"
)

// defaultOrderPageLimit is the e-commerce API's maximum page size.
const defaultOrderPageLimit = 250

// OrderClient fetches order batches from the e-commerce platform's admin
// orders endpoint.
type OrderClient struct {
	baseURL     string
	accessToken string
	pageLimit   int
	httpClient  *http.Client
	log         logger.Logger
}

// NewOrderClient creates an order client with configuration options.
func NewOrderClient(baseURL, accessToken string, opts ...OrderOption) *OrderClient {
	c := &OrderClient{
		baseURL:     baseURL,
		accessToken: accessToken,
		pageLimit:   defaultOrderPageLimit,
		httpClient:  http.DefaultClient,
		log:         logger.Get().Named("order-source"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// orderPayload mirrors one order in the platform response. discount_codes
// and line_items stay raw: the pipeline persists them as serialized text and
// parses them strictly where needed.
type orderPayload struct {
	Email          string          `json:"email"`
	OrderNumber    json.Number     `json:"order_number"`
	CreatedAt      string          `json:"created_at"`
	TotalPrice     string          `json:"total_price"`
	DiscountCodes  json.RawMessage `json:"discount_codes"`
	LineItems      json.RawMessage `json:"line_items"`
	Phone          string          `json:"phone"`
	Customer       *struct {
		FirstName string `json:"first_name"`
	} `json:"customer"`
	BillingAddress *struct {
		Phone string `json:"phone"`
	} `json:"billing_address"`
}

// FetchOrders fetches and parses the latest order batch. Orders without an
// order number are skipped; other malformed fields are defaulted per field.
func (c *OrderClient) FetchOrders(ctx context.Context) ([]record.Order, error) {
	endpoint := fmt.Sprintf("%s/orders.json?%s", c.baseURL, url.Values{
		"status": {"any"},
		"limit":  {strconv.Itoa(c.pageLimit)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body struct {
		Orders []orderPayload `json:"orders"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]record.Order, 0, len(body.Orders))
	for _, p := range body.Orders {
		o, ok := c.parseOrder(ctx, p)
		if !ok {
			metrics.RecordSourceParseError("orders")
			continue
		}
		out = append(out, o)
	}
	metrics.RecordSourceFetched("orders", len(out))
	return out, nil
}

// parseOrder converts one payload into an Order. The billing-address phone
// is preferred over the order-level one; the primary title is the first line
// item's.
func (c *OrderClient) parseOrder(ctx context.Context, p orderPayload) (record.Order, bool) {
	orderNumber := p.OrderNumber.String()
	if orderNumber == "" || orderNumber == "0" {
		return record.Order{}, false
	}

	var createdAt time.Time
	if p.CreatedAt != "" {
		ts, err := time.Parse(time.RFC3339, p.CreatedAt)
		if err != nil {
			c.log.Warn(ctx, "order has unparseable created_at; defaulting to zero",
				logger.String("order_number", orderNumber),
				logger.Error(err),
			)
		} else {
			createdAt = ts.UTC()
		}
	}

	price, err := strconv.ParseFloat(p.TotalPrice, 64)
	if err != nil {
		price = 0
	}

	phone := p.Phone
	if p.BillingAddress != nil && p.BillingAddress.Phone != "" {
		phone = p.BillingAddress.Phone
	}

	var customerName string
	if p.Customer != nil {
		customerName = p.Customer.FirstName
	}

	lineItems := string(p.LineItems)
	return record.Order{
		OrderNumber:   orderNumber,
		Email:         p.Email,
		CreatedAt:     createdAt,
		TotalPrice:    price,
		DiscountCodes: string(p.DiscountCodes),
		CustomerName:  customerName,
		LineItems:     lineItems,
		Title:         record.FirstTitle(lineItems),
		Phone:         phone,
	}, true
}
