package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"produce-market/internal/config"
	"produce-market/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []Message
	gate     chan struct{}
	err      error
}

func (s *recordingSender) Send(ctx context.Context, msg Message) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return s.err
}

func (s *recordingSender) sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:             uuid.New(),
		OrderNumber:    "PM-20260109-3f2a9c",
		RecipientName:  "Asha <script>",
		Phone:          "9876543210",
		Line1:          "12 Market Road",
		City:           "Bengaluru",
		PostalCode:     "560001",
		Status:         domain.OrderStatusOutForDelivery,
		PaymentMethod:  domain.PaymentMethodCOD,
		PaymentStatus:  domain.PaymentStatusPending,
		Subtotal:       decimal.RequireFromString("240"),
		DeliveryCharge: decimal.RequireFromString("35.5"),
		Total:          decimal.RequireFromString("275.5"),
		DistanceKM:     decimal.RequireFromString("3.6"),
		Items: []*domain.OrderItem{
			{ProductName: "Alphonso Mango", VariantName: "1 kg", Quantity: 2, UnitPrice: decimal.RequireFromString("120"), LineTotal: decimal.RequireFromString("240")},
		},
	}
}

func TestHTTPSender(t *testing.T) {
	var got sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPSender(config.EmailConfig{BaseURL: server.URL + "/", APIKey: "re_test", From: "orders@shop.test"})
	err := sender.Send(context.Background(), Message{To: "asha@example.com", Subject: "Hi", HTML: "<p>hi</p>"})
	require.NoError(t, err)

	assert.Equal(t, "orders@shop.test", got.From)
	assert.Equal(t, []string{"asha@example.com"}, got.To)
	assert.Equal(t, "<p>hi</p>", got.HTML)
}

func TestHTTPSenderRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer server.Close()

	err := NewHTTPSender(config.EmailConfig{BaseURL: server.URL}).Send(context.Background(), Message{To: "a@b.c"})
	assert.True(t, errors.Is(err, ErrProviderRejected))
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 2, 10, nil, zap.NewNop())

	for i := 0; i < 5; i++ {
		assert.True(t, d.Enqueue(Message{To: "a@b.c", Subject: "s"}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	assert.Len(t, sender.sent(), 5)
	assert.False(t, d.Enqueue(Message{To: "a@b.c"}), "closed dispatcher must refuse messages")
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sender := &recordingSender{gate: make(chan struct{})}
	d := NewDispatcher(sender, 1, 1, nil, zap.New(core))

	// The worker blocks on the first message, the second fills the queue.
	require.True(t, d.Enqueue(Message{To: "1@b.c"}))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	require.True(t, d.Enqueue(Message{To: "2@b.c"}))

	assert.False(t, d.Enqueue(Message{To: "3@b.c"}))
	assert.Equal(t, 1, logs.FilterMessage("Email dropped").Len())

	close(sender.gate)
	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, sender.sent(), 2)
}

func TestDispatcherSwallowsSendErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	sender := &recordingSender{err: errors.New("smtp down")}
	d := NewDispatcher(sender, 1, 4, nil, zap.New(core))

	d.Enqueue(Message{To: "a@b.c"})
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("Failed to send email").Len())
}

func TestDispatcherIgnoresEmptyRecipient(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, 1, 1, nil, zap.NewNop())
	defer d.Close(context.Background())
	assert.False(t, d.Enqueue(Message{Subject: "no one"}))
}

func TestNotifierOrderPlaced(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 1, 10, nil, zap.NewNop())
	n := NewNotifier(d, func() string { return "Green Basket" }, "admin@shop.test", zap.NewNop())

	n.OrderPlaced(sampleOrder(), "asha@example.com")
	require.NoError(t, d.Close(context.Background()))

	msgs := sender.sent()
	require.Len(t, msgs, 2)

	byRecipient := map[string]Message{}
	for _, m := range msgs {
		byRecipient[m.To] = m
	}

	customer := byRecipient["asha@example.com"]
	assert.Equal(t, "Order PM-20260109-3f2a9c received", customer.Subject)
	assert.Contains(t, customer.HTML, "Green Basket")
	assert.Contains(t, customer.HTML, "Alphonso Mango (1 kg)")
	assert.Contains(t, customer.HTML, "275.50")
	assert.Contains(t, customer.HTML, "3.6 km")
	assert.NotContains(t, customer.HTML, "<script>", "recipient name must be escaped")

	assert.Equal(t, "New order PM-20260109-3f2a9c", byRecipient["admin@shop.test"].Subject)
}

func TestNotifierPicksUpStoreRename(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 1, 10, nil, zap.NewNop())
	name := "Green Basket"
	n := NewNotifier(d, func() string { return name }, "", zap.NewNop())

	n.OrderPlaced(sampleOrder(), "asha@example.com")
	name = "Orchard Lane"
	n.OrderStatusChanged(sampleOrder(), "asha@example.com")
	name = ""
	n.OrderStatusChanged(sampleOrder(), "ravi@example.com")
	require.NoError(t, d.Close(context.Background()))

	byRecipient := map[string][]Message{}
	for _, m := range sender.sent() {
		byRecipient[m.To] = append(byRecipient[m.To], m)
	}
	require.Len(t, byRecipient["asha@example.com"], 2)
	htmls := byRecipient["asha@example.com"][0].HTML + byRecipient["asha@example.com"][1].HTML
	assert.Contains(t, htmls, "Green Basket")
	assert.Contains(t, htmls, "Orchard Lane")
	require.Len(t, byRecipient["ravi@example.com"], 1)
	assert.Contains(t, byRecipient["ravi@example.com"][0].HTML, "Produce Market")
}

func TestNotifierStatusEmails(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 1, 10, nil, zap.NewNop())
	n := NewNotifier(d, nil, "", zap.NewNop())

	n.OrderStatusChanged(sampleOrder(), "asha@example.com")

	expected := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	n.PreOrderReceived(&domain.PreOrder{
		ContactName: "Ravi", ContactEmail: "ravi@example.com", ProductName: "Litchi",
		Quantity: 3, RequiresPayment: true, AmountDue: decimal.RequireFromString("150"), ExpectedDate: &expected,
	})
	n.PreOrderStatusChanged(&domain.PreOrder{ContactEmail: "", ProductName: "Litchi", Status: domain.PreOrderStatusConfirmed})
	require.NoError(t, d.Close(context.Background()))

	msgs := sender.sent()
	require.Len(t, msgs, 2, "messages without a recipient are skipped")

	subjects := []string{msgs[0].Subject, msgs[1].Subject}
	assert.Contains(t, subjects, "Order PM-20260109-3f2a9c is out for delivery")
	assert.Contains(t, subjects, "Pre-order for Litchi received")
	for _, m := range msgs {
		if m.To == "ravi@example.com" {
			assert.Contains(t, m.HTML, "150.00")
			assert.Contains(t, m.HTML, "1 Mar 2026")
			assert.Contains(t, m.HTML, "Produce Market")
		}
	}
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, NewLogSender(zap.New(core)).Send(context.Background(), Message{To: "a@b.c", Subject: "s"}))
	assert.Equal(t, 1, logs.Len())
}
