package notify

import (
	"fmt"

	"produce-market/internal/domain"

	"go.uber.org/zap"
)

const defaultStoreName = "Produce Market"

// Notifier turns order and pre-order events into queued emails. Rendering
// failures are logged and never reach the caller.
type Notifier struct {
	dispatcher *Dispatcher
	storeName  func() string
	adminEmail string
	logger     *zap.Logger
}

// NewNotifier resolves the store name through storeName on every message,
// so renames show up without a restart. A nil func uses the default name.
func NewNotifier(dispatcher *Dispatcher, storeName func() string, adminEmail string, logger *zap.Logger) *Notifier {
	return &Notifier{dispatcher: dispatcher, storeName: storeName, adminEmail: adminEmail, logger: logger}
}

func (n *Notifier) store() string {
	if n.storeName == nil {
		return defaultStoreName
	}
	if name := n.storeName(); name != "" {
		return name
	}
	return defaultStoreName
}

func (n *Notifier) OrderPlaced(order *domain.Order, customerEmail string) {
	view := orderView{StoreName: n.store(), Order: order}
	n.enqueue(customerEmail, fmt.Sprintf("Order %s received", order.OrderNumber), "order_placed.html", view)
	if n.adminEmail != "" {
		n.enqueue(n.adminEmail, fmt.Sprintf("New order %s", order.OrderNumber), "admin_new_order.html", view)
	}
}

func (n *Notifier) OrderStatusChanged(order *domain.Order, customerEmail string) {
	view := orderView{StoreName: n.store(), Order: order, StatusLabel: statusLabel(string(order.Status))}
	n.enqueue(customerEmail, fmt.Sprintf("Order %s is %s", order.OrderNumber, view.StatusLabel), "order_status.html", view)
}

func (n *Notifier) PreOrderReceived(p *domain.PreOrder) {
	view := preOrderView{StoreName: n.store(), PreOrder: p}
	n.enqueue(p.ContactEmail, fmt.Sprintf("Pre-order for %s received", p.ProductName), "preorder_received.html", view)
}

func (n *Notifier) PreOrderStatusChanged(p *domain.PreOrder) {
	view := preOrderView{StoreName: n.store(), PreOrder: p, StatusLabel: statusLabel(string(p.Status))}
	n.enqueue(p.ContactEmail, fmt.Sprintf("Pre-order for %s is %s", p.ProductName, view.StatusLabel), "preorder_status.html", view)
}

func (n *Notifier) enqueue(to, subject, tmpl string, data any) {
	if to == "" {
		return
	}
	html, err := render(tmpl, data)
	if err != nil {
		n.logger.Error("Failed to render email", zap.String("template", tmpl), zap.Error(err))
		return
	}
	n.dispatcher.Enqueue(Message{To: to, Subject: subject, HTML: html})
}
