// Package mailer sends transactional mail. Delivery is best effort: callers
// log failures and move on, nothing retries.
package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"mineral-shop/internal/models"
)

// Sender delivers a single message. *gomail.Dialer satisfies it; tests use
// an in-memory implementation.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	sender     Sender
	from       string
	ownerEmail string
}

// New creates a mailer backed by an SMTP dialer.
func New(host string, port int, username, password, from, ownerEmail string) *Mailer {
	return &Mailer{
		sender:     gomail.NewDialer(host, port, username, password),
		from:       from,
		ownerEmail: ownerEmail,
	}
}

// NewWithSender creates a mailer with a custom sender (used by tests)
func NewWithSender(sender Sender, from, ownerEmail string) *Mailer {
	return &Mailer{sender: sender, from: from, ownerEmail: ownerEmail}
}

// SendOrderConfirmation mails the customer that their payment was received.
func (m *Mailer) SendOrderConfirmation(order *models.Order, items []models.OrderItem) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", order.CustomerEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Confirmación de compra — pedido %s", shortID(order.ID)))
	msg.SetBody("text/plain", confirmationBody(order, items))

	return m.sender.DialAndSend(msg)
}

// SendSaleAlert mails the shop owner about a completed sale.
func (m *Mailer) SendSaleAlert(order *models.Order, items []models.OrderItem) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.ownerEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Nueva venta — pedido %s ($%d)", shortID(order.ID), order.Total))
	msg.SetBody("text/plain", alertBody(order, items))

	return m.sender.DialAndSend(msg)
}

func confirmationBody(order *models.Order, items []models.OrderItem) string {
	body := fmt.Sprintf("Hola %s,\n\nRecibimos tu pago. Detalle del pedido %s:\n\n",
		order.CustomerName, shortID(order.ID))
	body += itemLines(items)
	if order.ShippingCost > 0 {
		body += fmt.Sprintf("  Envío: $%d\n", order.ShippingCost)
	}
	if order.Discount > 0 {
		body += fmt.Sprintf("  Descuento: -$%d\n", order.Discount)
	}
	body += fmt.Sprintf("\nTotal: $%d\n\nGracias por tu compra.\n", order.Total)
	return body
}

func alertBody(order *models.Order, items []models.OrderItem) string {
	body := fmt.Sprintf("Pedido %s pagado.\n\nCliente: %s <%s>\nEntrega: %s, %s, %s (%s)\n\n",
		order.ID, order.CustomerName, order.CustomerEmail,
		order.Address, order.City, order.Region, order.DeliveryMethod)
	body += itemLines(items)
	body += fmt.Sprintf("\nTotal: $%d\nPago: %s\n", order.Total, order.PaymentID)
	return body
}

func itemLines(items []models.OrderItem) string {
	var lines string
	for _, item := range items {
		lines += fmt.Sprintf("  %dx %s — $%d\n", item.Quantity, item.Title, item.UnitPrice)
	}
	return lines
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
