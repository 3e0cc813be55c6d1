package checkout

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"storefront/internal/models"
)

// Notifier confirms a placed order to the customer. Failures never undo the
// order.
type Notifier interface {
	OrderPlaced(ctx context.Context, order models.Order, recipient string) error
}

type LogNotifier struct{}

func (LogNotifier) OrderPlaced(_ context.Context, order models.Order, recipient string) error {
	log.Printf("[ORDER] [INFO] confirmation for %s to %q: total %s", order.OrderNumber, recipient, order.Total)
	return nil
}

// SMTPNotifier mails a plain-text confirmation through an unauthenticated
// relay such as a local MTA or MailHog.
type SMTPNotifier struct {
	Addr    string
	From    string
	printer *message.Printer
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(host, port, from string, lang language.Tag) *SMTPNotifier {
	return &SMTPNotifier{
		Addr:    net.JoinHostPort(host, port),
		From:    from,
		printer: message.NewPrinter(lang),
		send:    smtp.SendMail,
	}
}

// FormatMoney renders amount with the printer's digit grouping.
func (n *SMTPNotifier) FormatMoney(amount decimal.Decimal) string {
	return n.printer.Sprint(number.Decimal(amount.InexactFloat64(), number.MaxFractionDigits(2)))
}

func (n *SMTPNotifier) OrderPlaced(_ context.Context, order models.Order, recipient string) error {
	if strings.TrimSpace(recipient) == "" {
		return nil
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Thank you, %s! Your order %s has been received.\r\n\r\n", order.CustomerName, order.OrderNumber)
	for _, item := range order.Items {
		fmt.Fprintf(&body, "%d x %s  %s\r\n", item.Quantity, item.ProductName, n.FormatMoney(item.Total))
	}
	fmt.Fprintf(&body, "\r\nSubtotal: %s\r\n", n.FormatMoney(order.Subtotal))
	if !order.Tax.IsZero() {
		fmt.Fprintf(&body, "Tax: %s\r\n", n.FormatMoney(order.Tax))
	}
	if !order.Discount.IsZero() {
		fmt.Fprintf(&body, "Discount: -%s\r\n", n.FormatMoney(order.Discount))
	}
	fmt.Fprintf(&body, "Shipping (%s): %s\r\n", order.DeliveryMethod, n.FormatMoney(order.ShippingFee))
	fmt.Fprintf(&body, "Total: %s\r\n", n.FormatMoney(order.Total))

	msg := "From: " + n.From + "\r\n" +
		"To: " + recipient + "\r\n" +
		"Subject: Order confirmation " + order.OrderNumber + "\r\n" +
		"MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n" +
		body.String()

	if err := n.send(n.Addr, nil, n.From, []string{recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}
