package receipt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"pos-terminal/config"
	"pos-terminal/internal/models"
)

const lineWidth = 40

// Header is the static merchant block at the top of a receipt.
type Header struct {
	StoreName string `json:"store_name"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	VATNumber string `json:"vat_number"`
}

// Line is one itemized receipt row.
type Line struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

// Payment is the tender block. Received and Change are set for cash;
// Approval carries the card notice otherwise.
type Payment struct {
	Method   string `json:"method"`
	Received string `json:"received,omitempty"`
	Change   string `json:"change,omitempty"`
	Approval string `json:"approval,omitempty"`
}

// Receipt is the display/print representation of a transaction. Every
// amount is pre-formatted; nothing here is recomputed from the items.
type Receipt struct {
	Header        Header  `json:"header"`
	Date          string  `json:"date"`
	Time          string  `json:"time"`
	ReceiptNumber string  `json:"receipt_number"`
	Terminal      string  `json:"terminal"`
	Cashier       string  `json:"cashier"`
	Lines         []Line  `json:"lines"`
	Subtotal      string  `json:"subtotal"`
	Tax           string  `json:"tax"`
	Total         string  `json:"total"`
	Payment       Payment `json:"payment"`
	Offline       bool    `json:"offline"`
	PolicyText    string  `json:"policy_text"`
	FooterText    string  `json:"footer_text"`
	RegNumber     string  `json:"reg_number"`
}

// Build shapes a transaction into its receipt representation. Pure
// formatting: totals, change and line totals come straight from the
// transaction snapshot.
func Build(tx *models.Transaction, identity config.StoreIdentity, currencySymbol string) *Receipt {
	lines := make([]Line, len(tx.Items))
	for i, item := range tx.Items {
		lines[i] = Line{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: money(item.UnitPrice, currencySymbol),
			LineTotal: money(item.LineTotal, currencySymbol),
		}
	}

	payment := Payment{Method: tx.PaymentMethod}
	if tx.PaymentMethod == models.PaymentMethodCash {
		payment.Received = money(tx.PaymentReceived, currencySymbol)
		payment.Change = money(tx.Change, currencySymbol)
	} else {
		payment.Approval = "CARD PAYMENT APPROVED"
	}

	return &Receipt{
		Header: Header{
			StoreName: identity.Name,
			Address:   identity.Address,
			Phone:     identity.Phone,
			VATNumber: identity.VATNumber,
		},
		Date:          tx.Timestamp.Format("2006-01-02"),
		Time:          tx.Timestamp.Format("15:04:05"),
		ReceiptNumber: tx.ReceiptNumber,
		Terminal:      tx.Terminal,
		Cashier:       tx.Cashier,
		Lines:         lines,
		Subtotal:      money(tx.Subtotal, currencySymbol),
		Tax:           money(tx.Tax, currencySymbol),
		Total:         money(tx.Total, currencySymbol),
		Payment:       payment,
		Offline:       tx.Status == models.TxStatusOfflinePending,
		PolicyText:    identity.PolicyText,
		FooterText:    identity.FooterText,
		RegNumber:     identity.RegNumber,
	}
}

// Render produces the fixed-width text form. On-screen display and
// printing both use this exact output.
func (r *Receipt) Render() string {
	var b strings.Builder

	center(&b, r.Header.StoreName)
	center(&b, r.Header.Address)
	center(&b, r.Header.Phone)
	center(&b, "VAT "+r.Header.VATNumber)
	rule(&b)

	fmt.Fprintf(&b, "Date: %s  Time: %s\n", r.Date, r.Time)
	fmt.Fprintf(&b, "Receipt: %s\n", r.ReceiptNumber)
	fmt.Fprintf(&b, "Terminal: %s  Cashier: %s\n", r.Terminal, r.Cashier)
	if r.Offline {
		center(&b, "* OFFLINE - PENDING RECONCILIATION *")
	}
	rule(&b)

	for _, line := range r.Lines {
		fmt.Fprintf(&b, "%s\n", line.Name)
		entry := fmt.Sprintf("  %d x %s", line.Quantity, line.UnitPrice)
		fmt.Fprintf(&b, "%s%s\n", entry, pad(line.LineTotal, lineWidth-runeLen(entry)))
	}
	rule(&b)

	row(&b, "Subtotal", r.Subtotal)
	row(&b, "Tax", r.Tax)
	row(&b, "TOTAL", r.Total)
	rule(&b)

	row(&b, "Paid by", strings.ToUpper(r.Payment.Method))
	if r.Payment.Received != "" {
		row(&b, "Received", r.Payment.Received)
		row(&b, "Change", r.Payment.Change)
	}
	if r.Payment.Approval != "" {
		center(&b, r.Payment.Approval)
	}
	rule(&b)

	center(&b, r.PolicyText)
	center(&b, r.FooterText)
	center(&b, "Reg "+r.RegNumber)

	return b.String()
}

func money(v decimal.Decimal, symbol string) string {
	return symbol + v.StringFixed(2)
}

func center(b *strings.Builder, s string) {
	if s == "" {
		return
	}
	if runeLen(s) >= lineWidth {
		b.WriteString(s + "\n")
		return
	}
	left := (lineWidth - runeLen(s)) / 2
	b.WriteString(strings.Repeat(" ", left) + s + "\n")
}

func rule(b *strings.Builder) {
	b.WriteString(strings.Repeat("-", lineWidth) + "\n")
}

func row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s%s\n", label, pad(value, lineWidth-runeLen(label)))
}

func pad(s string, width int) string {
	if width <= runeLen(s) {
		return " " + s
	}
	return strings.Repeat(" ", width-runeLen(s)) + s
}

// runeLen measures printable width in runes, not bytes, so accented
// names keep the columns aligned.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
