package statement

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/beevik/etree"
)

const dateLayout = "2006-01-02"

// Exporter renders an account statement
type Exporter interface {
	ContentType() string
	Export(w io.Writer, st *models.Statement) error
}

// ForFormat returns the exporter for "json" or "xml"; empty means json
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return JSONExporter{}, nil
	case "xml":
		return XMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported statement format %q", format)
	}
}

// JSONExporter writes the statement as a JSON document
type JSONExporter struct{}

func (JSONExporter) ContentType() string { return "application/json" }

func (JSONExporter) Export(w io.Writer, st *models.Statement) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("failed to encode statement: %w", err)
	}
	return nil
}

// XMLExporter writes the statement as an XML document
type XMLExporter struct{}

func (XMLExporter) ContentType() string { return "application/xml" }

func (XMLExporter) Export(w io.Writer, st *models.Statement) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Statement")
	root.CreateAttr("generated", st.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"))

	account := root.CreateElement("Account")
	account.CreateAttr("id", strconv.FormatInt(st.Account.ID, 10))
	account.CreateElement("Name").SetText(st.Account.Name)
	account.CreateElement("Currency").SetText(st.Currency.Code)
	account.CreateElement("Balance").SetText(st.Account.Balance.StringFixed(2))

	period := root.CreateElement("Period")
	period.CreateAttr("from", st.From.Format(dateLayout))
	period.CreateAttr("to", st.To.Format(dateLayout))

	txns := root.CreateElement("Transactions")
	txns.CreateAttr("count", strconv.Itoa(len(st.Transactions)))
	for _, t := range st.Transactions {
		el := txns.CreateElement("Transaction")
		el.CreateAttr("id", strconv.FormatInt(t.ID, 10))
		el.CreateAttr("kind", string(t.Kind))
		el.CreateElement("Date").SetText(t.Date.Format(dateLayout))
		el.CreateElement("Category").SetText(strconv.FormatInt(t.CategoryID, 10))
		el.CreateElement("Amount").SetText(t.Amount.StringFixed(2))
		if t.Description != "" {
			el.CreateElement("Description").SetText(t.Description)
		}
		if t.PlannedPaymentID != nil {
			el.CreateElement("PlannedPayment").SetText(strconv.FormatInt(*t.PlannedPaymentID, 10))
		}
	}

	totals := root.CreateElement("Totals")
	totals.CreateElement("Debit").SetText(st.TotalDebit.StringFixed(2))
	totals.CreateElement("Credit").SetText(st.TotalCredit.StringFixed(2))

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write statement: %w", err)
	}
	return nil
}
