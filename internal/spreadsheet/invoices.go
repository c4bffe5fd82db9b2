package spreadsheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/odyssey-receivables/internal/invoicing"
)

// InvoicesFilename is the download name of the invoice-line report.
const InvoicesFilename = "reporte_facturacion_clientes.xlsx"

var hundred = decimal.NewFromInt(100)

var invoiceColumns = []column{
	{title: "Fecha", width: 20, kind: kindDate},
	{title: "Tipo de comprobante", width: 20, kind: kindCentered},
	{title: "Número", width: 15, kind: kindCentered},
	{title: "Cliente", width: 35, kind: kindText},
	{title: "Vendedor", width: 15, kind: kindCentered},
	{title: "Código", width: 14, kind: kindCentered},
	{title: "Producto", width: 35, kind: kindText},
	{title: "Categoría", width: 15, kind: kindCentered},
	{title: "Marca", width: 14, kind: kindCentered},
	{title: "Moneda", width: 14, kind: kindCentered},
	{title: "Cantidad", width: 14, kind: kindNumber, sum: true},
	{title: "Subtotal", width: 14, kind: kindCurrency, sum: true},
	{title: "Descuento", width: 14, kind: kindCurrency, sum: true},
	{title: "Impuesto", width: 14, kind: kindCurrency, sum: true},
	{title: "Total", width: 14, kind: kindCurrency, sum: true},
	{title: "Costo", width: 14, kind: kindCurrency, sum: true},
}

var (
	marginColumns = []column{
		{title: "Margen", width: 14, kind: kindCurrency, sum: true},
		{title: "% Margen", width: 15, kind: kindPercent},
	}
	statusColumn = column{title: "Estatus", width: 15, kind: kindCentered}
)

// WriteInvoiceLines renders the customer invoice-line report.
func WriteInvoiceLines(w io.Writer, report invoicing.Report, meta Meta) error {
	withMargin := report.Filters.MarginPermission
	columns := append([]column(nil), invoiceColumns...)
	if withMargin {
		columns = append(columns, marginColumns...)
	}
	columns = append(columns, statusColumn)

	currency := report.Filters.CurrencyCode
	if currency == "" {
		currency = meta.currency()
	}

	rows := make([][]any, 0, len(report.Lines))
	for _, l := range report.Lines {
		values := []any{
			l.DateInvoice,
			l.TransactionSequence,
			l.Number,
			l.Customer,
			l.Salesperson,
			l.ProductCode,
			l.Product,
			l.Category,
			l.Manufacturer,
			currency,
			l.Quantity,
			l.Subtotal,
			l.Discount,
			l.Tax,
			l.Total,
			l.Cost,
		}
		if withMargin {
			values = append(values, l.Margin, l.MarginPercent().Div(hundred))
		}
		values = append(values, l.StatusLabel())
		rows = append(rows, values)
	}

	var footer footerFunc
	if withMargin {
		footer = marginRatioFooter
	}
	return render(w, layout{
		title:   "Reporte facturación clientes",
		filters: invoiceFilters(report),
		columns: columns,
		rows:    rows,
		footer:  footer,
	}, meta)
}

// marginRatioFooter puts total margin over total subtotal under % Margen.
func marginRatioFooter(f *excelize.File, st *styles, footer, _, _ int) error {
	cell := cellName(len(invoiceColumns)+2, footer)
	margin := cellName(len(invoiceColumns)+1, footer)
	subtotal := cellName(12, footer)
	if err := f.SetCellFormula(SheetName, cell, fmt.Sprintf("IF(%[2]s=0,0,%[1]s/%[2]s)", margin, subtotal)); err != nil {
		return fmt.Errorf("spreadsheet: margin ratio: %w", err)
	}
	id, err := st.footStyle(kindPercent, edgeNone)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, cell, cell, id); err != nil {
		return fmt.Errorf("spreadsheet: margin ratio style: %w", err)
	}
	return nil
}

func invoiceFilters(report invoicing.Report) []string {
	f := report.Filters
	title := cases.Title(language.Spanish)
	var lines filterLines
	lines.add("Número", f.Name)
	lines.dateRange(f.DateFrom, f.DateTo)
	lines.add("Doc. Origen", f.Origin)
	if f.CustomerRange != nil {
		lines.add("Cliente", fmt.Sprintf("%d - %d", f.CustomerRange.From, f.CustomerRange.To))
	} else {
		lines.add("Cliente", f.Customer)
	}
	if f.SalespersonID != nil {
		lines.add("Vendedor", strconv.FormatInt(*f.SalespersonID, 10))
	}
	if f.ProductRange != nil {
		lines.add("Producto", fmt.Sprintf("%d - %d", f.ProductRange.From, f.ProductRange.To))
	} else {
		lines.add("Producto", f.ProductSearch)
	}
	if f.ProductManufacturerID != nil {
		lines.add("Marca de producto", labelOr(title.String(report.Labels.Manufacturer), *f.ProductManufacturerID))
	}
	if f.ProductCategoryID != nil {
		lines.add("Categoria de producto", labelOr(title.String(report.Labels.Category), *f.ProductCategoryID))
	}
	if len(report.Labels.TransactionSequences) > 0 {
		lines.add("Tipo de comprobante", title.String(strings.Join(report.Labels.TransactionSequences, ", ")))
	} else if len(f.TransactionSequenceIDs) > 0 {
		lines.add("Tipo de comprobante", joinIDs(f.TransactionSequenceIDs))
	}
	if f.ShowCanceled {
		lines.add("Mostrar cancelados", yesNo(true))
	}
	lines.created(report.GeneratedAt)
	return lines
}

func labelOr(label string, id int64) string {
	if label != "" {
		return label
	}
	return strconv.FormatInt(id, 10)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}

func yesNo(v bool) string {
	if v {
		return "Sí"
	}
	return "No"
}
