package spreadsheet

import (
	"io"

	"github.com/odyssey-erp/odyssey-receivables/internal/receivables"
)

// ReceivablesFilename is the download name of the aging report.
const ReceivablesFilename = "cuentas_por_cobrar.xlsx"

var receivableColumns = []column{
	{title: "Cliente", width: 35, kind: kindText},
	{title: "Fecha", width: 20, kind: kindDate},
	{title: "Número", width: 12, kind: kindCentered},
	{title: "Doc. Origen", width: 12, kind: kindCentered},
	{title: "Referencia", width: 30, kind: kindCentered},
	{title: "Vendedor", width: 30, kind: kindText},
	{title: "Fecha de Vencimiento", width: 20, kind: kindDate},
	{title: "Moneda", width: 15, kind: kindCentered},
}

// WriteReceivables renders the accounts receivable aging report.
func WriteReceivables(w io.Writer, report receivables.Report, meta Meta) error {
	columns := append([]column(nil), receivableColumns...)
	for _, b := range report.Buckets {
		columns = append(columns, column{title: b.Title, width: 25, kind: kindCurrency, sum: true})
	}
	columns = append(columns, column{title: "Saldo Total", width: 25, kind: kindCurrency, sum: true})

	rows := make([][]any, 0, len(report.Rows))
	for _, r := range report.Rows {
		values := []any{
			r.Display.Customer,
			r.Display.DateInvoice,
			r.Display.Number,
			r.Display.Origin,
			r.Display.Reference,
			r.Display.Salesperson,
			r.Display.DateDue,
			meta.currency(),
		}
		for _, b := range report.Buckets {
			values = append(values, r.Amount(b.Name))
		}
		values = append(values, r.TotalBalance)
		rows = append(rows, values)
	}

	return render(w, layout{
		title:   "Cuentas por cobrar",
		filters: receivableFilters(report.Filters, meta),
		columns: columns,
		rows:    rows,
	}, meta)
}

func receivableFilters(f receivables.Filters, meta Meta) []string {
	var lines filterLines
	lines.add("Número", f.Name)
	lines.dateRange(f.DateFrom, f.DateTo)
	lines.add("Doc. Origen", f.Origin)
	lines.add("Cliente", f.Customer)
	lines.add("Vendedor", f.Salesperson)
	if f.Remission != nil {
		lines.add("Remisión", yesNo(*f.Remission))
	}
	lines.created(meta.GeneratedAt)
	return lines
}
