package invoicing

import (
	"fmt"
	"strings"
)

// Grouping columns addressed by Plan.Group.
var groupColumns = []string{
	"cin.date_invoice::date",
	"date_trunc('month', cin.date_invoice)",
	"cin.customer_id",
	"cin.customer_invoice_id",
	"cli.customer_invoice_line_id",
}

// Ordering expressions addressed by Plan.Sort.
var sortColumns = []string{
	"MIN(cin.date_invoice::date)",
	"MIN(cus.name)",
}

var defaultStatuses = []int64{2, 4, 5}

// Normalize fills defaults and derives the grouping plan.
func Normalize(f Filters) (Filters, Plan, error) {
	if len(f.InvoiceStatusIDs) == 0 {
		f.InvoiceStatusIDs = append([]int64(nil), defaultStatuses...)
		if f.ShowCanceled {
			f.InvoiceStatusIDs = append(f.InvoiceStatusIDs, StatusCanceled)
		}
	}

	if f.ReportType == "" {
		f.ReportType = ReportCustomer
	}
	var plan Plan
	switch f.ReportType {
	case ReportCustomer:
		plan.Group, plan.Sort = 1, 1
	case ReportTransactionSequence:
		plan.Group, plan.Sort = 3, 0
	default:
		f.ReportType = ReportDetail
		plan.Group, plan.Sort = 4, 0
	}

	if f.Sort != nil {
		if *f.Sort < 0 {
			return Filters{}, Plan{}, fmt.Errorf("%w: sort %d", ErrInvalidFilter, *f.Sort)
		}
		plan.Sort = *f.Sort
	}

	switch order := strings.ToUpper(strings.TrimSpace(f.Order)); order {
	case "":
		plan.Order = "ASC"
	case "ASC", "DESC":
		plan.Order = order
	default:
		return Filters{}, Plan{}, fmt.Errorf("%w: order %q", ErrInvalidFilter, f.Order)
	}

	if err := checkRange("customerRange", f.CustomerRange); err != nil {
		return Filters{}, Plan{}, err
	}
	if err := checkRange("productRange", f.ProductRange); err != nil {
		return Filters{}, Plan{}, err
	}
	return f, plan, nil
}

func checkRange(field string, r *IDRange) error {
	if r != nil && r.From > r.To {
		return fmt.Errorf("%w: %s %d > %d", ErrInvalidFilter, field, r.From, r.To)
	}
	return nil
}

// groupBy returns the GROUP BY expression for the plan.
func (p Plan) groupBy() string {
	if p.Group >= 0 && p.Group < len(groupColumns) {
		return groupColumns[p.Group]
	}
	return groupColumns[len(groupColumns)-1]
}

// orderBy returns the ORDER BY clause for the plan.
func (p Plan) orderBy() string {
	if p.Sort < len(sortColumns) {
		return sortColumns[p.Sort] + " " + p.Order
	}
	return fmt.Sprintf("MIN(cin.date_invoice) %s, MIN(cin.name) %s", p.Order, p.Order)
}
