package invoicing

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-receivables/internal/platform/db"
)

// Repository reads invoice lines from Postgres.
type Repository struct {
	pool   db.TxBeginner
	tables db.Tables
}

// NewRepository constructs a Repository.
func NewRepository(pool db.TxBeginner, tables db.Tables) *Repository {
	return &Repository{pool: pool, tables: tables}
}

// Lines loads the report lines and the filter labels from one snapshot.
func (r *Repository) Lines(ctx context.Context, f Filters, plan Plan) ([]Line, Labels, error) {
	var (
		lines  []Line
		labels Labels
	)
	err := db.WithReadOnlyTx(ctx, r.pool, func(q db.Querier) error {
		var err error
		if lines, err = r.queryLines(ctx, q, f, plan); err != nil {
			return err
		}
		labels, err = r.queryLabels(ctx, q, f)
		return err
	})
	if err != nil {
		return nil, Labels{}, err
	}
	return lines, labels, nil
}

func (r *Repository) queryLines(ctx context.Context, q db.Querier, f Filters, plan Plan) ([]Line, error) {
	sql, args := r.linesQuery(f, plan)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("invoicing: query lines (sqlstate %s): %w", db.SQLState(err), err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Line, error) {
		var l Line
		err := row.Scan(
			&l.DateInvoice, &l.TransactionSequence, &l.Number, &l.Customer, &l.Salesperson,
			&l.ProductCode, &l.Product, &l.Category, &l.Manufacturer,
			&l.Quantity, &l.Subtotal, &l.Discount, &l.Tax, &l.Total, &l.Cost, &l.Margin,
			&l.InvoiceStatusID,
		)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("invoicing: scan lines: %w", err)
	}
	return lines, nil
}

func (r *Repository) linesQuery(f Filters, plan Plan) (string, []any) {
	var args db.Args
	t := r.tables.Name

	var b strings.Builder
	fmt.Fprintf(&b, `SELECT MIN(cin.date_invoice::date),
	MIN(trs.name),
	COALESCE(MIN(cin.name), ''),
	MIN(cus.name),
	MIN(sap.name),
	COALESCE(MIN(pro.default_code), ''),
	COALESCE(MIN(cli.name), ''),
	COALESCE(MIN(prc.name), ''),
	COALESCE(MIN(manu.name), ''),
	COALESCE(SUM(cli.quantity), 0),
	COALESCE(SUM(cli.price_subtotal / cin.currency_value * trs.nature), 0),
	COALESCE(SUM((cli.price_subtotal / cin.currency_value * trs.nature) * (cli.discount / 100) / NULLIF((100 - cli.discount) / 100, 0)), 0),
	COALESCE(SUM(cli.price_tax / cin.currency_value * trs.nature + cli.price_tax_ret / cin.currency_value * trs.nature), 0),
	COALESCE(SUM(cli.price_total / cin.currency_value * trs.nature), 0),
	COALESCE(SUM(cli.cost / cin.currency_value * trs.nature), 0),
	COALESCE(SUM(cli.margin / cin.currency_value * trs.nature), 0),
	MIN(cin.invoice_status_id)
FROM %s AS cli
	LEFT JOIN %s AS pro ON cli.product_id = pro.product_id
	LEFT JOIN %s AS prc ON pro.product_category_id = prc.product_category_id
	LEFT JOIN %s AS manu ON pro.manufacturer_id = manu.manufacturer_id
	INNER JOIN %s AS cin ON cli.customer_invoice_id = cin.customer_invoice_id
	INNER JOIN %s AS cus ON cin.customer_id = cus.customer_id
	INNER JOIN %s AS sap ON cin.salesperson_id = sap.id
	INNER JOIN %s AS ist ON cin.invoice_status_id = ist.invoice_status_id
	INNER JOIN %s AS trs ON cin.transaction_sequence_id = trs.id
WHERE cin.customer_invoice_id > 0`,
		t("customer_invoice_line"), t("product"), t("product_category"), t("manufacturer"),
		t("customer_invoice"), t("customer"), t("user"), t("invoice_status"), t("transaction_sequence"))

	cond := func(format string, v any) {
		fmt.Fprintf(&b, "\n\tAND "+format, args.Add(v))
	}
	if f.Name != "" {
		cond("cin.name ILIKE %s", db.LikePattern(f.Name))
	}
	if f.DateFrom != nil {
		cond("cin.date_invoice::date >= %s", *f.DateFrom)
	}
	if f.DateTo != nil {
		cond("cin.date_invoice::date <= %s", *f.DateTo)
	}
	switch {
	case f.CustomerRange != nil:
		fmt.Fprintf(&b, "\n\tAND cin.customer_id BETWEEN %s AND %s", args.Add(f.CustomerRange.From), args.Add(f.CustomerRange.To))
	case f.Customer != "":
		cond("cus.name ILIKE %s", db.LikePattern(f.Customer))
	}
	if f.Reference != "" {
		cond("cin.reference ILIKE %s", db.LikePattern(f.Reference))
	}
	if f.SalespersonID != nil {
		cond("cin.salesperson_id = %s", *f.SalespersonID)
	}
	if f.Origin != "" {
		cond("cin.origin ILIKE %s", db.LikePattern(f.Origin))
	}
	if f.InvoiceOnly {
		b.WriteString("\n\tAND cin.invoice = TRUE")
	}
	if f.Remission != nil {
		cond("cin.remission = %s", *f.Remission)
	}
	if len(f.PromotionIDs) > 0 {
		cond("cli.promotion_id = ANY(%s)", f.PromotionIDs)
	}
	if len(f.TransactionSequenceIDs) > 0 {
		cond("cin.transaction_sequence_id = ANY(%s)", f.TransactionSequenceIDs)
	}
	if len(f.InvoiceStatusIDs) > 0 {
		cond("cin.invoice_status_id = ANY(%s)", f.InvoiceStatusIDs)
	}
	switch {
	case f.ProductRange != nil:
		fmt.Fprintf(&b, "\n\tAND pro.product_id BETWEEN %s AND %s", args.Add(f.ProductRange.From), args.Add(f.ProductRange.To))
	case f.ProductSearch != "":
		p := args.Add(db.LikePattern(f.ProductSearch))
		fmt.Fprintf(&b, "\n\tAND (cli.name ILIKE %[1]s OR pro.name ILIKE %[1]s OR pro.description ILIKE %[1]s OR pro.default_code ILIKE %[1]s)", p)
	}
	if f.ProductCategoryID != nil {
		p := args.Add(*f.ProductCategoryID)
		fmt.Fprintf(&b, "\n\tAND (pro.product_category_id = %[1]s OR prc.parent_id = %[1]s)", p)
	}
	if f.ProductManufacturerID != nil {
		cond("pro.manufacturer_id = %s", *f.ProductManufacturerID)
	}

	fmt.Fprintf(&b, "\nGROUP BY %s\nORDER BY %s", plan.groupBy(), plan.orderBy())
	return b.String(), args.Values()
}

func (r *Repository) queryLabels(ctx context.Context, q db.Querier, f Filters) (Labels, error) {
	var labels Labels
	t := r.tables.Name

	single := func(sql string, id int64) (string, error) {
		rows, err := q.Query(ctx, sql, id)
		if err != nil {
			return "", err
		}
		names, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil || len(names) == 0 {
			return "", err
		}
		return names[0], nil
	}

	if f.ProductCategoryID != nil {
		name, err := single(fmt.Sprintf("SELECT name FROM %s WHERE product_category_id = $1", t("product_category")), *f.ProductCategoryID)
		if err != nil {
			return Labels{}, fmt.Errorf("invoicing: category label: %w", err)
		}
		labels.Category = name
	}
	if f.ProductManufacturerID != nil {
		name, err := single(fmt.Sprintf("SELECT name FROM %s WHERE manufacturer_id = $1", t("manufacturer")), *f.ProductManufacturerID)
		if err != nil {
			return Labels{}, fmt.Errorf("invoicing: manufacturer label: %w", err)
		}
		labels.Manufacturer = name
	}
	if len(f.TransactionSequenceIDs) > 0 {
		rows, err := q.Query(ctx, fmt.Sprintf("SELECT name FROM %s WHERE id = ANY($1) ORDER BY id", t("transaction_sequence")), f.TransactionSequenceIDs)
		if err != nil {
			return Labels{}, fmt.Errorf("invoicing: sequence labels: %w", err)
		}
		names, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return Labels{}, fmt.Errorf("invoicing: sequence labels: %w", err)
		}
		labels.TransactionSequences = names
	}
	return labels, nil
}
