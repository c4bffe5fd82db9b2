package analytics

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-receivables/internal/invoicing"
	"github.com/odyssey-erp/odyssey-receivables/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-receivables/internal/receivables"
)

// ErrInvalidQuery is returned when a query parameter fails validation.
var ErrInvalidQuery = fmt.Errorf("analytics: invalid query: %w", httpx.ErrValidation)

var (
	idListPattern = regexp.MustCompile(`^\d+(,\d+)*$`)
	rangePattern  = regexp.MustCompile(`^\d+,\d+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("query")
	})
	_ = v.RegisterValidation("idlist", func(fl validator.FieldLevel) bool {
		return idListPattern.MatchString(fl.Field().String())
	})
	return v
}

type receivablesQuery struct {
	DateFrom    string `query:"dateFrom" validate:"omitempty,max=32"`
	DateTo      string `query:"dateTo" validate:"omitempty,max=32"`
	Name        string `query:"name" validate:"omitempty,max=128"`
	Origin      string `query:"origin" validate:"omitempty,max=128"`
	Customer    string `query:"customer" validate:"omitempty,max=128"`
	Salesperson string `query:"salesperson" validate:"omitempty,max=128"`
	Remission   string `query:"remission" validate:"omitempty,oneof=0 1 true false"`
}

type invoicesQuery struct {
	DateFrom              string `query:"dateFrom" validate:"omitempty,max=32"`
	DateTo                string `query:"dateTo" validate:"omitempty,max=32"`
	Name                  string `query:"name" validate:"omitempty,max=128"`
	Origin                string `query:"origin" validate:"omitempty,max=128"`
	Customer              string `query:"customer" validate:"omitempty,max=128"`
	CustomerRange         string `query:"customerRange" validate:"omitempty,oneof=0 1 true false"`
	Reference             string `query:"reference" validate:"omitempty,max=128"`
	Salesperson           string `query:"salesperson" validate:"omitempty,number"`
	Invoice               string `query:"invoice" validate:"omitempty,oneof=0 1 true false"`
	Remission             string `query:"remission" validate:"omitempty,oneof=0 1 true false"`
	PromotionID           string `query:"promotionId" validate:"omitempty,idlist"`
	TransactionSequenceID string `query:"transactionSequenceId" validate:"omitempty,idlist"`
	InvoiceStatusID       string `query:"invoiceStatusId" validate:"omitempty,idlist"`
	ShowCanceled          string `query:"showCanceled" validate:"omitempty,oneof=0 1 true false"`
	ProductSearch         string `query:"productSearch" validate:"omitempty,max=128"`
	ProductRange          string `query:"productRange" validate:"omitempty,oneof=0 1 true false"`
	ProductCategoryID     string `query:"productCategoryId" validate:"omitempty,number"`
	ProductManufacturerID string `query:"productManufacturerId" validate:"omitempty,number"`
	ReportType            string `query:"reportType" validate:"omitempty,max=32"`
	Sort                  string `query:"sort" validate:"omitempty,number"`
	Order                 string `query:"order" validate:"omitempty,oneof=ASC DESC asc desc"`
	MarginPermission      string `query:"marginPermission" validate:"omitempty,oneof=0 1 true false"`
	CurrencyCode          string `query:"configCurrencyCode" validate:"omitempty,alpha,len=3"`
}

// ParseReceivables converts query parameters into aging report filters.
func ParseReceivables(values url.Values) (receivables.Filters, error) {
	q := receivablesQuery{
		DateFrom:    param(values, "dateFrom"),
		DateTo:      param(values, "dateTo"),
		Name:        param(values, "name"),
		Origin:      param(values, "origin"),
		Customer:    param(values, "customer"),
		Salesperson: param(values, "salesperson"),
		Remission:   strings.ToLower(param(values, "remission")),
	}
	if err := check(q); err != nil {
		return receivables.Filters{}, err
	}

	f := receivables.Filters{
		Name:        q.Name,
		Origin:      q.Origin,
		Customer:    q.Customer,
		Salesperson: q.Salesperson,
		Remission:   optionalFlag(q.Remission),
	}
	var err error
	if f.DateFrom, err = optionalDate("dateFrom", q.DateFrom); err != nil {
		return receivables.Filters{}, err
	}
	if f.DateTo, err = optionalDate("dateTo", q.DateTo); err != nil {
		return receivables.Filters{}, err
	}
	return f, nil
}

// ParseInvoices converts query parameters into invoice-line report filters.
func ParseInvoices(values url.Values) (invoicing.Filters, error) {
	q := invoicesQuery{
		DateFrom:              param(values, "dateFrom"),
		DateTo:                param(values, "dateTo"),
		Name:                  param(values, "name"),
		Origin:                param(values, "origin"),
		Customer:              param(values, "customer"),
		CustomerRange:         strings.ToLower(param(values, "customerRange")),
		Reference:             param(values, "reference"),
		Salesperson:           param(values, "salesperson"),
		Invoice:               strings.ToLower(param(values, "invoice")),
		Remission:             strings.ToLower(param(values, "remission")),
		PromotionID:           param(values, "promotionId"),
		TransactionSequenceID: param(values, "transactionSequenceId"),
		InvoiceStatusID:       param(values, "invoiceStatusId"),
		ShowCanceled:          strings.ToLower(param(values, "showCanceled")),
		ProductSearch:         param(values, "productSearch"),
		ProductRange:          strings.ToLower(param(values, "productRange")),
		ProductCategoryID:     param(values, "productCategoryId"),
		ProductManufacturerID: param(values, "productManufacturerId"),
		ReportType:            param(values, "reportType"),
		Sort:                  param(values, "sort"),
		Order:                 param(values, "order"),
		MarginPermission:      strings.ToLower(param(values, "marginPermission")),
		CurrencyCode:          strings.ToUpper(param(values, "configCurrencyCode")),
	}
	if q.ProductManufacturerID == "" {
		q.ProductManufacturerID = param(values, "productManufaturerId")
	}
	if err := check(q); err != nil {
		return invoicing.Filters{}, err
	}

	f := invoicing.Filters{
		Name:             q.Name,
		Origin:           q.Origin,
		Reference:        q.Reference,
		InvoiceOnly:      flag(q.Invoice),
		Remission:        optionalFlag(q.Remission),
		ShowCanceled:     flag(q.ShowCanceled),
		ReportType:       invoicing.ReportType(q.ReportType),
		Order:            q.Order,
		MarginPermission: flag(q.MarginPermission),
		CurrencyCode:     q.CurrencyCode,
	}
	var err error
	if f.DateFrom, err = optionalDate("dateFrom", q.DateFrom); err != nil {
		return invoicing.Filters{}, err
	}
	if f.DateTo, err = optionalDate("dateTo", q.DateTo); err != nil {
		return invoicing.Filters{}, err
	}
	if flag(q.CustomerRange) {
		if f.CustomerRange, err = idRange("customer", q.Customer); err != nil {
			return invoicing.Filters{}, err
		}
	} else {
		f.Customer = q.Customer
	}
	if flag(q.ProductRange) {
		if f.ProductRange, err = idRange("productSearch", q.ProductSearch); err != nil {
			return invoicing.Filters{}, err
		}
	} else {
		f.ProductSearch = q.ProductSearch
	}
	for _, id := range []struct {
		field string
		value string
		dst   **int64
	}{
		{"salesperson", q.Salesperson, &f.SalespersonID},
		{"productCategoryId", q.ProductCategoryID, &f.ProductCategoryID},
		{"productManufacturerId", q.ProductManufacturerID, &f.ProductManufacturerID},
	} {
		if *id.dst, err = optionalID(id.field, id.value); err != nil {
			return invoicing.Filters{}, err
		}
	}
	for _, list := range []struct {
		field string
		value string
		dst   *[]int64
	}{
		{"promotionId", q.PromotionID, &f.PromotionIDs},
		{"transactionSequenceId", q.TransactionSequenceID, &f.TransactionSequenceIDs},
		{"invoiceStatusId", q.InvoiceStatusID, &f.InvoiceStatusIDs},
	} {
		if *list.dst, err = idList(list.field, list.value); err != nil {
			return invoicing.Filters{}, err
		}
	}
	if q.Sort != "" {
		sort, err := strconv.Atoi(q.Sort)
		if err != nil {
			return invoicing.Filters{}, invalid("sort")
		}
		f.Sort = &sort
	}
	return f, nil
}

// param returns the query value for key. Repeated keys are joined with commas.
func param(values url.Values, key string) string {
	vs := values[key]
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ",")
}

func check(q any) error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return invalid(fieldErrs[0].Field())
	}
	return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
}

func invalid(field string) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, field)
}

func flag(v string) bool {
	return v == "1" || v == "true"
}

func optionalFlag(v string) *bool {
	if v == "" {
		return nil
	}
	b := flag(v)
	return &b
}

func optionalDate(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	d, err := receivables.ParseDate(v)
	if err != nil {
		return nil, &receivables.ValidationError{Field: field, Err: err}
	}
	return &d, nil
}

func optionalID(field, v string) (*int64, error) {
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, invalid(field)
	}
	return &id, nil
}

func idList(field, v string) ([]int64, error) {
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, invalid(field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func idRange(field, v string) (*invoicing.IDRange, error) {
	v = strings.ReplaceAll(v, " ", "")
	if !rangePattern.MatchString(v) {
		return nil, invalid(field)
	}
	ids, err := idList(field, v)
	if err != nil {
		return nil, err
	}
	return &invoicing.IDRange{From: ids[0], To: ids[1]}, nil
}
