package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/retenio/churnguard-go/internal/models"
	"github.com/retenio/churnguard-go/internal/utils"
	"github.com/retenio/churnguard-go/internal/validation"
)

// csvHeader is the fixed column order for batch uploads and the downloadable
// template. Uploads must carry exactly this header.
var csvHeader = []string{
	"id",
	"credit_score",
	"age",
	"tenure",
	"balance",
	"num_products",
	"has_credit_card",
	"is_active_member",
	"estimated_salary",
	"has_complaint",
	"satisfaction_score",
	"loyalty_points",
	"gender",
	"country",
	"tier",
}

// Row is one line of a batch upload: either a parsed record or the parse
// failure for that line. Number is the 1-based line number, the header is
// line 1.
type Row struct {
	Number int
	Record models.CustomerRecord
	Err    error
}

// RowsFromRecords wraps already-parsed records for direct submission.
func RowsFromRecords(records []models.CustomerRecord) []Row {
	rows := make([]Row, len(records))
	for i, record := range records {
		rows[i] = Row{Number: i + 1, Record: record}
	}
	return rows
}

// ParseCSV reads a semicolon-separated batch upload. The header must match
// the template exactly and rows beyond maxRows abort the whole upload; a
// malformed field only fails its own row, carried as the Row's Err so the
// rest of the batch still scores.
func ParseCSV(r io.Reader, maxRows int) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var rows []Row
	for number := 2; ; number++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if maxRows > 0 && len(rows) >= maxRows {
			return nil, fmt.Errorf("upload exceeds the %d row limit", maxRows)
		}
		if err != nil {
			rows = append(rows, Row{Number: number, Err: utils.NewBatchRowError(number, err)})
			continue
		}

		record, err := parseRow(fields)
		if err != nil {
			rows = append(rows, Row{Number: number, Err: utils.NewBatchRowError(number, err)})
			continue
		}
		rows = append(rows, Row{Number: number, Record: record})
	}
	return rows, nil
}

func checkHeader(header []string) error {
	if len(header) != len(csvHeader) {
		return fmt.Errorf("csv header has %d columns, expected %d", len(header), len(csvHeader))
	}
	for i, name := range header {
		if strings.TrimSpace(strings.ToLower(name)) != csvHeader[i] {
			return fmt.Errorf("csv column %d is %q, expected %q", i+1, name, csvHeader[i])
		}
	}
	return nil
}

func parseRow(fields []string) (models.CustomerRecord, error) {
	var record models.CustomerRecord
	var err error

	record.ID = strings.TrimSpace(fields[0])
	if record.CreditScore, err = parseInt(fields[1], "credit_score"); err != nil {
		return record, err
	}
	if record.Age, err = parseInt(fields[2], "age"); err != nil {
		return record, err
	}
	if record.Tenure, err = parseInt(fields[3], "tenure"); err != nil {
		return record, err
	}
	if record.Balance, err = parseDecimal(fields[4], "balance"); err != nil {
		return record, err
	}
	if record.NumProducts, err = parseInt(fields[5], "num_products"); err != nil {
		return record, err
	}
	if record.HasCreditCard, err = parseBool(fields[6], "has_credit_card"); err != nil {
		return record, err
	}
	if record.IsActiveMember, err = parseBool(fields[7], "is_active_member"); err != nil {
		return record, err
	}
	if record.EstimatedSalary, err = parseDecimal(fields[8], "estimated_salary"); err != nil {
		return record, err
	}
	if record.HasComplaint, err = parseBool(fields[9], "has_complaint"); err != nil {
		return record, err
	}
	if record.SatisfactionScore, err = parseInt(fields[10], "satisfaction_score"); err != nil {
		return record, err
	}
	if record.LoyaltyPoints, err = parseInt(fields[11], "loyalty_points"); err != nil {
		return record, err
	}
	record.Gender = models.Gender(strings.ToLower(strings.TrimSpace(fields[12])))
	record.Country = models.Country(strings.TrimSpace(fields[13]))
	record.Tier = models.Tier(strings.ToUpper(strings.TrimSpace(fields[14])))
	return record, nil
}

func parseInt(raw, field string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", field, raw)
	}
	return value, nil
}

func parseDecimal(raw, field string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a number", field, raw)
	}
	return value, nil
}

func parseBool(raw, field string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("%s: %q is not a boolean", field, raw)
	}
}

// TemplateCSV renders the downloadable upload template: the fixed header plus
// example rows pre-filled with the documented field defaults.
func TemplateCSV() string {
	defaults := validation.NumericRanges

	var b strings.Builder
	b.WriteString(strings.Join(csvHeader, ";"))
	b.WriteByte('\n')

	rows := [][]string{
		{
			"cust-001",
			formatDefault(defaults["credit_score"]),
			formatDefault(defaults["age"]),
			formatDefault(defaults["tenure"]),
			formatDefault(defaults["balance"]),
			formatDefault(defaults["num_products"]),
			"1", "1",
			formatDefault(defaults["estimated_salary"]),
			"0",
			formatDefault(defaults["satisfaction_score"]),
			formatDefault(defaults["loyalty_points"]),
			string(models.GenderFemale),
			string(models.CountryFrance),
			string(models.TierRubis),
		},
		{
			"cust-002",
			"720", "45", "8", "125000.50", "2",
			"1", "0",
			"95000", "1", "2", "4200",
			string(models.GenderMale),
			string(models.CountryGermany),
			string(models.TierGold),
		},
	}
	for _, row := range rows {
		b.WriteString(strings.Join(row, ";"))
		b.WriteByte('\n')
	}
	return b.String()
}

func formatDefault(r validation.Range) string {
	return strconv.FormatFloat(r.Default, 'f', -1, 64)
}
