package transaction

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/spendwatch/spendwatch/internal/validation"
)

// RawRecord is one transaction-shaped input row as uploaded. Fields decode
// untyped so a wrong-typed value rejects that record instead of failing the
// whole batch decode. Amounts may arrive as JSON numbers or strings (CSV
// exports produce either).
type RawRecord struct {
	VendorID   any `json:"vendor_id"`
	VendorName any `json:"vendor_name"`
	Department any `json:"department"`
	Amount     any `json:"amount"`
	Location   any `json:"location"`
	Date       any `json:"transaction_date"`
}

// Rejection describes why a single record was refused. Validation is
// per-record; one bad row never aborts the batch.
type Rejection struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// BatchResult summarizes a validated batch.
type BatchResult struct {
	Accepted   []*Transaction
	Rejections []Rejection
}

// ValidateBatch normalizes raw records into Transactions, collecting a
// rejection with field and reason for each malformed record.
func ValidateBatch(records []RawRecord) *BatchResult {
	res := &BatchResult{}

	for i, rec := range records {
		tx, rej := validateRecord(rec)
		if rej != nil {
			rej.Index = i
			res.Rejections = append(res.Rejections, *rej)
			continue
		}
		res.Accepted = append(res.Accepted, tx)
	}

	return res
}

func validateRecord(rec RawRecord) (*Transaction, *Rejection) {
	vendorID, rej := textField(rec.VendorID, "vendor_id")
	if rej != nil {
		return nil, rej
	}
	if vendorID == "" {
		return nil, &Rejection{Field: "vendor_id", Reason: "is required"}
	}

	vendorName, rej := textField(rec.VendorName, "vendor_name")
	if rej != nil {
		return nil, rej
	}
	if vendorName == "" {
		return nil, &Rejection{Field: "vendor_name", Reason: "is required"}
	}

	department, rej := textField(rec.Department, "department")
	if rej != nil {
		return nil, rej
	}
	if department == "" {
		return nil, &Rejection{Field: "department", Reason: "is required"}
	}

	rawAmount, ok := amountText(rec.Amount)
	if !ok {
		return nil, &Rejection{Field: "amount", Reason: "must be a number"}
	}
	amount, err := validation.ParseAmount(rawAmount)
	if err != nil {
		return nil, &Rejection{Field: "amount", Reason: err.Error()}
	}

	rawDate, rej := textField(rec.Date, "transaction_date")
	if rej != nil {
		return nil, rej
	}
	date, err := validation.ParseDate(rawDate)
	if err != nil {
		return nil, &Rejection{Field: "transaction_date", Reason: err.Error()}
	}

	location, rej := textField(rec.Location, "location")
	if rej != nil {
		return nil, rej
	}
	if location == "" {
		location = UnknownLocation
	}

	return &Transaction{
		VendorID:   vendorID,
		VendorName: vendorName,
		Department: department,
		Amount:     amount,
		Location:   location,
		Date:       date,
		CreatedAt:  time.Now(),
	}, nil
}

// textField coerces a decoded JSON value into a sanitized string. Absent
// fields decode to nil and coerce to "".
func textField(v any, field string) (string, *Rejection) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return validation.SanitizeString(s, validation.MaxStringLength), nil
	default:
		return "", &Rejection{Field: field, Reason: "must be a string"}
	}
}

// amountText renders an amount value for ParseAmount. JSON numbers decode
// as float64; direct callers may pass json.Number.
func amountText(v any) (string, bool) {
	switch a := v.(type) {
	case nil:
		return "", true
	case string:
		return a, true
	case float64:
		return strconv.FormatFloat(a, 'f', -1, 64), true
	case json.Number:
		return a.String(), true
	default:
		return "", false
	}
}
