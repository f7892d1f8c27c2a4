package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string { // error interface
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

// Helpers
func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

func MinInt(field string, v, min int64) *ErrField {
	if v < min {
		return &ErrField{Field: field, Msg: "must be >= " + strconv.FormatInt(min, 10)}
	}
	return nil
}

// UserID parses a positive path id.
func UserID(raw string) (int64, *ErrField) {
	if ef := Required("id", raw); ef != nil {
		return 0, ef
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, &ErrField{Field: "id", Msg: "must be an integer"}
	}
	if ef := MinInt("id", id, 1); ef != nil {
		return 0, ef
	}
	return id, nil
}

const maxAmountBody = 64

var errNotInteger = errors.New("must be a JSON integer")

// Amount reads a bare JSON integer body such as `1500`. The sign is not
// checked here; the ledger owns that rule.
func Amount(body io.Reader) (int64, *ErrField) {
	raw, err := io.ReadAll(io.LimitReader(body, maxAmountBody+1))
	if err != nil || len(raw) > maxAmountBody {
		return 0, &ErrField{Field: "amount", Msg: "body too large or unreadable"}
	}

	n, err := decodeInteger(raw)
	if err != nil {
		return 0, &ErrField{Field: "amount", Msg: err.Error()}
	}
	return n, nil
}

func decodeInteger(raw []byte) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, errNotInteger
	}
	if dec.More() {
		return 0, errNotInteger
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, errNotInteger
	}
	n, err := num.Int64()
	if err != nil {
		return 0, errNotInteger
	}
	return n, nil
}
