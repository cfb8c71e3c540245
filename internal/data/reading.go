package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type readingKind uint8

const (
	kindAbsent readingKind = iota
	kindNumber
	kindRaw
)

// Reading is a number, a raw unparsed string, or absent.
// The zero value is absent and encodes as JSON null.
type Reading struct {
	kind readingKind
	num  float64
	raw  string
}

func Number(v float64) Reading { return Reading{kind: kindNumber, num: v} }

func Raw(s string) Reading { return Reading{kind: kindRaw, raw: s} }

func (r Reading) IsAbsent() bool { return r.kind == kindAbsent }

func (r Reading) IsNumber() bool { return r.kind == kindNumber }

func (r Reading) IsRaw() bool { return r.kind == kindRaw }

// Float reports the numeric value of r. Raw strings that look like a finite
// number count as numeric.
func (r Reading) Float() (float64, bool) {
	switch r.kind {
	case kindNumber:
		return r.num, true
	case kindRaw:
		return parseFinite(r.raw)
	}
	return 0, false
}

func (r Reading) String() string {
	switch r.kind {
	case kindNumber:
		return strconv.FormatFloat(r.num, 'f', -1, 64)
	case kindRaw:
		return r.raw
	}
	return "null"
}

func (r Reading) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case kindNumber:
		return []byte(strconv.FormatFloat(r.num, 'f', -1, 64)), nil
	case kindRaw:
		return json.Marshal(r.raw)
	}
	return []byte("null"), nil
}

func (r *Reading) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*r = Reading{}
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Raw(s)
	default:
		var v float64
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("reading must be number, string or null: %w", err)
		}
		*r = Number(v)
	}
	return nil
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
