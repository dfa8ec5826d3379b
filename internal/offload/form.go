package offload

import (
	"net/http"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// decimalField parses an optional number, accepting thousands separators.
func decimalField(r *http.Request, name string, errs map[string]string) decimal.Decimal {
	raw := strings.TrimSpace(r.PostFormValue(name))
	if raw == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		errs[name] = "Enter a number"
		errs["raw:"+name] = raw
		return decimal.Zero
	}
	return v
}

func parseTankReading(r *http.Request, prefix string, errs map[string]string) TankReading {
	return TankReading{
		Dip:         decimalField(r, prefix+"_dip", errs),
		Volume:      decimalField(r, prefix+"_volume", errs),
		Temperature: decimalField(r, prefix+"_temperature", errs),
		Density:     decimalField(r, prefix+"_density", errs),
	}
}

func parsePumpReadings(r *http.Request, prefix string, rows []PumpReading, errs map[string]string) []PumpReading {
	out := make([]PumpReading, 0, len(rows))
	for _, p := range rows {
		out = append(out, PumpReading{
			PumpID:   p.PumpID,
			Electric: decimalField(r, prefix+"_pump_"+strconv.FormatInt(p.PumpID, 10), errs),
		})
	}
	return out
}

// splitSeals accepts seal numbers separated by commas, spaces or newlines.
func splitSeals(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
