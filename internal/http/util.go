package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// splitList "a, b,,c" -> [a b c]
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var errNotNumber = errors.New("not a number")

// flexNumber accepts a JSON number or a string holding one. Anything else, the
// empty string included, decodes to NaN so threshold validation rejects it.
type flexNumber struct {
	Value float64
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		n.Value = f
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errNotNumber
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		v = math.NaN()
	}
	n.Value = v
	return nil
}

func (n *flexNumber) ptr() *float64 {
	if n == nil {
		return nil
	}
	v := n.Value
	return &v
}
