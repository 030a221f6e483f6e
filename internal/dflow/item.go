package dflow

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Item is a market, event or trade document. The metadata API returns
// loosely-typed objects and the tools echo them back with annotations,
// so they stay maps.
type Item map[string]any

// Str returns a string field or "".
func (it Item) Str(key string) string {
	s, _ := it[key].(string)
	return s
}

// Num returns a numeric field, or 0 when absent or not a number.
func (it Item) Num(key string) float64 {
	switch v := it[key].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

// Liquidity falls back to openInterest, which prediction markets report
// instead.
func (it Item) Liquidity() float64 {
	if l := it.Num("liquidity"); l != 0 {
		return l
	}
	return it.Num("openInterest")
}

func (it Item) closeTime() any {
	for _, k := range []string{"closeTime", "expirationTime", "endDate"} {
		switch v := it[k].(type) {
		case nil:
		case string:
			if v != "" {
				return v
			}
		case float64:
			if v != 0 {
				return v
			}
		default:
			return v
		}
	}
	return nil
}

// Annotate attaches the safety assessment and a readable resolution date.
func (it Item) Annotate(s Safety) {
	it["safety"] = s.asMap()
	if ct := it.closeTime(); ct != nil {
		if d := ResolutionDate(ct); d != "" {
			it["resolution_date"] = d
		} else {
			it["resolution_date"] = fmt.Sprint(ct)
		}
	}
}

// SafetyOf reads back an annotation.
func (it Item) SafetyOf() Safety {
	m, _ := it["safety"].(map[string]any)
	s := Safety{Warnings: []string{}}
	if m == nil {
		return s
	}
	s.Score, _ = m["score"].(string)
	s.Recommendation, _ = m["recommendation"].(string)
	if ws, ok := m["warnings"].([]string); ok {
		s.Warnings = ws
	}
	return s
}

func decodeItems(raw []byte, key string) ([]Item, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var items []Item
		return items, json.Unmarshal(raw, &items)
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	var items []Item
	if inner, ok := wrapped[key]; ok {
		if err := json.Unmarshal(inner, &items); err != nil {
			return nil, err
		}
	}
	return items, nil
}
