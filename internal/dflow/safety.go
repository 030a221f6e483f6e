package dflow

import (
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Safety grades and recommendations.
const (
	ScoreHigh   = "HIGH"
	ScoreMedium = "MEDIUM"
	ScoreLow    = "LOW"

	Proceed = "PROCEED"
	Caution = "CAUTION"
	Avoid   = "AVOID"
)

var (
	knownSeries = []string{
		"US-POLITICS", "US-ELECTIONS", "NFL", "NBA", "MLB", "NHL",
		"SOCCER", "CRYPTO", "FED", "ECONOMICS",
	}
	// Regulated or established venues: Kalshi, Polymarket.
	verifiedPrefixes = []string{"KX", "POLY"}

	objectiveCategories = map[string]bool{
		"politics": true, "elections": true, "sports": true,
		"fed": true, "economics": true, "crypto-price": true,
	}
)

// Safety is the heuristic risk assessment attached to markets and events.
type Safety struct {
	Score          string   `json:"score"`
	Warnings       []string `json:"warnings"`
	Recommendation string   `json:"recommendation"`
}

func (s Safety) asMap() map[string]any {
	return map[string]any{
		"score":          s.Score,
		"warnings":       s.Warnings,
		"recommendation": s.Recommendation,
	}
}

// ScoreMarket grades a market. trades, when non-nil, enables the 24h
// activity check (each trade carries createdTime in unix seconds).
func ScoreMarket(m Item, trades []Item, now time.Time) Safety {
	ticker := strings.ToUpper(m.Str("ticker"))
	series := m.Str("seriesTicker")
	if series == "" {
		series = m.Str("series_ticker")
	}
	series = strings.ToUpper(series)
	category := strings.ToLower(m.Str("category"))

	verified := false
	for _, p := range verifiedPrefixes {
		if strings.HasPrefix(ticker, p) || strings.HasPrefix(series, p) {
			verified = true
			break
		}
	}
	known := false
	for _, k := range knownSeries {
		if strings.HasPrefix(series, k) {
			known = true
			break
		}
	}
	hasDate := m.closeTime() != nil

	if (verified || known) && hasDate {
		return Safety{Score: ScoreHigh, Warnings: []string{}, Recommendation: Proceed}
	}

	warnings := []string{}
	points := 100
	nowSec := float64(now.Unix())

	created := m.Num("createdAt")
	if created == 0 {
		created = m.Num("openTime")
	}
	if created > 0 && !verified {
		switch age := (nowSec - created) / 3600; {
		case age < 24:
			warnings = append(warnings, "New market (< 24 hours old)")
			points -= 30
		case age < 168:
			warnings = append(warnings, "Young market (< 7 days old)")
			points -= 15
		}
	}

	switch vol := m.Num("volume"); {
	case vol < 1000:
		warnings = append(warnings, "Low volume ($"+humanize.Commaf(math.Round(vol))+")")
		points -= 25
	case vol < 10000:
		warnings = append(warnings, "Moderate volume ($"+humanize.Commaf(math.Round(vol))+")")
		points -= 10
	}

	switch liq := m.Liquidity(); {
	case liq < 500:
		warnings = append(warnings, "Low liquidity - may be hard to exit")
		points -= 30
	case liq < 2000:
		warnings = append(warnings, "Moderate liquidity")
		points -= 10
	}

	if trades != nil {
		recent := 0
		for _, t := range trades {
			if t.Num("createdTime") > nowSec-86400 {
				recent++
			}
		}
		if recent == 0 {
			warnings = append(warnings, "No trades in 24 hours")
			points -= 20
		}
	}

	if !known && !verified && series != "" {
		warnings = append(warnings, "Unknown/unverified series")
		points -= 15
	}

	if rules := m.Str("rulesPrimary"); !verified && len(rules) < 50 {
		warnings = append(warnings, "Unclear resolution criteria")
		points -= 20
	}

	if objectiveCategories[category] && hasDate {
		points += 15
	}

	switch {
	case points >= 70:
		return Safety{Score: ScoreHigh, Warnings: warnings, Recommendation: Proceed}
	case points >= 40:
		return Safety{Score: ScoreMedium, Warnings: warnings, Recommendation: Caution}
	default:
		return Safety{Score: ScoreLow, Warnings: warnings, Recommendation: Avoid}
	}
}

// ResolutionDate renders a close time: numbers as "2006-01-02 15:04 UTC",
// anything else verbatim.
func ResolutionDate(v any) string {
	switch t := v.(type) {
	case float64:
		return time.Unix(int64(t), 0).UTC().Format("2006-01-02 15:04 UTC")
	case string:
		return t
	default:
		return ""
	}
}
