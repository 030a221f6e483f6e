// Package indicators computes the technical-analysis report served by the
// technical_analysis tool from a series of OHLCV candles.
package indicators

import (
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// MinCandles is the smallest series Compute accepts.
const MinCandles = 200

// RequestCandles is how many candles a caller should ask the data source for.
const RequestCandles = 500

// Timeframe maps a user-facing interval to the Birdeye candle type.
type Timeframe struct {
	Name        string
	BirdeyeType string
	Interval    time.Duration
}

// Timeframes lists the supported intervals, shortest first.
var Timeframes = []Timeframe{
	{"1m", "1m", time.Minute},
	{"5m", "5m", 5 * time.Minute},
	{"15m", "15m", 15 * time.Minute},
	{"30m", "30m", 30 * time.Minute},
	{"1h", "1H", time.Hour},
	{"2h", "2H", 2 * time.Hour},
	{"4h", "4H", 4 * time.Hour},
	{"8h", "8H", 8 * time.Hour},
	{"1d", "1D", 24 * time.Hour},
}

// LookupTimeframe resolves name case-insensitively.
func LookupTimeframe(name string) (Timeframe, bool) {
	name = strings.ToLower(name)
	for _, tf := range Timeframes {
		if tf.Name == name {
			return tf, true
		}
	}
	return Timeframe{}, false
}

// TimeframeNames returns the supported interval names.
func TimeframeNames() []string {
	out := make([]string, len(Timeframes))
	for i, tf := range Timeframes {
		out[i] = tf.Name
	}
	return out
}

// Candle is one OHLCV bar. Time is a unix timestamp in seconds.
type Candle struct {
	Time   int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// ParseCandles reads Birdeye OHLCV items ({o,h,l,c,v,unix_time}) and
// returns them sorted by time ascending. Numeric strings are accepted.
func ParseCandles(items gjson.Result) []Candle {
	var out []Candle
	items.ForEach(func(_, v gjson.Result) bool {
		out = append(out, Candle{
			Time:   v.Get("unix_time").Int(),
			Open:   v.Get("o").Float(),
			High:   v.Get("h").Float(),
			Low:    v.Get("l").Float(),
			Close:  v.Get("c").Float(),
			Volume: v.Get("v").Float(),
		})
		return true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

type series struct {
	open, high, low, close, volume []float64
}

func split(cs []Candle) series {
	s := series{
		open:   make([]float64, len(cs)),
		high:   make([]float64, len(cs)),
		low:    make([]float64, len(cs)),
		close:  make([]float64, len(cs)),
		volume: make([]float64, len(cs)),
	}
	for i, c := range cs {
		s.open[i], s.high[i], s.low[i], s.close[i], s.volume[i] = c.Open, c.High, c.Low, c.Close, c.Volume
	}
	return s
}
