package indicators

import (
	"fmt"
	"math"
	"time"

	"github.com/markcheno/go-talib"
)

type MACD struct {
	MACD      *float64 `json:"macd"`
	Signal    *float64 `json:"signal"`
	Histogram *float64 `json:"histogram"`
}

type Trend struct {
	EMA9   *float64 `json:"ema_9"`
	EMA21  *float64 `json:"ema_21"`
	EMA50  *float64 `json:"ema_50"`
	EMA200 *float64 `json:"ema_200"`
	SMA20  *float64 `json:"sma_20"`
	SMA50  *float64 `json:"sma_50"`
	SMA200 *float64 `json:"sma_200"`
	MACD   MACD     `json:"macd"`
	ADX    *float64 `json:"adx"`
	ADXPos *float64 `json:"adx_pos"`
	ADXNeg *float64 `json:"adx_neg"`
}

type Stochastic struct {
	K *float64 `json:"k"`
	D *float64 `json:"d"`
}

type Momentum struct {
	RSI14       *float64   `json:"rsi_14"`
	Stochastic  Stochastic `json:"stochastic"`
	CCI20       *float64   `json:"cci_20"`
	WilliamsR14 *float64   `json:"williams_r_14"`
	ROC12       *float64   `json:"roc_12"`
	MFI14       *float64   `json:"mfi_14"`
}

type Bollinger struct {
	Upper     *float64 `json:"upper"`
	Middle    *float64 `json:"middle"`
	Lower     *float64 `json:"lower"`
	Bandwidth *float64 `json:"bandwidth"`
	PercentB  *float64 `json:"percent_b"`
}

type Keltner struct {
	Upper  *float64 `json:"upper"`
	Middle *float64 `json:"middle"`
	Lower  *float64 `json:"lower"`
}

type Volatility struct {
	Bollinger  Bollinger `json:"bollinger"`
	ATR14      *float64  `json:"atr_14"`
	ATRPercent *float64  `json:"atr_percent"`
	Keltner    Keltner   `json:"keltner"`
}

type Volume struct {
	OBV           *float64 `json:"obv"`
	OBVEMA21      *float64 `json:"obv_ema_21"`
	VolumeSMA20   *float64 `json:"volume_sma_20"`
	CurrentVolume float64  `json:"current_volume"`
	VWAP          *float64 `json:"vwap"`
}

// Report holds the latest value of every indicator. Nil means the value
// could not be computed.
type Report struct {
	Trend             Trend              `json:"trend"`
	Momentum          Momentum           `json:"momentum"`
	Volatility        Volatility         `json:"volatility"`
	Volume            Volume             `json:"volume"`
	PriceVsIndicators map[string]float64 `json:"price_vs_indicators"`
}

// Compute builds a Report from candles sorted oldest first.
func Compute(cs []Candle) (*Report, error) {
	if len(cs) < MinCandles {
		return nil, fmt.Errorf("insufficient data: %d candles available, %d required", len(cs), MinCandles)
	}
	s := split(cs)
	price := s.close[len(s.close)-1]
	r := &Report{PriceVsIndicators: map[string]float64{}}

	r.Trend.EMA9 = last(talib.Ema(s.close, 9))
	r.Trend.EMA21 = last(talib.Ema(s.close, 21))
	r.Trend.EMA50 = last(talib.Ema(s.close, 50))
	r.Trend.EMA200 = last(talib.Ema(s.close, 200))
	r.Trend.SMA20 = last(talib.Sma(s.close, 20))
	r.Trend.SMA50 = last(talib.Sma(s.close, 50))
	r.Trend.SMA200 = last(talib.Sma(s.close, 200))

	macd, signal, hist := talib.Macd(s.close, 12, 26, 9)
	r.Trend.MACD = MACD{MACD: last(macd), Signal: last(signal), Histogram: last(hist)}

	r.Trend.ADX = last(talib.Adx(s.high, s.low, s.close, 14))
	r.Trend.ADXPos = last(talib.PlusDI(s.high, s.low, s.close, 14))
	r.Trend.ADXNeg = last(talib.MinusDI(s.high, s.low, s.close, 14))

	r.Momentum.RSI14 = last(talib.Rsi(s.close, 14))
	k, d := talib.Stoch(s.high, s.low, s.close, 14, 3, talib.SMA, 3, talib.SMA)
	r.Momentum.Stochastic = Stochastic{K: last(k), D: last(d)}
	r.Momentum.CCI20 = last(talib.Cci(s.high, s.low, s.close, 20))
	r.Momentum.WilliamsR14 = last(talib.WillR(s.high, s.low, s.close, 14))
	r.Momentum.ROC12 = last(talib.Roc(s.close, 12))
	r.Momentum.MFI14 = last(talib.Mfi(s.high, s.low, s.close, s.volume, 14))

	r.Volatility.Bollinger = bollinger(s.close, price)
	atr := last(talib.Atr(s.high, s.low, s.close, 14))
	r.Volatility.ATR14 = atr
	if atr != nil && price > 0 {
		r.Volatility.ATRPercent = ptr(*atr / price * 100)
	}
	r.Volatility.Keltner = keltner(s, 20, 2)

	obv := talib.Obv(s.close, s.volume)
	r.Volume.OBV = last(obv)
	r.Volume.OBVEMA21 = last(talib.Ema(obv, 21))
	r.Volume.VolumeSMA20 = last(talib.Sma(s.volume, 20))
	r.Volume.CurrentVolume = s.volume[len(s.volume)-1]
	r.Volume.VWAP = sessionVWAP(cs)

	if price > 0 {
		vs := []struct {
			key string
			ref *float64
		}{
			{"vs_ema_9_percent", r.Trend.EMA9},
			{"vs_ema_21_percent", r.Trend.EMA21},
			{"vs_ema_50_percent", r.Trend.EMA50},
			{"vs_ema_200_percent", r.Trend.EMA200},
			{"vs_sma_200_percent", r.Trend.SMA200},
			{"vs_vwap_percent", r.Volume.VWAP},
			{"vs_bb_middle_percent", r.Volatility.Bollinger.Middle},
		}
		for _, v := range vs {
			if p := percentDiff(price, v.ref); p != nil {
				r.PriceVsIndicators[v.key] = *p
			}
		}
	}
	return r, nil
}

func bollinger(close []float64, price float64) Bollinger {
	upper, middle, lower := talib.BBands(close, 20, 2, 2, talib.SMA)
	b := Bollinger{Upper: last(upper), Middle: last(middle), Lower: last(lower)}
	if b.Upper == nil || b.Middle == nil || b.Lower == nil {
		return b
	}
	if *b.Middle != 0 {
		b.Bandwidth = ptr((*b.Upper - *b.Lower) / *b.Middle * 100)
	}
	if width := *b.Upper - *b.Lower; width != 0 {
		b.PercentB = ptr((price - *b.Lower) / width)
	}
	return b
}

// keltner uses an EMA of close as the basis and an EMA of true range as
// the band width.
func keltner(s series, length int, scalar float64) Keltner {
	basis := last(talib.Ema(s.close, length))
	band := last(talib.Ema(trueRange(s), length))
	if basis == nil || band == nil {
		return Keltner{}
	}
	return Keltner{
		Upper:  ptr(*basis + scalar**band),
		Middle: basis,
		Lower:  ptr(*basis - scalar**band),
	}
}

func trueRange(s series) []float64 {
	tr := make([]float64, len(s.close))
	for i := range s.close {
		hl := s.high[i] - s.low[i]
		if i == 0 {
			tr[i] = hl
			continue
		}
		prev := s.close[i-1]
		tr[i] = math.Max(hl, math.Max(math.Abs(s.high[i]-prev), math.Abs(s.low[i]-prev)))
	}
	return tr
}

// sessionVWAP anchors at the start of the last candle's UTC day and returns
// the volume-weighted typical price since then.
func sessionVWAP(cs []Candle) *float64 {
	if len(cs) == 0 {
		return nil
	}
	day := time.Unix(cs[len(cs)-1].Time, 0).UTC().Truncate(24 * time.Hour).Unix()
	var pv, vol float64
	for i := len(cs) - 1; i >= 0 && cs[i].Time >= day; i-- {
		c := cs[i]
		pv += (c.High + c.Low + c.Close) / 3 * c.Volume
		vol += c.Volume
	}
	if vol == 0 {
		return nil
	}
	return ptr(pv / vol)
}

func percentDiff(current float64, ref *float64) *float64 {
	if ref == nil || *ref == 0 {
		return nil
	}
	return ptr((current - *ref) / *ref * 100)
}

func last(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	v := xs[len(xs)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func ptr(v float64) *float64 { return &v }
