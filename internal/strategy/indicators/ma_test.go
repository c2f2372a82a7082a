package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-trend-sentry/pkg/types"
)

// makeKlines 生成收盘价序列对应的K线，最低价为收盘价的98%
func makeKlines(symbol string, closes []float64) []*types.KLine {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	klines := make([]*types.KLine, 0, len(closes))
	for i, c := range closes {
		klines = append(klines, &types.KLine{
			Symbol:    symbol,
			OpenTime:  base.Add(time.Duration(i) * 4 * time.Hour),
			CloseTime: base.Add(time.Duration(i+1) * 4 * time.Hour),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.98,
			Close:     c,
			Volume:    100,
			Interval:  "4H",
		})
	}
	return klines
}

// constantCloses 生成n个相同收盘价
func constantCloses(n int, price float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return closes
}

func TestCalculateInsufficientData(t *testing.T) {
	calc := NewMACalculator(20)

	t.Run("空序列", func(t *testing.T) {
		_, err := calc.Calculate(nil)
		require.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("单根K线", func(t *testing.T) {
		_, err := calc.Calculate(makeKlines("BTC-USDT", []float64{100}))
		require.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("两根K线可算乖离率", func(t *testing.T) {
		set, err := calc.Calculate(makeKlines("BTC-USDT", []float64{100, 110}))
		require.NoError(t, err)
		// MA7退化为两根均值105
		assert.InDelta(t, 105, set.MA7, 1e-9)
		assert.InDelta(t, (110-105.0)/105, set.BiasRatio, 1e-9)
		assert.Nil(t, set.MA25)
		assert.Nil(t, set.MA99)
		assert.Equal(t, types.TrendMixed, set.Trend)
	})
}

func TestCalculateFullSeries(t *testing.T) {
	calc := NewMACalculator(20)

	// 120根递增序列：近期均线高于远期均线，构成多头排列
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	set, err := calc.Calculate(makeKlines("ETH-USDT", closes))
	require.NoError(t, err)

	require.NotNil(t, set.MA25)
	require.NotNil(t, set.MA99)
	assert.Equal(t, types.TrendBullishAligned, set.Trend)

	// 末尾7根收盘价为213..219，均值216
	assert.InDelta(t, 216, set.MA7, 1e-9)
	assert.InDelta(t, (219-216.0)/216, set.BiasRatio, 1e-9)

	require.NotNil(t, set.SwingLow)
	// 摆动低点为末尾20根最低价（收盘价200的98%）
	assert.InDelta(t, 200*0.98, *set.SwingLow, 1e-9)
}

func TestCalculatePartialSeries(t *testing.T) {
	calc := NewMACalculator(20)

	t.Run("不足25根时MA25为nil", func(t *testing.T) {
		set, err := calc.Calculate(makeKlines("SOL-USDT", constantCloses(10, 50)))
		require.NoError(t, err)
		assert.Nil(t, set.MA25)
		assert.Nil(t, set.MA99)
		assert.Equal(t, types.TrendMixed, set.Trend)
	})

	t.Run("不足99根时MA99为nil且趋势为MIXED", func(t *testing.T) {
		set, err := calc.Calculate(makeKlines("SOL-USDT", constantCloses(50, 50)))
		require.NoError(t, err)
		require.NotNil(t, set.MA25)
		assert.Nil(t, set.MA99)
		assert.Equal(t, types.TrendMixed, set.Trend)
	})
}

func TestDetermineTrend(t *testing.T) {
	ptr := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		ma7  float64
		ma25 *float64
		ma99 *float64
		want types.TrendStatus
	}{
		{"多头排列", 110, ptr(105), ptr(100), types.TrendBullishAligned},
		{"空头排列", 90, ptr(95), ptr(100), types.TrendBearishAligned},
		{"均线交织", 100, ptr(105), ptr(100), types.TrendMixed},
		{"缺少MA99", 110, ptr(105), nil, types.TrendMixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineTrend(tt.ma7, tt.ma25, tt.ma99))
		})
	}
}

func TestBiasRatioIsFraction(t *testing.T) {
	calc := NewMACalculator(20)

	// 收盘价高于MA7约12.5%时，乖离率应为约0.125而非12.5
	closes := constantCloses(99, 100)
	closes = append(closes, 120) // 拉高最后一根

	set, err := calc.Calculate(makeKlines("SOL-USDT", closes))
	require.NoError(t, err)

	assert.Greater(t, set.BiasRatio, 0.1)
	assert.Less(t, set.BiasRatio, 0.2)
}
