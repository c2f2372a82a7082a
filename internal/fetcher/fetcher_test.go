package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-trend-sentry/pkg/types"
)

// candleRow 构造OKX格式的K线行：[ts, o, h, l, c, vol, ...]，最新在前
func candleRow(openTime time.Time, o, h, l, c, vol float64) []string {
	return []string{
		fmt.Sprintf("%d", openTime.UnixMilli()),
		fmt.Sprintf("%f", o),
		fmt.Sprintf("%f", h),
		fmt.Sprintf("%f", l),
		fmt.Sprintf("%f", c),
		fmt.Sprintf("%f", vol),
	}
}

func testFetcher(baseURL string, freshness time.Duration) *CandleFetcher {
	f := NewCandleFetcher("4H", 120, freshness, types.NetworkConfig{Timeout: 5 * time.Second})
	f.baseURL = baseURL
	return f
}

func TestFetchReturnsOldToNew(t *testing.T) {
	now := time.Now().Truncate(4 * time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTC-USDT", r.URL.Query().Get("instId"))
		assert.Equal(t, "4H", r.URL.Query().Get("bar"))

		// OKX响应最新在前
		fmt.Fprintf(w, `{"code":"0","msg":"","data":[
			["%d","42800","43000","42500","42856","1000"],
			["%d","42500","42900","42400","42800","900"],
			["%d","42300","42600","42200","42500","800"]
		]}`, now.UnixMilli(), now.Add(-4*time.Hour).UnixMilli(), now.Add(-8*time.Hour).UnixMilli())
	}))
	defer srv.Close()

	f := testFetcher(srv.URL, 0)
	klines, err := f.Fetch(context.Background(), "BTC-USDT")

	require.NoError(t, err)
	require.Len(t, klines, 3)

	// 反转后从旧到新
	assert.True(t, klines[0].OpenTime.Before(klines[1].OpenTime))
	assert.True(t, klines[1].OpenTime.Before(klines[2].OpenTime))
	assert.Equal(t, 42856.0, klines[2].Close)
	assert.Equal(t, "BTC-USDT", klines[0].Symbol)
	assert.Equal(t, "4H", klines[0].Interval)
}

func TestFetchRetriesThenFails(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := testFetcher(srv.URL, 0)
	_, err := f.Fetch(context.Background(), "BTC-USDT")

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestFetchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"51001","msg":"Instrument ID does not exist","data":[]}`)
	}))
	defer srv.Close()

	f := testFetcher(srv.URL, 0)
	_, err := f.Fetch(context.Background(), "BAD-USDT")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "51001")
}

func TestFetchStaleData(t *testing.T) {
	stale := time.Now().Add(-48 * time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"code":"0","msg":"","data":[
			["%d","100","110","90","105","10"],
			["%d","95","105","90","100","10"]
		]}`, stale.UnixMilli(), stale.Add(-4*time.Hour).UnixMilli())
	}))
	defer srv.Close()

	f := testFetcher(srv.URL, 12*time.Hour)
	_, err := f.Fetch(context.Background(), "BTC-USDT")

	require.ErrorIs(t, err, ErrStaleData)
}

func TestBarDuration(t *testing.T) {
	assert.Equal(t, 4*time.Hour, barDuration("4H"))
	assert.Equal(t, time.Hour, barDuration("1H"))
	assert.Equal(t, 24*time.Hour, barDuration("1D"))
	// 未知周期回退为4小时
	assert.Equal(t, 4*time.Hour, barDuration("3W"))
}
