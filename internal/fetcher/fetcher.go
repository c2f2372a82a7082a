package fetcher

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"crypto-trend-sentry/pkg/types"
)

// ErrStaleData K线数据过期（最新收盘时间超出新鲜度阈值）
var ErrStaleData = errors.New("K线数据已过期")

const okxCandlesURL = "https://www.okx.com/api/v5/market/candles"

// CandleFetcher K线数据获取器
type CandleFetcher struct {
	interval   string
	limit      int
	freshness  time.Duration
	baseURL    string
	httpClient *http.Client // 自定义HTTP客户端，支持代理
}

// NewCandleFetcher 创建K线获取器
func NewCandleFetcher(interval string, limit int, freshness time.Duration, networkConfig types.NetworkConfig) *CandleFetcher {
	timeout := networkConfig.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: false,
			},
		},
	}

	// 如果配置了代理，则使用代理
	if networkConfig.Proxy != "" {
		proxyURL, err := url.Parse(networkConfig.Proxy)
		if err == nil {
			httpClient.Transport.(*http.Transport).Proxy = http.ProxyURL(proxyURL)
			zap.L().Info("✅ 已配置HTTP代理", zap.String("proxy", networkConfig.Proxy))
		} else {
			zap.L().Warn("⚠️ 代理地址格式错误", zap.Error(err))
		}
	}

	if limit <= 0 {
		limit = 120
	}

	zap.L().Info("✅ 初始化OKX K线获取器",
		zap.String("interval", interval),
		zap.Int("limit", limit),
		zap.Duration("timeout", timeout))

	return &CandleFetcher{
		interval:   interval,
		limit:      limit,
		freshness:  freshness,
		baseURL:    okxCandlesURL,
		httpClient: httpClient,
	}
}

// Fetch 获取指定交易对的K线，返回按时间从旧到新排序的序列
func (f *CandleFetcher) Fetch(ctx context.Context, symbol string) ([]types.KLine, error) {
	// 重试机制：最多重试3次
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if attempt > 1 {
			zap.L().Info("🔄 重试获取K线", zap.String("symbol", symbol), zap.Int("attempt", attempt))
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		klines, err := f.fetchOnce(ctx, symbol)
		if err != nil {
			// 数据过期是服务端状态，重试无法改善
			if errors.Is(err, ErrStaleData) {
				return nil, err
			}
			lastErr = fmt.Errorf("第%d次尝试失败: %w", attempt, err)
			continue
		}
		return klines, nil
	}
	return nil, lastErr
}

func (f *CandleFetcher) fetchOnce(ctx context.Context, symbol string) ([]types.KLine, error) {
	apiURL := fmt.Sprintf("%s?instId=%s&bar=%s&limit=%d", f.baseURL, symbol, f.interval, f.limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP状态码错误: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	// OKX V5 响应格式：data为字符串数组，[ts, o, h, l, c, vol, ...]，最新在前
	var apiResp struct {
		Code string     `json:"code"`
		Msg  string     `json:"msg"`
		Data [][]string `json:"data"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("解析API响应失败: %w", err)
	}
	if apiResp.Code != "0" {
		return nil, fmt.Errorf("API返回错误: %s - %s", apiResp.Code, apiResp.Msg)
	}
	if len(apiResp.Data) == 0 {
		return nil, fmt.Errorf("交易对%s无K线数据", symbol)
	}

	klines, err := f.parseCandles(symbol, apiResp.Data)
	if err != nil {
		return nil, err
	}

	if err := f.checkFreshness(symbol, klines); err != nil {
		return nil, err
	}

	zap.L().Info("📊 获取K线成功",
		zap.String("symbol", symbol),
		zap.Int("count", len(klines)))
	return klines, nil
}

// parseCandles 解析并反转为从旧到新
func (f *CandleFetcher) parseCandles(symbol string, rows [][]string) ([]types.KLine, error) {
	klines := make([]types.KLine, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if len(row) < 6 {
			return nil, fmt.Errorf("K线字段不足: %v", row)
		}

		ts, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("解析K线时间戳失败: %w", err)
		}

		values := make([]float64, 5)
		for j := 1; j <= 5; j++ {
			v, err := strconv.ParseFloat(row[j], 64)
			if err != nil {
				return nil, fmt.Errorf("解析K线数值失败: %w", err)
			}
			values[j-1] = v
		}

		openTime := time.UnixMilli(ts)
		klines = append(klines, types.KLine{
			Symbol:    symbol,
			OpenTime:  openTime,
			CloseTime: openTime.Add(barDuration(f.interval)),
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
			Interval:  f.interval,
		})
	}
	return klines, nil
}

// checkFreshness 最新K线开盘时间距今超出阈值时判定为过期
func (f *CandleFetcher) checkFreshness(symbol string, klines []types.KLine) error {
	if f.freshness <= 0 || len(klines) == 0 {
		return nil
	}
	latest := klines[len(klines)-1]
	age := time.Since(latest.OpenTime)
	if age > f.freshness {
		zap.L().Warn("⚠️ K线数据过期",
			zap.String("symbol", symbol),
			zap.Duration("age", age),
			zap.Duration("freshness", f.freshness))
		return fmt.Errorf("%w: %s 最新K线距今%s", ErrStaleData, symbol, age.Round(time.Minute))
	}
	return nil
}

// barDuration K线周期字符串转时长，未知周期按4小时处理
func barDuration(bar string) time.Duration {
	switch bar {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1H":
		return time.Hour
	case "2H":
		return 2 * time.Hour
	case "4H":
		return 4 * time.Hour
	case "6H":
		return 6 * time.Hour
	case "12H":
		return 12 * time.Hour
	case "1D":
		return 24 * time.Hour
	default:
		return 4 * time.Hour
	}
}
