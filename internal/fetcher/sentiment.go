package fetcher

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"crypto-trend-sentry/pkg/types"
)

const (
	fearGreedURL     = "https://api.alternative.me/fng/"
	coingeckoBaseURL = "https://api.coingecko.com/api/v3"
)

// SentimentFetcher 市场情绪获取器：恐惧贪婪指数 + 全局市值 + 涨跌榜
// 各数据源独立降级，任何一项失败都不影响整体报告
type SentimentFetcher struct {
	client    *resty.Client
	topCount  int
	fngURL    string
	geckoBase string
}

// NewSentimentFetcher 创建市场情绪获取器
func NewSentimentFetcher(cfg types.MarketConfig, networkConfig types.NetworkConfig) *SentimentFetcher {
	timeout := networkConfig.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second)
	if networkConfig.Proxy != "" {
		client.SetProxy(networkConfig.Proxy)
	}

	topCount := cfg.TopCount
	if topCount <= 0 {
		topCount = 5
	}

	return &SentimentFetcher{
		client:    client,
		topCount:  topCount,
		fngURL:    fearGreedURL,
		geckoBase: coingeckoBaseURL,
	}
}

// FetchOverview 获取市场概览，缺失字段留空，不返回错误
func (f *SentimentFetcher) FetchOverview(ctx context.Context) *types.MarketOverview {
	overview := &types.MarketOverview{Timestamp: time.Now()}

	if index, label, err := f.fetchFearGreed(ctx); err != nil {
		zap.L().Warn("⚠️ 获取恐惧贪婪指数失败，已跳过", zap.Error(err))
	} else {
		overview.FearGreedIndex = &index
		overview.FearGreedLabel = label
	}

	if dominance, mcap, err := f.fetchGlobal(ctx); err != nil {
		zap.L().Warn("⚠️ 获取全局市场数据失败，已跳过", zap.Error(err))
	} else {
		overview.BTCDominance = &dominance
		overview.TotalMarketCap = &mcap
	}

	if gainers, losers, err := f.fetchMovers(ctx); err != nil {
		zap.L().Warn("⚠️ 获取涨跌榜失败，已跳过", zap.Error(err))
	} else {
		overview.TopGainers = gainers
		overview.TopLosers = losers
	}

	return overview
}

type fearGreedResponse struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
	} `json:"data"`
}

func (f *SentimentFetcher) fetchFearGreed(ctx context.Context) (int, string, error) {
	var result fearGreedResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get(f.fngURL)
	if err != nil {
		return 0, "", fmt.Errorf("请求恐惧贪婪指数失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return 0, "", fmt.Errorf("恐惧贪婪指数接口状态码: %d", resp.StatusCode())
	}
	if len(result.Data) == 0 {
		return 0, "", fmt.Errorf("恐惧贪婪指数响应为空")
	}

	value, err := strconv.Atoi(result.Data[0].Value)
	if err != nil {
		return 0, "", fmt.Errorf("解析恐惧贪婪指数失败: %w", err)
	}
	return value, result.Data[0].ValueClassification, nil
}

type globalResponse struct {
	Data struct {
		TotalMarketCap      map[string]float64 `json:"total_market_cap"`
		MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
	} `json:"data"`
}

func (f *SentimentFetcher) fetchGlobal(ctx context.Context) (float64, float64, error) {
	var result globalResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get(f.geckoBase + "/global")
	if err != nil {
		return 0, 0, fmt.Errorf("请求全局市场数据失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return 0, 0, fmt.Errorf("全局市场接口状态码: %d", resp.StatusCode())
	}

	dominance, ok := result.Data.MarketCapPercentage["btc"]
	if !ok {
		return 0, 0, fmt.Errorf("响应缺少BTC市占率")
	}
	mcap, ok := result.Data.TotalMarketCap["usd"]
	if !ok {
		return 0, 0, fmt.Errorf("响应缺少总市值")
	}
	return dominance, mcap, nil
}

type coinMarket struct {
	Symbol             string  `json:"symbol"`
	PriceChangePercent float64 `json:"price_change_percentage_24h"`
}

func (f *SentimentFetcher) fetchMovers(ctx context.Context) ([]types.MoverEntry, []types.MoverEntry, error) {
	var result []coinMarket
	resp, err := f.client.R().
		SetContext(ctx).
		SetResult(&result).
		SetQueryParams(map[string]string{
			"vs_currency": "usd",
			"order":       "market_cap_desc",
			"per_page":    "100",
			"page":        "1",
		}).
		Get(f.geckoBase + "/coins/markets")
	if err != nil {
		return nil, nil, fmt.Errorf("请求行情列表失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, nil, fmt.Errorf("行情列表接口状态码: %d", resp.StatusCode())
	}
	if len(result) == 0 {
		return nil, nil, fmt.Errorf("行情列表响应为空")
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PriceChangePercent > result[j].PriceChangePercent
	})

	gainers := make([]types.MoverEntry, 0, f.topCount)
	for i := 0; i < len(result) && i < f.topCount; i++ {
		gainers = append(gainers, types.MoverEntry{
			Symbol:        strings.ToUpper(result[i].Symbol),
			ChangePercent: result[i].PriceChangePercent,
		})
	}

	losers := make([]types.MoverEntry, 0, f.topCount)
	for i := len(result) - 1; i >= 0 && len(losers) < f.topCount; i-- {
		losers = append(losers, types.MoverEntry{
			Symbol:        strings.ToUpper(result[i].Symbol),
			ChangePercent: result[i].PriceChangePercent,
		})
	}

	return gainers, losers, nil
}
