package fetch

import (
	"fmt"
	"time"

	"github.com/hitoshi/notenews/internal/model"
)

// FetchResult はHTTPステータスコードに基づくフェッチ結果の分類。
type FetchResult int

const (
	// FetchResultOK はフェッチ成功（200）。
	FetchResultOK FetchResult = iota
	// FetchResultNotModified はコンテンツ未変更（304）。
	FetchResultNotModified
	// FetchResultStop はフェッチ停止が必要なステータス（404/410/401/403）。
	FetchResultStop
	// FetchResultBackoff はバックオフが必要なステータス（429/5xx）。
	FetchResultBackoff
	// FetchResultUnknown は未知のステータスコード。
	FetchResultUnknown
)

const (
	// initialBackoff は指数バックオフの初回遅延。
	initialBackoff = 30 * time.Minute
	// maxBackoff は指数バックオフの最大遅延。
	maxBackoff = 12 * time.Hour
	// parseFailureThreshold はパース失敗によるフェッチ停止の閾値。
	parseFailureThreshold = 10
)

// ClassifyHTTPStatus はHTTPステータスコードをフェッチ結果に分類する。
func ClassifyHTTPStatus(statusCode int) FetchResult {
	switch {
	case statusCode == 200:
		return FetchResultOK
	case statusCode == 304:
		return FetchResultNotModified
	case statusCode == 404 || statusCode == 410:
		return FetchResultStop
	case statusCode == 401 || statusCode == 403:
		return FetchResultStop
	case statusCode == 429:
		return FetchResultBackoff
	case statusCode >= 500:
		return FetchResultBackoff
	default:
		return FetchResultUnknown
	}
}

// CalculateBackoff は連続エラー回数に基づいて指数バックオフ遅延を計算する。
// 初回30分、2倍ずつ増加、最大12時間。
func CalculateBackoff(consecutiveErrors int) time.Duration {
	delay := initialBackoff
	for i := 0; i < consecutiveErrors; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// ApplyStop はソースのフェッチを停止する。
func ApplyStop(src *model.NewsSource, reason string, now time.Time) {
	src.FetchStatus = model.FetchStatusStopped
	src.ErrorMessage = reason
	src.UpdatedAt = now
}

// ApplyBackoff は連続エラー回数を増やし、指数バックオフでnext_fetch_atを先送りする。
func ApplyBackoff(src *model.NewsSource, reason string, now time.Time) {
	src.ConsecutiveErrors++
	src.ErrorMessage = reason
	src.NextFetchAt = now.Add(CalculateBackoff(src.ConsecutiveErrors - 1))
	src.UpdatedAt = now
}

// ApplySuccess はエラー状態をリセットし、interval後に次回フェッチを予定する。
func ApplySuccess(src *model.NewsSource, interval time.Duration, now time.Time) {
	src.ConsecutiveErrors = 0
	src.ErrorMessage = ""
	src.NextFetchAt = now.Add(interval)
	src.UpdatedAt = now
}

// ApplyParseFailure は連続エラー回数を増やし、閾値に達したらフェッチを停止する。
// 停止しない場合はinterval後に再試行する。
func ApplyParseFailure(src *model.NewsSource, reason string, interval time.Duration, now time.Time) {
	src.ConsecutiveErrors++
	src.ErrorMessage = fmt.Sprintf("parse failed (%d in a row): %s", src.ConsecutiveErrors, reason)
	src.NextFetchAt = now.Add(interval)
	src.UpdatedAt = now

	if src.ConsecutiveErrors >= parseFailureThreshold {
		src.FetchStatus = model.FetchStatusError
		src.ErrorMessage = fmt.Sprintf("stopped after %d consecutive parse failures: %s", src.ConsecutiveErrors, reason)
	}
}
