package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"ChipSentinel/internal/model"
	"ChipSentinel/internal/strategy"
)

// HistoryRows is how many recent bars the single-symbol report lists.
const HistoryRows = 10

func light(on bool) string {
	if on {
		return "🟢"
	}
	return "🔴"
}

// lots converts shares to board lots of 1000.
func lots(shares int64) float64 {
	return float64(shares) / 1000
}

func fmtMA(v null.Float) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%.2f", v.Float64)
}

// VerdictLabel returns the headline for a verdict.
func VerdictLabel(v model.Verdict) string {
	switch v {
	case model.VerdictBuy:
		return "🚀 強力買進訊號"
	case model.VerdictWarning:
		return "⚠️ 警示：投信賣超且跌破10日線"
	default:
		return "👀 觀察中"
	}
}

// FormatStockReport formats the single-symbol view.
func FormatStockReport(r *model.StockReport, th strategy.Thresholds) string {
	if r == nil || r.Series.Len() == 0 {
		return FormatNoData("")
	}
	s := r.Series
	last, _ := s.Last()
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>%s</b> 籌碼分析 | %s\n", html.EscapeString(s.Symbol), last.Day()))
	b.WriteString(fmt.Sprintf("資料來源: %s | 回溯 %d 天 | %d 筆\n\n", s.Source, s.LookbackDays, s.Len()))

	sig := r.Signal
	if sig == nil {
		b.WriteString(fmt.Sprintf("⏳ 資料不足：需要至少 %d 個交易日，目前只有 %d 筆\n", th.RequiredBars(), s.Len()))
	} else {
		b.WriteString(fmt.Sprintf("收盤價: %.2f (%+.2f%%)\n", sig.Close, sig.PctChange))
		b.WriteString(fmt.Sprintf("投信買賣超: %+.0f 張\n", lots(sig.InstitutionalNet)))
		b.WriteString(fmt.Sprintf("投信佔比: %.2f%% (門檻 %.1f%%)\n", sig.InstitutionalRatio, th.InstitutionalRatioPct))
		b.WriteString(fmt.Sprintf("爆量倍數: %.2fx (門檻 %.1fx)\n\n", sig.VolumeRatio, th.VolumeMultiple))

		c := sig.Conditions
		b.WriteString("🚦 <b>訊號燈號</b>\n")
		b.WriteString(fmt.Sprintf("%s 投信連買 %d 天\n", light(c.InstitutionalStreak), th.StreakDays))
		b.WriteString(fmt.Sprintf("%s 投信佔比 ≥ %.1f%%\n", light(c.InstitutionalRatioMet), th.InstitutionalRatioPct))
		b.WriteString(fmt.Sprintf("%s 爆量 ≥ %.1f 倍\n", light(c.VolumeSpike), th.VolumeMultiple))
		b.WriteString(fmt.Sprintf("%s 站上季線 (MA60 %s)\n", light(c.BullishTrend), fmtMA(sig.Indicators.CloseMA60)))
		candle := fmt.Sprintf("%s 長紅K ≥ %.1f%%", light(c.StrongCandle), th.StrongCandlePct)
		if !th.RequireStrongCandle {
			candle += " (參考)"
		}
		b.WriteString(candle + "\n\n")
		b.WriteString(fmt.Sprintf("判定: <b>%s</b>\n", VerdictLabel(sig.Verdict)))
	}

	b.WriteString("\n📋 <b>近期資料</b>\n")
	b.WriteString(formatHistory(s.Bars, r.Indicators))
	return b.String()
}

// formatHistory renders the most recent bars, newest first.
func formatHistory(bars []model.DailyBar, sets []model.IndicatorSet) string {
	var b strings.Builder
	b.WriteString("<pre>")
	b.WriteString(fmt.Sprintf("%-5s %8s %7s %7s %8s %8s\n", "日期", "收盤", "量(張)", "投信", "MA10", "MA60"))
	for i := len(bars) - 1; i >= 0 && i >= len(bars)-HistoryRows; i-- {
		bar := bars[i]
		ma10, ma60 := "-", "-"
		if i < len(sets) {
			ma10, ma60 = fmtMA(sets[i].CloseMA10), fmtMA(sets[i].CloseMA60)
		}
		b.WriteString(fmt.Sprintf("%-5s %8.2f %7.0f %+7.0f %8s %8s\n",
			bar.Date.In(model.MarketLocation).Format("01/02"), bar.Close, lots(bar.Volume), lots(bar.InstitutionalNet), ma10, ma60))
	}
	b.WriteString("</pre>")
	return b.String()
}

// FormatNoData is the reply for a symbol the provider does not know.
func FormatNoData(symbol string) string {
	if symbol == "" {
		return "❌ 查無資料，請確認股票代號"
	}
	return fmt.Sprintf("❌ 查無 <b>%s</b> 的資料，請確認股票代號", html.EscapeString(symbol))
}

// FormatFetchError is the reply when the provider call failed.
func FormatFetchError(symbol string, err error) string {
	return fmt.Sprintf("⚠️ <b>%s</b> 資料取得失敗: %s", html.EscapeString(symbol), html.EscapeString(err.Error()))
}

var skipLabels = map[model.SkipReason]string{
	model.SkipFetchFailed:      "取得失敗",
	model.SkipNotEnoughHistory: "資料不足",
}

// FormatScanReport formats a watchlist scan.
func FormatScanReport(r *model.ScanReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔍 <b>投信連買掃描</b> | %s\n", r.StartedAt.In(model.MarketLocation).Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("掃描 %d 檔，連買 %d 檔，其中買進訊號 %d 檔\n\n", r.Scanned, len(r.Hits), r.BuyCount()))

	if len(r.Hits) == 0 {
		b.WriteString("今日無投信連買標的\n")
	}
	for _, h := range r.Hits {
		icon := "🟡"
		if h.Status == model.HitBuy {
			icon = "🚀"
		}
		b.WriteString(fmt.Sprintf("%s <b>%s</b> 收 %.2f (%+.2f%%) | 投信佔比 %.2f%% | 量 %.2fx\n",
			icon, html.EscapeString(h.Symbol), h.Close, h.PctChange, h.InstitutionalRatio, h.VolumeRatio))
	}

	if len(r.Skipped) > 0 {
		parts := make([]string, 0, len(r.Skipped))
		for _, s := range r.Skipped {
			parts = append(parts, fmt.Sprintf("%s(%s)", html.EscapeString(s.Symbol), skipLabels[s.Reason]))
		}
		b.WriteString(fmt.Sprintf("\n略過: %s\n", strings.Join(parts, ", ")))
	}
	b.WriteString(fmt.Sprintf("\n耗時 %v", r.FinishedAt.Sub(r.StartedAt).Round(time.Second)))
	return b.String()
}

// FormatThresholds lists the active strategy parameters and watchlist.
func FormatThresholds(th strategy.Thresholds, singleLookback, scanLookback int, watchlist []string) string {
	var b strings.Builder
	b.WriteString("⚙️ <b>策略參數</b>\n\n")
	b.WriteString(fmt.Sprintf("投信連買天數: %d\n", th.StreakDays))
	b.WriteString(fmt.Sprintf("爆量倍數: %.2f\n", th.VolumeMultiple))
	b.WriteString(fmt.Sprintf("投信佔比(%%): %.2f\n", th.InstitutionalRatioPct))
	b.WriteString(fmt.Sprintf("長紅K漲幅(%%): %.2f\n", th.StrongCandlePct))
	b.WriteString(fmt.Sprintf("買進需長紅K: %v\n", th.RequireStrongCandle))
	b.WriteString(fmt.Sprintf("個股回溯天數: %d\n", singleLookback))
	b.WriteString(fmt.Sprintf("掃描回溯天數: %d\n", scanLookback))
	b.WriteString(fmt.Sprintf("觀察清單 (%d): %s\n", len(watchlist), strings.Join(watchlist, ", ")))
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "🤖 <b>ChipSentinel 指令</b>\n\n" +
		"/stock 2330 或 查股 2330 - 個股籌碼分析\n" +
		"/scan 或 掃描 - 掃描觀察清單\n" +
		"/config 或 參數 - 查看策略參數\n" +
		"/help - 顯示本說明"
}
