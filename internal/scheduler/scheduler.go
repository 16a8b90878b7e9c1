package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"ChipSentinel/internal/collector"
	"ChipSentinel/internal/model"
	"ChipSentinel/internal/notifier"
	"ChipSentinel/internal/screener"
	"ChipSentinel/internal/strategy"
)

// DefaultScanCron runs after the Taiwan market close on weekdays.
const DefaultScanCron = "0 30 17 * * 1-5"

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the after-close watchlist scan and answers chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Screener  *screener.Screener
	Notifier  Sender // nil logs reports instead of sending them
	Watchlist []string
	Ctx       context.Context

	scanMu sync.Mutex
	wg     sync.WaitGroup // background scans
}

// NewScheduler creates a new Scheduler. Cron expressions are evaluated in market time.
func NewScheduler(ctx context.Context, scr *screener.Screener, sender Sender, watchlist []string) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithLocation(model.MarketLocation)),
		Screener:  scr,
		Notifier:  sender,
		Watchlist: watchlist,
		Ctx:       ctx,
	}
}

// RegisterAll registers the scan task.
func (s *Scheduler) RegisterAll(scanCron string) error {
	if scanCron == "" {
		scanCron = DefaultScanCron
	}
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running scans, cron or background, to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	log.Println("[INFO] scheduler stopped")
}

// RunScanNow executes the scan task immediately and blocks until the report is sent.
func (s *Scheduler) RunScanNow() {
	s.scanTask()
}

// RunScanAsync starts the scan task in the background (RUN_ON_START). Stop waits for it.
func (s *Scheduler) RunScanAsync() {
	log.Println("[INFO] running watchlist scan in background")
	if !s.startScan() {
		log.Println("[WARN] scan already running, skipped")
	}
}

func (s *Scheduler) scanTask() {
	log.Println("[INFO] running watchlist scan")
	report, ok := s.scan(s.Ctx)
	if !ok {
		log.Println("[WARN] scan already running, skipped")
		return
	}
	s.trySend(notifier.FormatScanReport(report))
}

// scan runs one scan unless another is in progress.
func (s *Scheduler) scan(ctx context.Context) (*model.ScanReport, bool) {
	if !s.scanMu.TryLock() {
		return nil, false
	}
	defer s.scanMu.Unlock()
	return s.Screener.Scan(ctx, s.Watchlist), true
}

// startScan launches a tracked scan that sends its own report. It returns false while another scan runs.
func (s *Scheduler) startScan() bool {
	if !s.scanMu.TryLock() {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		report := func() *model.ScanReport {
			defer s.scanMu.Unlock()
			return s.Screener.Scan(s.Ctx, s.Watchlist)
		}()
		s.trySend(notifier.FormatScanReport(report))
	}()
	return true
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	cmd, arg := parseCommand(command)
	switch cmd {
	case "/stock", "查股":
		if arg == "" {
			return "請輸入股票代號，例如: /stock 2330"
		}
		return s.stockReply(ctx, arg)
	case "/scan", "掃描":
		if !s.startScan() {
			return "⏳ 掃描進行中，請稍後再試"
		}
		return fmt.Sprintf("⏳ 開始掃描 %d 檔，完成後傳送報告", len(s.Watchlist))
	case "/config", "參數":
		return notifier.FormatThresholds(s.Screener.Thresholds, s.Screener.SingleLookback, s.Screener.ScanLookback, s.Watchlist)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) stockReply(ctx context.Context, symbol string) string {
	report, err := s.Screener.Analyze(ctx, symbol)
	switch {
	case err == nil:
		return notifier.FormatStockReport(report, s.Screener.Thresholds)
	case errors.Is(err, collector.ErrNotFound):
		return notifier.FormatNoData(symbol)
	case errors.Is(err, strategy.ErrNotEnoughHistory) && report != nil:
		return notifier.FormatStockReport(report, s.Screener.Thresholds)
	default:
		log.Printf("[ERROR] analyze %s: %v", symbol, err)
		return notifier.FormatFetchError(symbol, err)
	}
}

// parseCommand splits "/stock@bot 2330" or "查股2330" into a command and its argument.
func parseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	for _, prefix := range []string{"查股", "掃描", "參數"} {
		if strings.HasPrefix(text, prefix) {
			return prefix, strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(text, prefix)))
		}
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", ""
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	arg := ""
	if len(fields) > 1 {
		arg = strings.ToUpper(fields[1])
	}
	return cmd, arg
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		log.Printf("[INFO] report (no notifier configured):\n%s", text)
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
