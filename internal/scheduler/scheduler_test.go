package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ChipSentinel/internal/collector"
	"ChipSentinel/internal/model"
	"ChipSentinel/internal/screener"
	"ChipSentinel/internal/strategy"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return f.err
}

var testNow = time.Date(2024, 3, 29, 15, 0, 0, 0, model.MarketLocation)

func newTestScheduler(mock *collector.MockFetcher, sender Sender) *Scheduler {
	col := collector.NewCollector(mock, nil, time.Hour, nil)
	col.Now = func() time.Time { return testNow }
	scr := screener.New(col, strategy.DefaultThresholds(), nil)
	return NewScheduler(context.Background(), scr, sender, []string{"2330", "2317"})
}

func streakMock() *collector.MockFetcher {
	bars := collector.GenerateBars(70, testNow, 100)
	n := len(bars)
	return &collector.MockFetcher{
		Bars: map[string][]model.DailyBar{
			"2330": bars,
			"0050": collector.GenerateBars(10, testNow, 100),
		},
		Flow: map[string]map[string]model.FlowRecord{
			"2330": {
				bars[n-2].Day(): {Buy: 5000},
				bars[n-1].Day(): {Buy: 5000},
			},
		},
		Errors: map[string]error{"2317": errors.New("upstream timeout")},
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in, cmd, arg string
	}{
		{"/stock 2330", "/stock", "2330"},
		{"/Stock@ChipBot 2330", "/stock", "2330"},
		{"查股 2330", "查股", "2330"},
		{"查股2330", "查股", "2330"},
		{"  /scan  ", "/scan", ""},
		{"掃描", "掃描", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		cmd, arg := parseCommand(tt.in)
		if cmd != tt.cmd || arg != tt.arg {
			t.Errorf("parseCommand(%q) = (%q, %q), want (%q, %q)", tt.in, cmd, arg, tt.cmd, tt.arg)
		}
	}
}

func TestHandleCommand_Stock(t *testing.T) {
	s := newTestScheduler(streakMock(), nil)
	ctx := context.Background()

	if reply := s.HandleCommand(ctx, "/stock 2330"); !strings.Contains(reply, "籌碼分析") || !strings.Contains(reply, "判定") {
		t.Errorf("expected stock report, got:\n%s", reply)
	}
	if reply := s.HandleCommand(ctx, "查股 9999"); !strings.Contains(reply, "查無") {
		t.Errorf("expected no-data reply, got:\n%s", reply)
	}
	if reply := s.HandleCommand(ctx, "/stock 2317"); !strings.Contains(reply, "資料取得失敗") {
		t.Errorf("expected fetch error reply, got:\n%s", reply)
	}
	if reply := s.HandleCommand(ctx, "/stock 0050"); !strings.Contains(reply, "資料不足") {
		t.Errorf("expected insufficient-data reply, got:\n%s", reply)
	}
	if reply := s.HandleCommand(ctx, "/stock"); !strings.Contains(reply, "請輸入股票代號") {
		t.Errorf("expected usage reply, got:\n%s", reply)
	}
}

func TestHandleCommand_ScanConfigHelp(t *testing.T) {
	sender := &fakeSender{}
	s := newTestScheduler(streakMock(), sender)
	ctx := context.Background()

	if reply := s.HandleCommand(ctx, "/scan"); !strings.Contains(reply, "開始掃描 2 檔") {
		t.Errorf("expected scan acknowledgement, got:\n%s", reply)
	}
	s.Stop()
	if len(sender.sent) != 1 {
		t.Fatalf("expected one scan report sent, got %v", sender.sent)
	}
	if report := sender.sent[0]; !strings.Contains(report, "<b>2330</b>") || !strings.Contains(report, "2317(取得失敗)") {
		t.Errorf("expected scan report with hit and skip, got:\n%s", report)
	}
	if reply := s.HandleCommand(ctx, "參數"); !strings.Contains(reply, "投信連買天數: 2") {
		t.Errorf("expected thresholds, got:\n%s", reply)
	}
	if reply := s.HandleCommand(ctx, "hello"); !strings.Contains(reply, "/stock") {
		t.Errorf("expected help, got:\n%s", reply)
	}
}

func TestRunScanNow_Sends(t *testing.T) {
	sender := &fakeSender{}
	s := newTestScheduler(streakMock(), sender)
	s.RunScanNow()

	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0], "投信連買掃描") {
		t.Errorf("expected one scan report sent, got %v", sender.sent)
	}
}

// blockingSource holds every Collect until release is closed.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSource) Collect(ctx context.Context, symbol string, _ int) (*model.Series, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return nil, collector.ErrNotFound
}

func TestHandleCommand_ScanDoesNotBlockCommands(t *testing.T) {
	sender := &fakeSender{}
	s := newTestScheduler(streakMock(), sender)
	src := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	s.Screener.Source = src
	ctx := context.Background()

	if reply := s.HandleCommand(ctx, "/scan"); !strings.Contains(reply, "開始掃描") {
		t.Fatalf("expected scan acknowledgement, got:\n%s", reply)
	}
	<-src.started
	if reply := s.HandleCommand(ctx, "/config"); !strings.Contains(reply, "投信連買天數") {
		t.Errorf("expected thresholds while scanning, got:\n%s", reply)
	}
	if reply := s.HandleCommand(ctx, "掃描"); !strings.Contains(reply, "掃描進行中") {
		t.Errorf("expected busy reply while scanning, got:\n%s", reply)
	}

	close(src.release)
	s.Stop()
	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0], "投信連買掃描") {
		t.Errorf("expected one scan report after Stop, got %v", sender.sent)
	}
}

func TestRunScanAsync_StopWaits(t *testing.T) {
	sender := &fakeSender{}
	s := newTestScheduler(streakMock(), sender)
	s.RunScanAsync()
	s.Stop()

	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0], "<b>2330</b>") {
		t.Errorf("expected scan report sent before Stop returned, got %v", sender.sent)
	}
}

func TestScan_NoOverlap(t *testing.T) {
	s := newTestScheduler(streakMock(), nil)
	s.scanMu.Lock()
	if reply := s.HandleCommand(context.Background(), "/scan"); !strings.Contains(reply, "掃描進行中") {
		t.Errorf("expected busy reply, got:\n%s", reply)
	}
	s.scanMu.Unlock()
}

func TestRegisterAll(t *testing.T) {
	s := newTestScheduler(streakMock(), nil)
	if err := s.RegisterAll(""); err != nil {
		t.Fatalf("default cron rejected: %v", err)
	}
	if len(s.Cron.Entries()) != 1 {
		t.Errorf("expected 1 entry, got %d", len(s.Cron.Entries()))
	}
	if err := s.RegisterAll("not a cron"); err == nil {
		t.Error("expected error for invalid cron")
	}
}
