package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/spendwatch/spendwatch/internal/scoring"
)

func flaggedEvent(level scoring.RiskLevel, dept string, score float64) *Event {
	return &Event{
		Type:      EventAnomalyFlagged,
		Timestamp: time.Now(),
		Data: &FlaggedAnomaly{
			TransactionID: 1,
			Department:    dept,
			Score:         score,
			RiskLevel:     level,
		},
	}
}

func clientWith(sub Subscription) *Client {
	return &Client{send: make(chan []byte, 1), sub: sub}
}

func TestShouldSendAllEvents(t *testing.T) {
	h := NewHub(slog.Default())
	c := clientWith(Subscription{AllEvents: true})

	if !h.shouldSend(c, flaggedEvent(scoring.RiskLow, "IT", 0.1)) {
		t.Error("AllEvents subscription should receive everything")
	}
}

func TestShouldSendRiskLevelFilter(t *testing.T) {
	h := NewHub(slog.Default())
	c := clientWith(Subscription{RiskLevels: []scoring.RiskLevel{scoring.RiskHigh}})

	if !h.shouldSend(c, flaggedEvent(scoring.RiskHigh, "IT", 0.8)) {
		t.Error("HIGH event should pass HIGH filter")
	}
	if h.shouldSend(c, flaggedEvent(scoring.RiskMedium, "IT", 0.5)) {
		t.Error("MEDIUM event should not pass HIGH filter")
	}
}

func TestShouldSendDepartmentFilter(t *testing.T) {
	h := NewHub(slog.Default())
	c := clientWith(Subscription{Departments: []string{"Finance"}})

	if !h.shouldSend(c, flaggedEvent(scoring.RiskHigh, "Finance", 0.8)) {
		t.Error("Finance event should pass Finance filter")
	}
	if h.shouldSend(c, flaggedEvent(scoring.RiskHigh, "IT", 0.8)) {
		t.Error("IT event should not pass Finance filter")
	}
}

func TestShouldSendMinScore(t *testing.T) {
	h := NewHub(slog.Default())
	c := clientWith(Subscription{MinScore: 0.7})

	if h.shouldSend(c, flaggedEvent(scoring.RiskMedium, "IT", 0.5)) {
		t.Error("score below MinScore should be filtered")
	}
	if !h.shouldSend(c, flaggedEvent(scoring.RiskHigh, "IT", 0.7)) {
		t.Error("score at MinScore should pass")
	}
}

func TestShouldSendEventTypeFilter(t *testing.T) {
	h := NewHub(slog.Default())
	c := clientWith(Subscription{EventTypes: []EventType{EventAnalysisCompleted}})

	if h.shouldSend(c, flaggedEvent(scoring.RiskHigh, "IT", 0.9)) {
		t.Error("anomaly event should not pass analysis_completed filter")
	}
	if !h.shouldSend(c, &Event{Type: EventAnalysisCompleted, Data: map[string]any{"analyzed": 3}}) {
		t.Error("analysis_completed event should pass its own filter")
	}
}

func TestBroadcastReachesRegisteredClient(t *testing.T) {
	h := NewHub(slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := clientWith(Subscription{AllEvents: true})
	c.hub = h
	h.register <- c

	h.BroadcastAnomaly(&FlaggedAnomaly{TransactionID: 7, RiskLevel: scoring.RiskHigh, Score: 0.9})

	select {
	case msg := <-c.send:
		if len(msg) == 0 {
			t.Error("empty broadcast payload")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never delivered")
	}
}
