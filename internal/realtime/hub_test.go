package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

func decisionEvent(de *DecisionEvent) *Event {
	return &Event{Type: EventDecision, Timestamp: time.Now(), Data: de}
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	event := decisionEvent(&DecisionEvent{UserID: "user_001"})
	if !h.shouldSend(client, event) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventDecision},
	}}

	if !h.shouldSend(client, decisionEvent(&DecisionEvent{})) {
		t.Error("Should receive decision events")
	}
	if h.shouldSend(client, &Event{Type: EventPolicyUpdated}) {
		t.Error("Should NOT receive policy events")
	}
}

func TestShouldSend_UserFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		UserIDs: []string{"user_001"},
	}}

	if !h.shouldSend(client, decisionEvent(&DecisionEvent{UserID: "user_001"})) {
		t.Error("Should match watched user")
	}
	if h.shouldSend(client, decisionEvent(&DecisionEvent{UserID: "user_999"})) {
		t.Error("Should NOT match other users")
	}
}

func TestShouldSend_DecisionFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		Decisions: []string{"DECLINED"},
	}}

	if !h.shouldSend(client, decisionEvent(&DecisionEvent{Decision: "DECLINED"})) {
		t.Error("Should receive declined decisions")
	}
	if h.shouldSend(client, decisionEvent(&DecisionEvent{Decision: "APPROVED"})) {
		t.Error("Should NOT receive approved decisions")
	}
}

func TestShouldSend_MinAmountFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		MinAmount: 1000.0,
	}}

	if !h.shouldSend(client, decisionEvent(&DecisionEvent{Amount: 5000})) {
		t.Error("Should receive large decision")
	}
	if h.shouldSend(client, decisionEvent(&DecisionEvent{Amount: 500})) {
		t.Error("Should NOT receive small decision")
	}
	// MinAmount only applies to decision payloads.
	if !h.shouldSend(client, &Event{Type: EventPolicyUpdated, Data: "thresholds"}) {
		t.Error("MinAmount filter should only apply to decisions")
	}
}

func TestShouldSend_EmptySubscription(t *testing.T) {
	h := testHub()

	// No filters, not AllEvents
	client := &Client{sub: Subscription{}}

	if !h.shouldSend(client, decisionEvent(&DecisionEvent{})) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

func TestShouldSend_NonDecisionData(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		UserIDs: []string{"user_001"},
	}}

	// User filter skips non-decision payloads, so the event passes through.
	event := &Event{Type: EventPolicyUpdated, Data: "string data"}
	if !h.shouldSend(client, event) {
		t.Error("Non-decision data should pass through the user filter")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalEvents"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["totalEvents"])
	}
}

func TestHub_BroadcastAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	h.BroadcastDecision(&DecisionEvent{TransactionID: "abc", Decision: "APPROVED"})
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["totalEvents"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["totalEvents"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connectedClients"])
	}
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak 1, got %v", stats["peakClients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connectedClients"])
	}
	// Peak should still be 1
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak still 1, got %v", stats["peakClients"])
	}
}

func TestHub_BroadcastToClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.BroadcastDecision(&DecisionEvent{
		TransactionID: "abc123",
		UserID:        "user_001",
		Amount:        5000,
		Decision:      "DECLINED",
		RiskScore:     85,
		RiskLevel:     "FRAUD_DETECTED",
		Scenario:      "fraud_ring",
	})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for broadcast")
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only wants policy updates
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{EventTypes: []EventType{EventPolicyUpdated}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	// Send a decision event (should be filtered out)
	h.BroadcastDecision(&DecisionEvent{Decision: "APPROVED"})
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive decision event")
	default:
		// Good - filtered out
	}

	// Send a policy event (should be received)
	h.BroadcastPolicyUpdate(map[string]float64{"review_cutoff": 40, "block_cutoff": 60})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive policy event")
	}
}
