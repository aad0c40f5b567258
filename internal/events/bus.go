package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTradeOpened      EventType = "TRADE_OPENED"
	EventTradeClosed      EventType = "TRADE_CLOSED"
	EventRegimeChanged    EventType = "REGIME_CHANGED"
	EventRecommendation   EventType = "RECOMMENDATION"
	EventBacktestStarted  EventType = "BACKTEST_STARTED"
	EventBacktestFinished EventType = "BACKTEST_FINISHED"
	EventPriceUpdate      EventType = "PRICE_UPDATE"
	EventBotStarted       EventType = "BOT_STARTED"
	EventBotStopped       EventType = "BOT_STOPPED"
	EventError            EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Set timestamp if not provided
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Notify specific subscribers
	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	// Notify all-event subscribers
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishTradeOpened publishes a trade opened event
func (eb *EventBus) PublishTradeOpened(symbol, regime string, price, assetAmount, usdValue float64) {
	eb.Publish(Event{
		Type: EventTradeOpened,
		Data: map[string]interface{}{
			"symbol":       symbol,
			"regime":       regime,
			"price":        price,
			"asset_amount": assetAmount,
			"usd_value":    usdValue,
		},
	})
}

// PublishTradeClosed publishes a trade closed event
func (eb *EventBus) PublishTradeClosed(symbol, regime, reason string, entryPrice, exitPrice, pnl float64) {
	eb.Publish(Event{
		Type: EventTradeClosed,
		Data: map[string]interface{}{
			"symbol":      symbol,
			"regime":      regime,
			"reason":      reason,
			"entry_price": entryPrice,
			"exit_price":  exitPrice,
			"pnl":         pnl,
		},
	})
}

// PublishRegimeChanged publishes a strategy regime transition event
func (eb *EventBus) PublishRegimeChanged(from, to string, confidence float64) {
	eb.Publish(Event{
		Type: EventRegimeChanged,
		Data: map[string]interface{}{
			"from":       from,
			"to":         to,
			"confidence": confidence,
		},
	})
}

// PublishRecommendation publishes the outcome of a live decision tick
func (eb *EventBus) PublishRecommendation(symbol, regime, action, reason string, price, confidence float64) {
	eb.Publish(Event{
		Type: EventRecommendation,
		Data: map[string]interface{}{
			"symbol":     symbol,
			"regime":     regime,
			"action":     action,
			"reason":     reason,
			"price":      price,
			"confidence": confidence,
		},
	})
}

// PublishBacktestFinished publishes a backtest completion event
func (eb *EventBus) PublishBacktestFinished(runID string, totalReturn, sharpe, maxDrawdown float64, trades int) {
	eb.Publish(Event{
		Type: EventBacktestFinished,
		Data: map[string]interface{}{
			"run_id":       runID,
			"total_return": totalReturn,
			"sharpe":       sharpe,
			"max_drawdown": maxDrawdown,
			"trades":       trades,
		},
	})
}

// PublishPriceUpdate publishes a price update event
func (eb *EventBus) PublishPriceUpdate(symbol string, price float64) {
	eb.Publish(Event{
		Type: EventPriceUpdate,
		Data: map[string]interface{}{
			"symbol": symbol,
			"price":  price,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
