package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifyRecommendation NotificationType = "recommendation"
	NotifyRegimeChange   NotificationType = "regime_change"
	NotifyTradeClose     NotificationType = "trade_close"
	NotifyBacktest       NotificationType = "backtest"
	NotifyError          NotificationType = "error"
)

// Notification represents a notification message
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Symbol    string
	Regime    string
	Price     float64
	PnL       float64
	Timestamp time.Time
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager manages multiple notification providers
type Manager struct {
	notifiers []Notifier
	enabled   bool
}

// NewManager creates a new notification manager
func NewManager(enabled bool) *Manager {
	return &Manager{
		notifiers: make([]Notifier, 0),
		enabled:   enabled,
	}
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send sends a notification to all enabled providers
func (m *Manager) Send(notification *Notification) error {
	if !m.enabled {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			if err := n.Send(notification); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}

// SendRecommendation sends a daily trade recommendation notification
func (m *Manager) SendRecommendation(symbol, action, regime, reason string, price, confidence float64) error {
	emoji := "🟢"
	if action == "SELL" {
		emoji = "🔴"
	} else if action == "HOLD" {
		emoji = "⚪"
	}

	return m.Send(&Notification{
		Type:      NotifyRecommendation,
		Title:     fmt.Sprintf("%s %s: %s", emoji, action, symbol),
		Message:   fmt.Sprintf("%s %s @ %.4f\nRegime: %s | Confidence: %.0f%%\nReason: %s", action, symbol, price, regime, confidence*100, reason),
		Symbol:    symbol,
		Regime:    regime,
		Price:     price,
		Timestamp: time.Now(),
	})
}

// SendRegimeChange sends a strategy regime transition notification
func (m *Manager) SendRegimeChange(symbol, from, to string, confidence float64) error {
	return m.Send(&Notification{
		Type:      NotifyRegimeChange,
		Title:     fmt.Sprintf("🔄 Regime Change: %s", symbol),
		Message:   fmt.Sprintf("%s → %s\nConfidence: %.0f%%", from, to, confidence*100),
		Symbol:    symbol,
		Regime:    to,
		Timestamp: time.Now(),
	})
}

// SendTradeClose sends a trade closed notification
func (m *Manager) SendTradeClose(symbol, regime, reason string, entryPrice, exitPrice, pnl float64) error {
	emoji := "✅"
	if pnl < 0 {
		emoji = "❌"
	}

	return m.Send(&Notification{
		Type:      NotifyTradeClose,
		Title:     fmt.Sprintf("%s Trade Closed: %s", emoji, symbol),
		Message:   fmt.Sprintf("Entry: %.4f → Exit: %.4f\nP&L: %.2f\nRegime: %s\nReason: %s", entryPrice, exitPrice, pnl, regime, reason),
		Symbol:    symbol,
		Regime:    regime,
		Price:     exitPrice,
		PnL:       pnl,
		Timestamp: time.Now(),
	})
}

// SendBacktestResult sends a backtest summary notification
func (m *Manager) SendBacktestResult(symbol string, totalReturn, sharpe, maxDrawdown float64, trades int) error {
	return m.Send(&Notification{
		Type:      NotifyBacktest,
		Title:     fmt.Sprintf("📊 Backtest Complete: %s", symbol),
		Message:   fmt.Sprintf("Return: %.2f%%\nSharpe: %.2f | Max DD: %.2f%%\nTrades: %d", totalReturn*100, sharpe, maxDrawdown*100, trades),
		Symbol:    symbol,
		Timestamp: time.Now(),
	})
}

// SendError sends an error notification
func (m *Manager) SendError(title, message string) error {
	return m.Send(&Notification{
		Type:      NotifyError,
		Title:     fmt.Sprintf("⚠️ %s", title),
		Message:   message,
		Timestamp: time.Now(),
	})
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

// TelegramNotifier sends notifications via Telegram
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

// TelegramConfig holds Telegram configuration
type TelegramConfig struct {
	BotToken string
	ChatID   string
	Enabled  bool
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(config TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: config.BotToken,
		chatID:   config.ChatID,
		enabled:  config.Enabled && config.BotToken != "" && config.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string {
	return "telegram"
}

func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

func (t *TelegramNotifier) Send(notification *Notification) error {
	if !t.enabled {
		return nil
	}

	message := fmt.Sprintf("*%s*\n\n%s", notification.Title, notification.Message)

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       message,
		"parse_mode": "Markdown",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// =============================================================================
// DISCORD NOTIFIER
// =============================================================================

// DiscordNotifier sends notifications via Discord webhook
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// DiscordConfig holds Discord configuration
type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled && config.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string {
	return "discord"
}

func (d *DiscordNotifier) IsEnabled() bool {
	return d.enabled
}

func (d *DiscordNotifier) Send(notification *Notification) error {
	if !d.enabled {
		return nil
	}

	// Create Discord embed
	color := 0x00FF00 // Green
	if notification.Type == NotifyError {
		color = 0xFF0000 // Red
	} else if notification.Type == NotifyTradeClose && notification.PnL < 0 {
		color = 0xFF0000 // Red
	}

	embed := map[string]interface{}{
		"title":       notification.Title,
		"description": notification.Message,
		"color":       color,
		"timestamp":   notification.Timestamp.Format(time.RFC3339),
	}

	// Add fields if available
	if notification.Symbol != "" {
		fields := []map[string]interface{}{
			{"name": "Symbol", "value": notification.Symbol, "inline": true},
		}
		if notification.Regime != "" {
			fields = append(fields, map[string]interface{}{
				"name": "Regime", "value": notification.Regime, "inline": true,
			})
		}
		if notification.Price > 0 {
			fields = append(fields, map[string]interface{}{
				"name": "Price", "value": fmt.Sprintf("%.4f", notification.Price), "inline": true,
			})
		}
		embed["fields"] = fields
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{embed},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}

	return nil
}
