package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/supportdesk/topup-api/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification carries what the dispatcher needs to announce a new
// ticket or payment request.
type Notification struct {
	TicketID uint   `json:"ticket_id"`
	Subject  string `json:"subject"`
	Amount   string `json:"amount"`
	UserName string `json:"user_name"`
}

// Sender is the capability handlers depend on. Send is best-effort:
// implementations report errors so the HTTP surface can surface them,
// but business handlers call SendAsync and never see a failure.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// NoopSender ignores every notification. Used in tests and when no
// credentials are configured.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, n Notification) error {
	return nil
}

// ErrNotConfigured is returned when Telegram credentials are missing.
var ErrNotConfigured = fmt.Errorf("telegram credentials not configured")

// TelegramSender posts new-ticket announcements to a Telegram chat via
// the Bot API. Every attempt is recorded in notification_logs.
type TelegramSender struct {
	botToken string
	chatID   string
	apiURL   string
	client   *http.Client
	db       *gorm.DB
}

// NewTelegramSender creates a sender. db may be nil, in which case
// attempts are not logged.
func NewTelegramSender(apiURL, botToken, chatID string, db *gorm.DB) *TelegramSender {
	return &TelegramSender{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   apiURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		db:       db,
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Send formats and posts the announcement. Returns an error on missing
// credentials, transport failure or a non-ok Telegram reply.
func (s *TelegramSender) Send(ctx context.Context, n Notification) error {
	if s.botToken == "" || s.chatID == "" {
		s.logAttempt(n, model.NotificationStatusSkipped, ErrNotConfigured.Error())
		return ErrNotConfigured
	}

	text := fmt.Sprintf(
		"🔔 <b>Новая заявка #%d</b>\n\n📝 <b>Тема:</b> %s\n👤 <b>Клиент:</b> %s\n💰 <b>Сумма:</b> %s ₽\n\n⏰ Требует внимания!",
		n.TicketID, n.Subject, n.UserName, n.Amount,
	)

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    s.chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logAttempt(n, model.NotificationStatusFailed, err.Error())
		return err
	}
	defer resp.Body.Close()

	var result sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		s.logAttempt(n, model.NotificationStatusFailed, err.Error())
		return err
	}
	if !result.OK {
		err := fmt.Errorf("telegram API error: %s", result.Description)
		s.logAttempt(n, model.NotificationStatusFailed, err.Error())
		return err
	}

	s.logAttempt(n, model.NotificationStatusSent, "")
	return nil
}

func (s *TelegramSender) logAttempt(n Notification, status, errMsg string) {
	if s.db == nil {
		return
	}
	payload, _ := json.Marshal(n)
	entry := model.NotificationLog{
		TicketID: n.TicketID,
		Status:   status,
		Error:    errMsg,
		Payload:  datatypes.JSON(payload),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("notify: failed to record attempt: %v", err)
	}
}

// SendAsync fires a notification in the background with a short timeout
// and swallows the result. The creating request proceeds as if the
// notification succeeded.
func SendAsync(sender Sender, n Notification) {
	if sender == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sender.Send(ctx, n); err != nil {
			log.Printf("notify: dispatch for ticket #%d failed: %v", n.TicketID, err)
		}
	}()
}
