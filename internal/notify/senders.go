package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"time"
)

// The concrete senders are thin: each wraps one provider API behind the
// Sender contract and reports failure as a plain error for the
// dispatcher to log.

type apiSender struct {
	client *http.Client
	url    string
	token  string
}

func newAPIClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func (s *apiSender) Send(ctx context.Context, target, payload string) error {
	body, _ := json.Marshal(map[string]string{"to": target, "message": payload})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("send to %s: status %d", s.url, resp.StatusCode)
	}
	return nil
}

// NewSMSSender talks to an HTTP SMS gateway.
func NewSMSSender(url, token string) Sender {
	return &apiSender{client: newAPIClient(), url: url, token: token}
}

// NewChatSender posts to a chat-bot webhook (target is the chat id).
func NewChatSender(webhook string) Sender {
	return &apiSender{client: newAPIClient(), url: webhook}
}

type pushSender struct {
	client   *http.Client
	endpoint string
	key      string
}

// NewPushSender posts to the push endpoint. A 404 or 410 response means
// the subscription no longer exists and maps to ErrSubscriptionGone so
// the dispatcher can drop the stored record.
func NewPushSender(endpoint, key string) Sender {
	return &pushSender{client: newAPIClient(), endpoint: endpoint, key: key}
}

func (s *pushSender) Send(ctx context.Context, target, payload string) error {
	body, _ := json.Marshal(map[string]string{"subscription": target, "message": payload})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.key)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= 300:
		return fmt.Errorf("push send: status %d", resp.StatusCode)
	}
	return nil
}

type smtpSender struct {
	addr string
	from string
}

// NewEmailSender sends through a plain SMTP relay.
func NewEmailSender(addr, from string) Sender {
	return &smtpSender{addr: addr, from: from}
}

func (s *smtpSender) Send(ctx context.Context, target, payload string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Your order\r\n\r\n%s\r\n", s.from, target, payload)
	return smtp.SendMail(s.addr, nil, s.from, []string{target}, []byte(msg))
}
