package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const apiBase = "https://api.telegram.org"

// Client provides the Telegram Bot API primitives used by the backend:
// chat-member probes and message/media delivery.
type Client struct {
	httpClient *http.Client
	token      string
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      token,
	}
}

// ChatMember holds the membership status of a user in a chat.
type ChatMember struct {
	Status string `json:"status"`
}

type apiResponse struct {
	Ok          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  *responseParams `json:"parameters,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

type responseParams struct {
	RetryAfter int `json:"retry_after"`
}

// InlineKeyboardButton is a single URL button.
type InlineKeyboardButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// InlineKeyboardMarkup is the inline keyboard attached to a message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// GetChatMember returns the membership status of userID in the chat identified
// by chatRef (numeric id as string or @username).
func (c *Client) GetChatMember(ctx context.Context, chatRef string, userID int64) (string, error) {
	params := url.Values{
		"chat_id": {chatRef},
		"user_id": {fmt.Sprintf("%d", userID)},
	}

	var member ChatMember
	if err := c.call(ctx, "getChatMember", params, &member); err != nil {
		return "", err
	}
	return member.Status, nil
}

// SendMessage delivers a text message with an optional inline keyboard.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) error {
	params := url.Values{
		"chat_id":                  {fmt.Sprintf("%d", chatID)},
		"text":                     {text},
		"parse_mode":               {"HTML"},
		"disable_web_page_preview": {"true"},
	}
	if err := encodeMarkup(params, markup); err != nil {
		return err
	}
	return c.call(ctx, "sendMessage", params, nil)
}

// SendPhoto uploads a local photo file with an optional caption and keyboard.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, filePath, caption string, markup *InlineKeyboardMarkup) error {
	return c.sendMedia(ctx, "sendPhoto", "photo", chatID, filePath, caption, markup)
}

// SendVideo uploads a local video file with an optional caption and keyboard.
func (c *Client) SendVideo(ctx context.Context, chatID int64, filePath, caption string, markup *InlineKeyboardMarkup) error {
	return c.sendMedia(ctx, "sendVideo", "video", chatID, filePath, caption, markup)
}

// SendAnimation uploads a local animation (gif) with an optional caption and keyboard.
func (c *Client) SendAnimation(ctx context.Context, chatID int64, filePath, caption string, markup *InlineKeyboardMarkup) error {
	return c.sendMedia(ctx, "sendAnimation", "animation", chatID, filePath, caption, markup)
}

func (c *Client) sendMedia(ctx context.Context, method, field string, chatID int64, filePath, caption string, markup *InlineKeyboardMarkup) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open media file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	_ = writer.WriteField("chat_id", fmt.Sprintf("%d", chatID))
	_ = writer.WriteField("parse_mode", "HTML")
	if caption != "" {
		_ = writer.WriteField("caption", caption)
	}
	if markup != nil {
		data, err := json.Marshal(markup)
		if err != nil {
			return fmt.Errorf("marshal reply markup: %w", err)
		}
		_ = writer.WriteField("reply_markup", string(data))
	}

	part, err := writer.CreateFormFile(field, filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy media file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", apiBase, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req, nil)
}

func encodeMarkup(params url.Values, markup *InlineKeyboardMarkup) error {
	if markup == nil {
		return nil
	}
	data, err := json.Marshal(markup)
	if err != nil {
		return fmt.Errorf("marshal reply markup: %w", err)
	}
	params.Set("reply_markup", string(data))
	return nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", apiBase, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("decode telegram response: %w", err)
	}

	if !apiResp.Ok {
		retryAfter := 0
		if apiResp.Parameters != nil {
			retryAfter = apiResp.Parameters.RetryAfter
		}
		return classify(apiResp.ErrorCode, apiResp.Description, retryAfter)
	}

	if out != nil && len(apiResp.Result) > 0 {
		if err := json.Unmarshal(apiResp.Result, out); err != nil {
			return fmt.Errorf("decode telegram result: %w", err)
		}
	}
	return nil
}
