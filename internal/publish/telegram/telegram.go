// Package telegram posts the progress image to a Telegram chat or channel and
// doubles as the operator chat sink for error logs.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	tele "gopkg.in/telebot.v4"

	"termbot/internal/publish"
	"termbot/internal/task/engine"
)

var ErrMissingToken = errors.New("telegram bot token is empty")

type Options struct {
	// APIURL overrides the Bot API base URL (tests, local bot API servers).
	APIURL  string
	Timeout time.Duration
}

// Session sends to a single chat. It implements publish.Session.
type Session struct {
	bot    *tele.Bot
	client *http.Client
	chat   tele.ChatID
}

var _ publish.Session = (*Session)(nil)

// Authenticate prepares a bot client for chatID without calling getMe.
func Authenticate(token string, chatID int64, opt Options) (*Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id is required")
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: opt.Timeout}
	b, err := tele.NewBot(tele.Settings{
		URL:     opt.APIURL,
		Token:   token,
		Client:  client,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &Session{bot: b, client: client, chat: tele.ChatID(chatID)}, nil
}

// Upload keeps the bytes; Telegram receives them with the post itself.
func (s *Session) Upload(ctx context.Context, image []byte) (publish.Media, error) {
	if err := ctx.Err(); err != nil {
		return publish.Media{}, err
	}
	if len(image) == 0 {
		return publish.Media{}, engine.NoRetry(errors.New("telegram upload: empty image"))
	}
	return publish.Media{Data: image}, nil
}

func (s *Session) Post(ctx context.Context, text string, m publish.Media) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(m.Data) > 0 {
		return classify("send photo", s.sendPhoto(ctx, m.Data, text))
	}
	_, err := s.bot.Send(s.chat, text)
	return classify("send", err)
}

// photoName is the upload filename. telebot leaves it empty for photos, and
// a part without a filename is read as a plain form value, not a file.
const photoName = "progress.png"

func (s *Session) sendPhoto(ctx context.Context, image []byte, caption string) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("chat_id", s.chat.Recipient()); err != nil {
		return err
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return err
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename=%q`, photoName))
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(image); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	endpoint := strings.TrimRight(s.bot.URL, "/") + "/bot" + s.bot.Token + "/sendPhoto"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return errors.New("build request failed")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		// url.Error carries the endpoint, and with it the token.
		var ue *url.Error
		if errors.As(err, &ue) {
			return ue.Err
		}
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if gjson.GetBytes(b, "ok").Bool() {
		return nil
	}
	code := int(gjson.GetBytes(b, "error_code").Int())
	if code == 0 {
		code = resp.StatusCode
	}
	desc := gjson.GetBytes(b, "description").String()
	if desc == "" {
		desc = http.StatusText(resp.StatusCode)
	}
	return &tele.Error{Code: code, Description: desc}
}

// SendText delivers a plain message. It satisfies logx.Sender.
func (s *Session) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.bot.Send(s.chat, text, &tele.SendOptions{DisableWebPagePreview: true})
	return classify("send text", err)
}

// classify marks request and permission errors as permanent.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("telegram %s: %w", op, err)
	switch errorCode(err) {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return engine.NoRetry(wrapped)
	}
	return wrapped
}

// reCode matches the "(403)" suffix telebot uses for API errors it has no constant for.
var reCode = regexp.MustCompile(`\((\d{3})\)$`)

func errorCode(err error) int {
	var te *tele.Error
	if errors.As(err, &te) {
		return te.Code
	}
	if m := reCode.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}
