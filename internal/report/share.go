package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"bodycheck/internal/models"
)

// UnsupportedMessage is the notice shown when sharing is unavailable.
const UnsupportedMessage = "공유 기능을 지원하지 않습니다."

var ErrShareUnsupported = errors.New("share not supported")

// Content is the share payload for one report.
type Content struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url,omitempty"`
}

func ShareContent(r models.BodyReport) Content {
	return Content{
		Title: fmt.Sprintf("%s님의 뇌-신체 건강 리포트", r.UserInfo.Name),
		Text:  fmt.Sprintf("신체 나이 %s세, 종합 점수 %s점입니다.", formatNumber(r.PhysicalAge), formatNumber(r.OverallScore)),
	}
}

// Sharer delivers share content to a recipient.
type Sharer interface {
	Share(ctx context.Context, c Content, to string, html []byte) error
}

// Share sends the report through sharer. A nil sharer means the platform has
// no share capability.
func Share(ctx context.Context, sharer Sharer, v View, url, to string) (Content, error) {
	c := ShareContent(v.Report)
	c.URL = url
	if sharer == nil {
		return c, ErrShareUnsupported
	}
	var buf bytes.Buffer
	if err := Render(&buf, View{Report: v.Report}); err != nil {
		return c, fmt.Errorf("render report: %w", err)
	}
	if err := sharer.Share(ctx, c, to, buf.Bytes()); err != nil {
		return c, err
	}
	return c, nil
}

// EmailSharer shares reports by email through SendGrid.
type EmailSharer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewEmailSharer(apiKey, fromEmail string) *EmailSharer {
	return &EmailSharer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("브레인 트레이닝 센터", fromEmail),
	}
}

func (s *EmailSharer) Share(ctx context.Context, c Content, to string, html []byte) error {
	if to == "" {
		return errors.New("recipient email is required")
	}
	text := c.Text
	if c.URL != "" {
		text += "\n" + c.URL
	}
	message := mail.NewSingleEmail(s.from, c.Title, mail.NewEmail("", to), text, string(html))

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		log.Printf("Error sending report to %s: %v", to, err)
		return err
	}
	if response.StatusCode >= 400 {
		log.Printf("SendGrid API Error: Status Code %d, Body: %s", response.StatusCode, response.Body)
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}
	log.Printf("Report sent to %s. Status Code: %d", to, response.StatusCode)
	return nil
}
