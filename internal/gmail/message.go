package gmail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message/mail"
	"google.golang.org/api/gmail/v1"

	"draftly/internal/model"
)

const defaultReplySubject = "Re: Email"

// ReplySubject prefixes subject with "Re: " unless it already has one.
func ReplySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return defaultReplySubject
	}
	if strings.HasPrefix(subject, "Re:") {
		return subject
	}
	return "Re: " + subject
}

// threadReference is the Message-ID form Gmail threads replies against.
func threadReference(messageID string) string {
	return messageID + "@mail.gmail.com"
}

// buildRawReply renders reply as an RFC 5322 message, base64url encoded
// the way the Gmail API expects in Message.Raw.
func buildRawReply(reply *model.OutgoingReply) (string, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.Set("To", reply.To)
	h.SetSubject(ReplySubject(reply.Subject))
	if reply.InReplyTo != "" {
		ref := []string{threadReference(reply.InReplyTo)}
		h.SetMsgIDList("In-Reply-To", ref)
		h.SetMsgIDList("References", ref)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "UTF-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return "", fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := io.WriteString(w, reply.Body); err != nil {
		return "", fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close message writer: %w", err)
	}

	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

func newReplyMessage(reply *model.OutgoingReply) (*gmail.Message, error) {
	raw, err := buildRawReply(reply)
	if err != nil {
		return nil, err
	}
	return &gmail.Message{Raw: raw, ThreadId: reply.ThreadID}, nil
}

func headerValue(payload *gmail.MessagePart, name string) string {
	if payload == nil {
		return ""
	}
	for _, header := range payload.Headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

func decodeBody(data string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return "", err
		}
	}
	return string(decoded), nil
}

// findPart returns the first part with mimeType in depth-first order.
func findPart(part *gmail.MessagePart, mimeType string) *gmail.MessagePart {
	if part == nil {
		return nil
	}
	if strings.HasPrefix(part.MimeType, mimeType) && part.Body != nil && part.Body.Data != "" {
		return part
	}
	for _, child := range part.Parts {
		if found := findPart(child, mimeType); found != nil {
			return found
		}
	}
	return nil
}

// extractBody prefers the first text/plain part and falls back to the
// first text/html part rendered as text.
func extractBody(payload *gmail.MessagePart) (string, error) {
	if part := findPart(payload, "text/plain"); part != nil {
		return decodeBody(part.Body.Data)
	}
	if part := findPart(payload, "text/html"); part != nil {
		html, err := decodeBody(part.Body.Data)
		if err != nil {
			return "", err
		}
		return htmlToText(html)
	}
	return "", nil
}

func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse html body: %w", err)
	}
	doc.Find("script, style, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n"), nil
}

func toMessageData(msg *gmail.Message) (*model.MessageData, error) {
	body, err := extractBody(msg.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode body of message %s: %w", msg.Id, err)
	}
	return &model.MessageData{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		From:     headerValue(msg.Payload, "From"),
		To:       headerValue(msg.Payload, "To"),
		Subject:  headerValue(msg.Payload, "Subject"),
		Body:     body,
	}, nil
}
