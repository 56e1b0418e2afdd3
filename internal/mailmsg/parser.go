package mailmsg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	stdmail "net/mail"
	"strings"
	"time"

	gomessage "github.com/emersion/go-message"
	gomail "github.com/emersion/go-message/mail"
	htmlcharset "golang.org/x/net/html/charset"
)

func init() {
	gomessage.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return htmlcharset.NewReaderLabel(charset, input)
	}
}

const defaultBodyLimit = 512 * 1024
const defaultAttachmentLimit = 25 * 1024 * 1024

var headerDecoder = &mime.WordDecoder{}

// Parse builds a Message from a raw RFC822 payload, preferring
// go-message's structured mail reader and falling back to net/mail when
// the message does not parse as well-formed MIME.
func Parse(uid uint32, raw []byte) (*Message, error) {
	if len(raw) == 0 {
		return nil, errors.New("mailmsg: empty message")
	}
	msg := &Message{UID: uid, Raw: raw, ParsedFields: map[string]string{}}

	reader, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return legacyParse(msg)
	}

	msg.Header = collectHeaders(&reader.Header)
	msg.Subject = subjectFromHeader(&reader.Header)
	msg.From = addressFromHeader(&reader.Header)
	msg.FromDomain = domainFromAddress(msg.From)
	msg.ContentType, msg.Charset = contentTypeFromHeader(&reader.Header)
	msg.MessageID = normalizeMessageID(reader.Header.Get("Message-Id"))
	refs := reader.Header.Values("References")
	if inReply := reader.Header.Get("In-Reply-To"); inReply != "" {
		refs = append(refs, inReply)
	}
	msg.ReferenceIDs = uniqueMessageIDs(refs...)

	body, htmlBody, attachments, readErr := readBodyParts(reader)
	if readErr != nil && body == "" && htmlBody == "" {
		return legacyParse(msg)
	}
	msg.Body = body
	msg.HTMLBody = htmlBody
	msg.Attachments = attachments

	if msg.Body == "" && msg.HTMLBody == "" {
		return legacyParse(msg)
	}
	return msg, nil
}

func legacyParse(msg *Message) (*Message, error) {
	reader, err := stdmail.ReadMessage(bytes.NewReader(msg.Raw))
	if err != nil {
		msg.Body = fallbackBody(msg.Raw)
		return msg, nil
	}
	if msg.Header == nil {
		msg.Header = map[string][]string{}
		for k := range reader.Header {
			msg.Header[k] = reader.Header[k]
		}
	}
	if msg.Subject == "" {
		msg.Subject = decodeHeader(reader.Header.Get("Subject"))
	}
	if msg.From == "" {
		msg.From = parseAddress(reader.Header.Get("From"))
		msg.FromDomain = domainFromAddress(msg.From)
	}
	if msg.ContentType == "" {
		msg.ContentType, msg.Charset = parseContentType(reader.Header.Get("Content-Type"))
	}
	if msg.MessageID == "" {
		msg.MessageID = normalizeMessageID(reader.Header.Get("Message-Id"))
	}
	if len(msg.ReferenceIDs) == 0 {
		msg.ReferenceIDs = uniqueMessageIDs(reader.Header.Get("References"), reader.Header.Get("In-Reply-To"))
	}
	if msg.Body == "" && msg.HTMLBody == "" {
		body, readErr := io.ReadAll(io.LimitReader(reader.Body, defaultBodyLimit))
		if readErr != nil {
			msg.Body = fallbackBody(msg.Raw)
		} else {
			msg.Body = string(body)
		}
	}
	return msg, nil
}

func collectHeaders(h *gomail.Header) map[string][]string {
	out := map[string][]string{}
	fields := h.Fields()
	for fields.Next() {
		out[fields.Key()] = append(out[fields.Key()], fields.Value())
	}
	return out
}

func subjectFromHeader(h *gomail.Header) string {
	if subject, err := h.Subject(); err == nil {
		return subject
	}
	return decodeHeader(h.Get("Subject"))
}

func addressFromHeader(h *gomail.Header) string {
	if list, err := h.AddressList("From"); err == nil && len(list) > 0 {
		return strings.TrimSpace(list[0].Address)
	}
	return parseAddress(h.Get("From"))
}

func contentTypeFromHeader(h *gomail.Header) (string, string) {
	if mediaType, params, err := h.ContentType(); err == nil {
		return strings.ToLower(mediaType), strings.ToLower(strings.TrimSpace(params["charset"]))
	}
	return parseContentType(h.Get("Content-Type"))
}

func readBodyParts(reader *gomail.Reader) (plain, html string, attachments []Attachment, err error) {
	for {
		part, perr := reader.NextPart()
		if errors.Is(perr, io.EOF) {
			break
		}
		if perr != nil {
			err = perr
			break
		}
		switch header := part.Header.(type) {
		case *gomail.InlineHeader:
			body, mimeType := extractInlineBody(part, header)
			switch {
			case strings.HasPrefix(mimeType, "text/plain") && plain == "":
				plain = body
			case strings.HasPrefix(mimeType, "text/html") && html == "":
				html = body
			}
		case *gomail.AttachmentHeader:
			if att := extractAttachment(part, header); att != nil {
				attachments = append(attachments, *att)
			}
		}
	}
	return plain, html, attachments, err
}

func extractInlineBody(part *gomail.Part, header *gomail.InlineHeader) (string, string) {
	mimeType, params, ctErr := header.ContentType()
	if ctErr != nil {
		mimeType, _ = parseContentType(header.Get("Content-Type"))
	}
	_ = params
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" {
		mimeType = "text/plain"
	}
	data, err := io.ReadAll(io.LimitReader(part.Body, defaultBodyLimit))
	if err != nil {
		return "", ""
	}
	return string(data), mimeType
}

func extractAttachment(part *gomail.Part, header *gomail.AttachmentHeader) *Attachment {
	filename, err := header.Filename()
	if err != nil || strings.TrimSpace(filename) == "" {
		filename = fmt.Sprintf("attachment-%d.bin", time.Now().UnixNano())
	}
	mimeType, _, ctErr := header.ContentType()
	if ctErr != nil || strings.TrimSpace(mimeType) == "" {
		mimeType, _ = parseContentType(header.Get("Content-Type"))
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	data, err := io.ReadAll(io.LimitReader(part.Body, defaultAttachmentLimit))
	if err != nil || len(data) == 0 {
		return nil
	}
	return &Attachment{Filename: filename, ContentType: mimeType, Data: data}
}

func decodeHeader(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if decoded, err := headerDecoder.DecodeHeader(value); err == nil {
		return decoded
	}
	return value
}

func parseAddress(value string) string {
	value = decodeHeader(value)
	if value == "" {
		return ""
	}
	if addrs, err := stdmail.ParseAddressList(value); err == nil && len(addrs) > 0 {
		return strings.TrimSpace(addrs[0].Address)
	}
	if addr, err := stdmail.ParseAddress(value); err == nil {
		return strings.TrimSpace(addr.Address)
	}
	return strings.TrimSpace(value)
}

func domainFromAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if at := strings.LastIndex(addr, "@"); at >= 0 && at < len(addr)-1 {
		return strings.ToLower(strings.TrimSpace(addr[at+1:]))
	}
	return ""
}

func parseContentType(value string) (string, string) {
	if value == "" {
		return "text/plain", ""
	}
	mediaType, params, err := mime.ParseMediaType(value)
	if err != nil {
		return "text/plain", ""
	}
	return strings.ToLower(mediaType), strings.ToLower(strings.TrimSpace(params["charset"]))
}

func fallbackBody(raw []byte) string {
	if idx := bytes.Index(raw, []byte("\r\n\r\n")); idx >= 0 {
		return string(raw[idx+4:])
	}
	if idx := bytes.Index(raw, []byte("\n\n")); idx >= 0 {
		return string(raw[idx+2:])
	}
	return string(raw)
}

func normalizeMessageID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(value, "<") {
		value = "<" + value
	}
	if !strings.HasSuffix(value, ">") {
		value += ">"
	}
	return value
}

func uniqueMessageIDs(values ...string) []string {
	seen := map[string]bool{}
	var out []string
	for _, raw := range values {
		for _, id := range parseMessageIDs(raw) {
			norm := normalizeMessageID(id)
			if norm == "" || seen[norm] {
				continue
			}
			seen[norm] = true
			out = append(out, norm)
		}
	}
	return out
}

func parseMessageIDs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var ids []string
	var cur strings.Builder
	inside := false
	for _, r := range raw {
		switch {
		case r == '<':
			inside = true
			cur.Reset()
		case r == '>':
			if inside {
				ids = append(ids, cur.String())
			}
			inside = false
		case inside:
			cur.WriteRune(r)
		}
	}
	return ids
}
