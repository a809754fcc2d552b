package gmail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// buildMessage assembles a multipart/mixed RFC 2822 message with a plain
// text body and one base64-encoded attachment, already base64url-encoded
// for the Gmail API's Raw field.
func buildMessage(to, subject, body, filename string, attachment []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	var msg strings.Builder
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("From: me\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: multipart/mixed; boundary=\"" + mw.Boundary() + "\"\r\n")
	msg.WriteString("\r\n")

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", `text/plain; charset="UTF-8"`)
	textPart, err := mw.CreatePart(textHeader)
	if err != nil {
		return "", fmt.Errorf("creating text part: %w", err)
	}
	if _, err := textPart.Write([]byte(body)); err != nil {
		return "", fmt.Errorf("writing text part: %w", err)
	}

	attHeader := textproto.MIMEHeader{}
	attHeader.Set("Content-Type", "application/octet-stream")
	attHeader.Set("Content-Transfer-Encoding", "base64")
	attHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	attPart, err := mw.CreatePart(attHeader)
	if err != nil {
		return "", fmt.Errorf("creating attachment part: %w", err)
	}
	if _, err := attPart.Write(wrapBase64(attachment)); err != nil {
		return "", fmt.Errorf("writing attachment part: %w", err)
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finishing multipart body: %w", err)
	}

	msg.Write(buf.Bytes())
	return urlSafeEncode([]byte(msg.String())), nil
}

// wrapBase64 encodes data as standard base64 broken into 76-character lines
// per RFC 2045.
func wrapBase64(data []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(data)

	const lineLen = 76
	var out bytes.Buffer
	for len(encoded) > lineLen {
		out.WriteString(encoded[:lineLen])
		out.WriteString("\r\n")
		encoded = encoded[lineLen:]
	}
	out.WriteString(encoded)
	return out.Bytes()
}
