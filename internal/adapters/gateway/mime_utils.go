package gateway

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// maxMIMEDepth bounds recursion into nested multipart bodies
const maxMIMEDepth = 5

var wordDecoder = new(mime.WordDecoder)

// decodeEncodedHeader decodes RFC 2047 encoded words in a header value
func decodeEncodedHeader(value string) (string, error) {
	return wordDecoder.DecodeHeader(value)
}

// extractTextFromMessage returns the text/plain content of a message. For
// multipart messages every text/plain part is concatenated, recursing into
// nested multiparts; attachments are skipped.
func extractTextFromMessage(msg *mail.Message) (string, error) {
	text, err := extractText(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body, 0)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func extractText(contentType, encoding string, body io.Reader, depth int) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || contentType == "" {
		// Missing or broken Content-Type means plain text
		mediaType = "text/plain"
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		if mediaType != "text/plain" {
			return "", nil
		}
		data, err := io.ReadAll(decodeTransfer(encoding, body))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	boundary, ok := params["boundary"]
	if !ok || depth >= maxMIMEDepth {
		return "", nil
	}

	mr := multipart.NewReader(body, boundary)
	var textContent bytes.Buffer
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep whatever was readable before the broken part
			if textContent.Len() > 0 {
				return textContent.String(), nil
			}
			return "", err
		}

		partText, err := extractText(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part, depth+1)
		if err != nil {
			continue // Skip this part if we can't read it
		}
		if partText != "" {
			textContent.WriteString(partText)
			textContent.WriteString("\n")
		}
	}

	return textContent.String(), nil
}

// decodeTransfer undoes a Content-Transfer-Encoding. multipart.Reader
// already strips quoted-printable from parts, so only top level bodies
// ever hit that branch.
func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// mimeHeader encodes a header value as an RFC 2047 word when it is not ASCII
func mimeHeader(value string) string {
	return mime.QEncoding.Encode("utf-8", value)
}
