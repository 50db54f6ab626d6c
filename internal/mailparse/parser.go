package mailparse

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"

	"mailroute/backend/internal/domain"
)

// ParsedEmail 表示入站邮件解析归一化后的结果。
type ParsedEmail struct {
	Sender      string
	SenderName  string
	Recipient   string
	Subject     string
	Text        string
	HTML        string
	Attachments []*domain.Attachment
	Degraded    bool // MIME 解析失败，原始内容整体降级进 Text
}

// Parse 解析原始邮件内容并结合传输侧提示归一化。
//
// 解析失败不向上传播：完全无法解析时返回降级记录，
// 结构化字段为空、原始内容复制到 Text。
func Parse(raw []byte, senderHint, recipientHint string) *ParsedEmail {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		sender := ExtractSenderAddress(senderHint)
		return &ParsedEmail{
			Sender:      sender,
			SenderName:  ExtractSenderName(senderHint, sender),
			Recipient:   domain.NormalizeAddress(recipientHint),
			Subject:     CleanSubject(""),
			Text:        string(raw),
			Attachments: make([]*domain.Attachment, 0),
			Degraded:    true,
		}
	}

	fromRaw := decodeHeader(msg.Header.Get("From"))
	if fromRaw == "" {
		fromRaw = senderHint
	}

	recipient := recipientHint
	if recipient == "" {
		recipient = msg.Header.Get("To")
	}

	sender := ExtractSenderAddress(fromRaw)
	parsed := &ParsedEmail{
		Sender:      sender,
		SenderName:  ExtractSenderName(fromRaw, sender),
		Recipient:   domain.NormalizeAddress(recipient),
		Subject:     CleanSubject(decodeHeader(msg.Header.Get("Subject"))),
		Attachments: make([]*domain.Attachment, 0),
	}

	contentType := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// 没有 Content-Type 或解析失败，当作纯文本处理
		body, _ := io.ReadAll(msg.Body)
		parsed.Text = string(body)
		return parsed
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			body, _ := io.ReadAll(msg.Body)
			parsed.Text = string(body)
			parsed.Degraded = true
			return parsed
		}

		mr := multipart.NewReader(msg.Body, boundary)
		if err := parseMultipart(mr, parsed); err != nil && parsed.Text == "" && parsed.HTML == "" {
			parsed.Degraded = true
		}
		return parsed
	}

	body, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"), params["charset"])
	if err != nil {
		parsed.Degraded = true
		return parsed
	}

	if strings.HasPrefix(mediaType, "text/html") {
		parsed.HTML = body
	} else {
		parsed.Text = body
	}

	return parsed
}

// parseMultipart 递归解析多部分邮件。
func parseMultipart(mr *multipart.Reader, parsed *ParsedEmail) error {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		contentType := part.Header.Get("Content-Type")
		mediaType, params, err := mime.ParseMediaType(contentType)
		if err != nil {
			mediaType = "text/plain"
		}

		// 检查是否是附件
		disposition := part.Header.Get("Content-Disposition")
		if disposition != "" {
			dispType, dispParams, _ := mime.ParseMediaType(disposition)
			if dispType == "attachment" || dispType == "inline" {
				filename := dispParams["filename"]
				if filename == "" {
					filename = params["name"]
				}
				if filename == "" {
					filename = "unnamed"
				}
				filename = decodeHeader(filename)

				content, err := io.ReadAll(part)
				if err != nil {
					continue
				}

				// 解码附件内容，保证存储的是原始字节
				switch strings.ToLower(strings.TrimSpace(part.Header.Get("Content-Transfer-Encoding"))) {
				case "base64":
					decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(content)))
					if err == nil {
						content = decoded
					}
				case "quoted-printable":
					decoded, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(content)))
					if err == nil {
						content = decoded
					}
				}

				parsed.Attachments = append(parsed.Attachments, &domain.Attachment{
					ID:          uuid.NewString(),
					Filename:    filename,
					ContentType: mediaType,
					Size:        int64(len(content)),
					Content:     content,
				})
				continue
			}
		}

		// 处理嵌套的 multipart
		if strings.HasPrefix(mediaType, "multipart/") {
			boundary := params["boundary"]
			if boundary != "" {
				nested := multipart.NewReader(part, boundary)
				if err := parseMultipart(nested, parsed); err != nil {
					return err
				}
			}
			continue
		}

		// 处理文本内容
		body, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"), params["charset"])
		if err != nil {
			continue
		}

		if strings.HasPrefix(mediaType, "text/html") {
			if parsed.HTML == "" {
				parsed.HTML = body
			}
		} else if strings.HasPrefix(mediaType, "text/plain") {
			if parsed.Text == "" {
				parsed.Text = body
			}
		}
	}

	return nil
}

// decodeBody 根据传输编码和字符集解码邮件体。
//
// 先按声明的字符集（默认 UTF-8）解码；结果不是合法 UTF-8 时
// 退回 Windows-1252 旧编码再试一次。
func decodeBody(reader io.Reader, transferEncoding string, charset string) (string, error) {
	transferEncoding = strings.ToLower(strings.TrimSpace(transferEncoding))

	var decoded io.Reader = reader

	switch transferEncoding {
	case "base64":
		decoded = base64.NewDecoder(base64.StdEncoding, reader)
	case "quoted-printable":
		decoded = quotedprintable.NewReader(reader)
	case "7bit", "8bit", "binary", "":
		decoded = reader
	default:
		// 未知编码，尝试直接读取
		decoded = reader
	}

	body, err := io.ReadAll(decoded)
	if err != nil {
		return "", err
	}

	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset != "" && charset != "utf-8" && charset != "us-ascii" {
		if enc := charsetEncoding(charset); enc != nil {
			converted, _, err := transform.Bytes(enc.NewDecoder(), body)
			if err == nil {
				body = converted
			}
		}
	}

	// 主编码失败时的旧编码兜底
	if !utf8.Valid(body) {
		converted, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), body)
		if err == nil {
			body = converted
		}
	}

	return string(body), nil
}

// charsetEncoding 根据字符集名称返回编码器
func charsetEncoding(charset string) encoding.Encoding {
	switch charset {
	case "gb2312", "gbk", "gb18030":
		return simplifiedchinese.GBK
	case "big5":
		return traditionalchinese.Big5
	case "iso-2022-jp", "shift_jis", "euc-jp":
		return japanese.ShiftJIS
	case "euc-kr", "ks_c_5601-1987":
		return korean.EUCKR
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	default:
		return nil
	}
}

// decodeHeader 解码 RFC 2047 编码的邮件头。
func decodeHeader(value string) string {
	if value == "" {
		return value
	}
	decoder := new(mime.WordDecoder)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if enc := charsetEncoding(strings.ToLower(charset)); enc != nil {
			return transform.NewReader(input, enc.NewDecoder()), nil
		}
		return input, nil
	}
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
