package transport

import (
	"bytes"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// EncodingAuto — определять кодировку по содержимому.
const EncodingAuto = "auto"

// DecodeBody декодирует тело ответа в строку UTF-8.
//
// Порядок выбора кодировки: charset из Content-Type, затем кодировка
// по умолчанию сессии. При значении "auto" кодировка определяется chardet.
// Неизвестная кодировка или ошибка декодирования — байты возвращаются как есть.
func DecodeBody(body []byte, contentType, fallback string) string {
	name := charsetFromContentType(contentType)
	if name == "" {
		name = fallback
	}
	if strings.EqualFold(name, EncodingAuto) {
		name = detectCharset(body)
	}
	if name == "" || isUTF8Name(name) {
		return string(body)
	}

	enc, _ := charset.Lookup(name)
	if enc == nil {
		return string(body)
	}

	decoded, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(body)))
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

// charsetFromContentType извлекает параметр charset из Content-Type.
func charsetFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// detectCharset определяет кодировку содержимого.
func detectCharset(body []byte) string {
	if len(body) == 0 || utf8.Valid(body) {
		return ""
	}
	result, err := chardet.NewHtmlDetector().DetectBest(body)
	if err != nil || result == nil {
		return ""
	}
	return result.Charset
}

func isUTF8Name(name string) bool {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "utf-8", "utf8":
		return true
	}
	return false
}
