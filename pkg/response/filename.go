package response

import (
	"net/url"
	"strings"
)

// escapeFilename RFC 5987 百分号编码；QueryEscape 会把空格编码为 "+"，需要还原为 %20
func escapeFilename(name string) string {
	return strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}
