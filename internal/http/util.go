package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// decodeBody 请求体解析失败统一返回 ValidationError
func decodeBody(r *http.Request, out any) error {
	if err := readBodyJSON(r, maxBodyBytes, out); err != nil {
		return domain.NewValidationError("body", fmt.Sprintf("invalid body: %v", err))
	}
	return nil
}

// parseDate 解析 YYYY-MM-DD，空字符串返回零值
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := domain.ParseDay(s)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, fmt.Sprintf("%s must be formatted as YYYY-MM-DD", field))
	}
	return t, nil
}

// parseBool "true" / "1" 为 true
func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

// pathParam 取 prefix 之后、suffix 之前的单段 id，格式不符返回空
func pathParam(path, prefix, suffix string) string {
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return ""
	}
	id := strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
