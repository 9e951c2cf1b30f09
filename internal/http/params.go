package httpapi

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// params 查询参数与 JSON body 合并后的请求参数；body 中的字段覆盖同名查询参数
type params map[string]any

func queryParams(r *http.Request) params {
	p := params{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			p[k] = v[0]
		}
	}
	return p
}

// mergeBody merges a JSON object body into p; an empty body is fine
func (p params) mergeBody(r *http.Request) error {
	var body map[string]any
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		return fmt.Errorf("the body must be a JSON object: %w", err)
	}
	for k, v := range body {
		p[k] = v
	}
	return nil
}

func (p params) str(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (p params) present(key string) bool {
	v, ok := p[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

func (p params) optFloat(key string) (*float64, error) {
	if !p.present(key) {
		return nil, nil
	}
	var f float64
	switch v := p[key].(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: expected a number, got %q", key, v)
		}
		f = parsed
	default:
		return nil, fmt.Errorf("%s: expected a number", key)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%s: expected a finite number", key)
	}
	return &f, nil
}

func (p params) optInt(key string) (*int, error) {
	f, err := p.optFloat(key)
	if err != nil {
		return nil, fmt.Errorf("%s: expected an integer", key)
	}
	if f == nil {
		return nil, nil
	}
	if *f != math.Trunc(*f) {
		return nil, fmt.Errorf("%s: expected an integer, got %g", key, *f)
	}
	i := int(*f)
	return &i, nil
}

func (p params) requiredInt(key string) (int, error) {
	i, err := p.optInt(key)
	if err != nil {
		return 0, err
	}
	if i == nil {
		return 0, fmt.Errorf("%s: missing value", key)
	}
	return *i, nil
}

func (p params) boolean(key string) (bool, error) {
	if !p.present(key) {
		return false, nil
	}
	switch v := p[key].(type) {
	case bool:
		return v, nil
	case float64:
		return v != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%s: expected true or false, got %q", key, v)
		}
		return b, nil
	}
	return false, fmt.Errorf("%s: expected true or false", key)
}

// optTime unix 秒或 RFC 3339
func (p params) optTime(key string) (*time.Time, error) {
	if !p.present(key) {
		return nil, nil
	}
	switch v := p[key].(type) {
	case float64:
		t := time.Unix(int64(v), 0)
		return &t, nil
	case string:
		s := strings.TrimSpace(v)
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			t := time.Unix(secs, 0)
			return &t, nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("%s: expected unix seconds or an RFC 3339 date, got %q", key, v)
		}
		return &t, nil
	}
	return nil, fmt.Errorf("%s: expected a date", key)
}

// invalidParams 参数无法解析（HTTP 400）
func invalidParams(w http.ResponseWriter, err error) {
	writeText(w, http.StatusBadRequest, "one or more of the parameters has an invalid value:\n"+err.Error())
}
