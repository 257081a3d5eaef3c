package util

import "strconv"

// ClampLimit 将 limit 限制在 (0, max]，非法值使用默认值
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// QueryInt 解析查询参数，空字符串或格式错误返回默认值
func QueryInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
