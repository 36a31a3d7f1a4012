// Package service 包含了应用的业务逻辑层。
package service

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// sanitizeEmail 统一邮箱格式：去空白并转为小写。
func sanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail 校验邮箱格式。
func validEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	// 不允许连续的点
	if strings.Contains(email, "..") {
		return false
	}
	return emailPattern.MatchString(email)
}

// validPassword 校验密码强度：至少 8 位，包含大写、小写字母和数字。
func validPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= '0' && c <= '9':
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}
