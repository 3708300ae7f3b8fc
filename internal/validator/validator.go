package validator

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	ErrInvalidID         = errors.New("invalid id")
	ErrInvalidTime       = errors.New("invalid time, expected RFC3339")
	ErrInvalidGroupLevel = errors.New("invalid group level")
	ErrInvalidCancelBy   = errors.New("invalid cancel party")
	ErrInvalidMethod     = errors.New("invalid payment method")
	ErrInvalidStatus     = errors.New("invalid reservation status")
)

var (
	idRegex         = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	groupLevelRegex = regexp.MustCompile(`^[ABC]$`)
)

var (
	cancelParties  = map[string]bool{"student": true, "coach": true}
	paymentMethods = map[string]bool{"wechat": true, "alipay": true, "offline": true}
	statuses       = map[string]bool{"pending": true, "confirmed": true, "rejected": true, "completed": true, "canceled": true}
)

func ValidateID(id string) error {
	if !idRegex.MatchString(id) {
		return ErrInvalidID
	}
	return nil
}

func ValidateGroupLevel(level string) error {
	if !groupLevelRegex.MatchString(level) {
		return ErrInvalidGroupLevel
	}
	return nil
}

func ValidateCancelBy(by string) error {
	if !cancelParties[by] {
		return ErrInvalidCancelBy
	}
	return nil
}

func ValidatePaymentMethod(method string) error {
	if !paymentMethods[method] {
		return ErrInvalidMethod
	}
	return nil
}

// ValidateStatus accepts an empty filter.
func ValidateStatus(status string) error {
	if status != "" && !statuses[status] {
		return ErrInvalidStatus
	}
	return nil
}

// ParseTime reads an RFC3339 timestamp. Offsets are required so a booking
// never depends on the server's zone.
func ParseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, ErrInvalidTime
	}
	return t, nil
}
