package domain

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrCourseNotFound   = errors.New("course not found")
	ErrLectureNotFound  = errors.New("lecture not found")
	ErrStatsNotFound    = errors.New("stats snapshot not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrVersionConflict  = errors.New("document modified concurrently")
	ErrGatewayDisabled  = errors.New("payment gateway not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
