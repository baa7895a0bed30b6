package service

import (
	"errors"
	"fmt"

	"timehunt/internal/model"
)

// ErrorKind classifies a failed remote operation so callers can pick a fallback.
type ErrorKind int

const (
	KindTransient ErrorKind = iota + 1
	KindMalformed
	KindConfigMissing
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindMalformed:
		return "malformed"
	case KindConfigMissing:
		return "config-missing"
	case KindNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// RemoteError wraps a failure talking to the worksheets or the cache.
type RemoteError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func remoteErr(op string, kind ErrorKind, err error) error {
	return &RemoteError{Op: op, Kind: kind, Err: err}
}

// classify wraps a repository error, picking the kind from its chain.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	if errors.Is(err, model.ErrUnknownColumn) {
		return remoteErr(op, KindMalformed, err)
	}
	return remoteErr(op, KindTransient, err)
}

// Kind reports the ErrorKind carried by err, or 0 when err is not remote.
func Kind(err error) ErrorKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

var (
	ErrNoActiveAlarm   = errors.New("no active alarm")
	ErrAlarmBusy       = errors.New("another alarm is active")
	ErrNotVerified     = errors.New("focus session not verified")
	ErrUserNotFound    = errors.New("user not found")
	ErrNameTaken       = errors.New("name already registered")
	ErrInvalidPIN      = errors.New("pin must be 4 digits")
	ErrWrongPIN        = errors.New("wrong pin")
	ErrNothingToClaim  = errors.New("no completed tasks to claim")
	ErrTaskNotFound    = errors.New("task not found")
	ErrReminderMissing = errors.New("reminder not found")
	ErrEmptyActivity   = errors.New("activity is required")
	ErrNoAssistant     = errors.New("assistant is not configured")
	ErrNoScheduleBlock = errors.New("no schedule block in reply")
	ErrInvalidReminder = errors.New("reminder time must be HH:MM or YYYY-MM-DD HH:MM")
)
