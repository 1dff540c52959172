package service

import (
	"errors"
	"fmt"
)

// 错误类别，配合 errors.Is 使用
var (
	ErrInvalid         = errors.New("invalid argument")
	ErrUnauthenticated = errors.New("user not authenticated")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrTransient       = errors.New("store unavailable")
	ErrCatalog         = errors.New("catalog request failed")
)

var kinds = []error{ErrInvalid, ErrUnauthenticated, ErrNotFound, ErrConflict, ErrTransient, ErrCatalog}

// OpError 带操作名和类别的错误
type OpError struct {
	Kind error
	Op   string
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap 给错误打上类别和操作名
func Wrap(kind error, op string, err error) error {
	return &OpError{Kind: kind, Op: op, Err: err}
}

// KindOf 返回错误所属类别，无法识别返回 nil
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
