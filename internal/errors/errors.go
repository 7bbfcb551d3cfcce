// Package errors provides error handling for rowmap.
//
// This package re-exports github.com/cockroachdb/errors so that every
// layer wraps failures the same way and keeps stack traces:
//
//	if err := db.Exec(...); err != nil {
//	    return errors.Wrap(err, "failed to insert record")
//	}
//
// Typed storage errors (coercion, missing keys, duplicate keys) live in
// internal/domain and are matched with errors.As / errors.Is.
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is           = crdb.Is
	IsAny        = crdb.IsAny
	As           = crdb.As
	Unwrap       = crdb.Unwrap
	UnwrapAll    = crdb.UnwrapAll
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
	Mark         = crdb.Mark
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = New("storage is closed")

// IsClosed reports whether err is or wraps ErrClosed.
func IsClosed(err error) bool {
	return err != nil && Is(err, ErrClosed)
}
