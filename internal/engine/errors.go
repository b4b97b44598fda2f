// Package engine implements the typed operations (C6): per-kind mutators
// and readers over storage.Value, including the one-way encoding
// promotions described in §3.1/§4.5.
package engine

import "errors"

var (
	ErrWrongType           = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	ErrNotInteger          = errors.New("ERR value is not an integer or out of range")
	ErrNotFloat            = errors.New("ERR value is not a valid float")
	ErrIndexOutOfRange     = errors.New("ERR index out of range")
	ErrNoSuchKey           = errors.New("ERR no such key")
	ErrSyntax              = errors.New("ERR syntax error")
	ErrHashValueNotInteger = errors.New("ERR hash value is not an integer")
	ErrHashValueNotFloat   = errors.New("ERR hash value is not a float")
	ErrIncrOverflow        = errors.New("ERR increment or decrement would overflow")
	ErrNaNOrInfinity       = errors.New("ERR increment would produce NaN or Infinity")
)
