// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import "fmt"

// StoreAccessError reports that the local store could not be opened or
// queried. It is the only error that aborts a sync pass.
type StoreAccessError struct {
	Op  string
	Err error
}

func (e *StoreAccessError) Error() string {
	return fmt.Sprintf("store access failed (%s): %v", e.Op, e.Err)
}

func (e *StoreAccessError) Unwrap() error { return e.Err }

// FetchError reports that one server's inventory could not be retrieved:
// transport, TLS, timeout, non-2xx status or a WHM envelope with result=0.
type FetchError struct {
	Server     ServerKey
	StatusCode int
	Reason     string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.Server, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: HTTP %d %s", e.Server, e.StatusCode, e.Reason)
	default:
		return fmt.Sprintf("fetch %s: %s", e.Server, e.Reason)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// MalformedResponseError reports a response body that is not a JSON object.
type MalformedResponseError struct {
	Server ServerKey
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.Server, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ValidationError rejects a single remote record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: field %q %s", e.Field, e.Reason)
}

// WriteError reports that the store rejected an upsert for one record.
type WriteError struct {
	Server ServerKey
	Domain string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s on %s: %v", e.Domain, e.Server, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
