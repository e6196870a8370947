// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireOops fails the test unless err carries an oops error.
func requireOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error in chain, got %T: %v", err, err)
	return oopsErr
}

// AssertErrorCode asserts that the code carried by err, the innermost one
// when errors are nested, equals code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	requireOops(t, err)
	assert.Equal(t, code, Code(err), "error code of %v", err)
}

// AssertErrorContext asserts that key is set to value anywhere in the
// merged oops context of err.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	fields := requireOops(t, err).Context()
	if assert.Contains(t, fields, key, "context of %v", err) {
		assert.Equal(t, value, fields[key], "context key %q", key)
	}
}
