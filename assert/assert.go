// Package assert wraps gotest.tools and testify assertions so that wrapped
// eris errors print their full trace on failure and compare by cause.
package assert

import (
	"time"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/rotisserie/eris"
	testify "github.com/stretchr/testify/assert"
	gotest "gotest.tools/v3/assert"
)

type helperT interface {
	Helper()
}

// markHelper keeps the wrappers out of failure line numbers when the
// underlying t supports it.
func markHelper(t any) {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
}

// withTrace prepends the error's full eris trace to msgAndArgs, so a failed
// assertion shows where the error came from, not just its message.
func withTrace(err error, msgAndArgs []any) []any {
	return append([]any{eris.ToString(err, true)}, msgAndArgs...)
}

// General assertions, delegated to gotest.tools.

func Assert(t gotest.TestingT, check gotest.BoolOrComparison, msgAndArgs ...any) {
	markHelper(t)
	gotest.Assert(t, check, msgAndArgs...)
}

func Check(t gotest.TestingT, check gotest.BoolOrComparison, msgAndArgs ...any) bool {
	markHelper(t)
	return gotest.Check(t, check, msgAndArgs...)
}

func Equal(t gotest.TestingT, got, want any, msgAndArgs ...any) {
	markHelper(t)
	gotest.Equal(t, got, want, msgAndArgs...)
}

func DeepEqual(t gotest.TestingT, got, want any, opts ...gocmp.Option) {
	markHelper(t)
	gotest.DeepEqual(t, got, want, opts...)
}

// Error assertions. These unwrap to the root cause before comparing, so a
// test can pin the sentinel without caring how many layers wrapped it.

func NilError(t gotest.TestingT, err error, msgAndArgs ...any) {
	markHelper(t)
	gotest.NilError(t, err, withTrace(err, msgAndArgs)...)
}

// Error asserts that the root cause of err has exactly the expected message.
// Wrap layers added by eris are not part of the comparison.
func Error(t gotest.TestingT, err error, expected string, msgAndArgs ...any) {
	markHelper(t)
	gotest.Error(t, eris.Cause(err), expected, withTrace(err, msgAndArgs)...)
}

// ErrorContains asserts that the root cause's message contains substring.
// Text added by wrap layers is invisible here; assert on err.Error() to check
// those.
func ErrorContains(t gotest.TestingT, err error, substring string, msgAndArgs ...any) {
	markHelper(t)
	gotest.ErrorContains(t, eris.Cause(err), substring, withTrace(err, msgAndArgs)...)
}

func ErrorIs(t gotest.TestingT, err error, expected error, msgAndArgs ...any) {
	markHelper(t)
	gotest.ErrorIs(t, eris.Cause(err), eris.Cause(expected), withTrace(err, msgAndArgs)...)
}

func NotErrorIs(t testify.TestingT, err, target error, msgAndArgs ...any) bool {
	markHelper(t)
	return testify.NotErrorIs(t, eris.Cause(err), eris.Cause(target), withTrace(err, msgAndArgs)...)
}

// IsError asserts that err is non-nil, any error at all.
func IsError(t testify.TestingT, err error, msgAndArgs ...any) bool {
	markHelper(t)
	return testify.Error(t, err, withTrace(err, msgAndArgs)...)
}

// Value assertions, delegated to testify.

func True(t testify.TestingT, v bool, msgAndArgs ...any) bool {
	markHelper(t)
	return testify.True(t, v, msgAndArgs...)
}

func False(t testify.TestingT, v bool, msgAndArgs ...any) bool {
	markHelper(t)
	return testify.False(t, v, msgAndArgs...)
}

func Len(t testify.TestingT, collection any, n int, msgAndArgs ...any) bool {
	markHelper(t)
	return testify.Len(t, collection, n, msgAndArgs...)
}

func Contains(t testify.TestingT, haystack, needle any, msgAndArgs ...any) bool {
	markHelper(t)
	return testify.Contains(t, haystack, needle, msgAndArgs...)
}

func NotContains(t testify.TestingT, haystack, needle any, msgAndArgs ...any) bool {
	markHelper(t)
	return testify.NotContains(t, haystack, needle, msgAndArgs...)
}

func ElementsMatch(t testify.TestingT, a, b any, msgAndArgs ...any) bool {
	markHelper(t)
	return testify.ElementsMatch(t, a, b, msgAndArgs...)
}

func NotNil(t testify.TestingT, v any, msgAndArgs ...any) bool {
	markHelper(t)
	return testify.NotNil(t, v, msgAndArgs...)
}

func Nil(t testify.TestingT, v any, msgAndArgs ...any) bool {
	markHelper(t)
	return testify.Nil(t, v, msgAndArgs...)
}

func Empty(t testify.TestingT, v any, msgAndArgs ...any) bool {
	markHelper(t)
	return testify.Empty(t, v, msgAndArgs...)
}

func Zero(t testify.TestingT, v any, msgAndArgs ...any) bool {
	markHelper(t)
	return testify.Zero(t, v, msgAndArgs...)
}

func Panics(t testify.TestingT, fn testify.PanicTestFunc, msgAndArgs ...any) bool {
	markHelper(t)
	return testify.Panics(t, fn, msgAndArgs...)
}

func NotPanics(t testify.TestingT, fn testify.PanicTestFunc, msgAndArgs ...any) bool {
	markHelper(t)
	return testify.NotPanics(t, fn, msgAndArgs...)
}

func InDelta(t testify.TestingT, want, got any, delta float64, msgAndArgs ...any) bool {
	markHelper(t)
	return testify.InDelta(t, want, got, delta, msgAndArgs...)
}

func Eventually(
	t testify.TestingT,
	cond func() bool,
	timeout time.Duration, interval time.Duration, msgAndArgs ...any,
) bool {
	markHelper(t)
	return testify.Eventually(t, cond, timeout, interval, msgAndArgs...)
}

func IsEqual(t testify.TestingT, want, got any, msgAndArgs ...any) bool {
	markHelper(t)
	return testify.Equal(t, want, got, msgAndArgs...)
}
