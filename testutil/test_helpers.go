// Package testutil provides small assertion helpers shared by the package tests.
package testutil

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
)

func AssertEqual(t testing.TB, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Errorf(
			"Not equal: \nexpected: %v\nactual  : %v%s",
			expected,
			actual,
			FormatMsgAndArgs(msgAndArgs...),
		)
	}
}

func AssertNotEqual(t testing.TB, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	if reflect.DeepEqual(expected, actual) {
		t.Errorf("Expected values to differ, both were: %v%s", actual, FormatMsgAndArgs(msgAndArgs...))
	}
}

func AssertTrue(t testing.TB, condition bool, msgAndArgs ...any) {
	t.Helper()
	if !condition {
		t.Errorf("Expected condition to be true%s", FormatMsgAndArgs(msgAndArgs...))
	}
}

func AssertFalse(t testing.TB, condition bool, msgAndArgs ...any) {
	t.Helper()
	if condition {
		t.Errorf("Expected condition to be false%s", FormatMsgAndArgs(msgAndArgs...))
	}
}

func AssertNoError(t testing.TB, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		t.Errorf("Unexpected error: %v%s", err, FormatMsgAndArgs(msgAndArgs...))
	}
}

func AssertError(t testing.TB, err error, msgAndArgs ...any) {
	t.Helper()
	if err == nil {
		t.Errorf("Expected an error but got nil%s", FormatMsgAndArgs(msgAndArgs...))
	}
}

func AssertErrorIs(t testing.TB, err, target error, msgAndArgs ...any) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf(
			"Expected error to be %v but got %v%s",
			target,
			err,
			FormatMsgAndArgs(msgAndArgs...),
		)
	}
}

func AssertLen(t testing.TB, object any, length int, msgAndArgs ...any) {
	t.Helper()
	v := reflect.ValueOf(object)
	if v.Len() != length {
		t.Errorf(
			"Length not equal: \nexpected: %d\nactual  : %d%s",
			length,
			v.Len(),
			FormatMsgAndArgs(msgAndArgs...),
		)
	}
}

func AssertContains(t testing.TB, s, substr string, msgAndArgs ...any) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf(
			"Expected string to contain substring:\nstring: %q\nsubstring: %q%s",
			s,
			substr,
			FormatMsgAndArgs(msgAndArgs...),
		)
	}
}

func AssertNotNil(t testing.TB, object any, msgAndArgs ...any) {
	t.Helper()
	if isNil(object) {
		t.Errorf("Expected not nil but got nil%s", FormatMsgAndArgs(msgAndArgs...))
	}
}

// Require helpers fail the test immediately.

func RequireNoError(t testing.TB, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		t.Fatalf("Required no error but got: %v%s", err, FormatMsgAndArgs(msgAndArgs...))
	}
}

func RequireNotNil(t testing.TB, object any, msgAndArgs ...any) {
	t.Helper()
	if isNil(object) {
		t.Fatalf("Required not nil but got nil%s", FormatMsgAndArgs(msgAndArgs...))
	}
}

// Eventually polls cond every tick until it returns true or timeout elapses.
func Eventually(t testing.TB, cond func() bool, timeout, tick time.Duration, msgAndArgs ...any) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Condition not met within %v%s", timeout, FormatMsgAndArgs(msgAndArgs...))
		}
		time.Sleep(tick)
	}
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

// FormatMsgAndArgs formats the optional trailing message of an assertion.
func FormatMsgAndArgs(msgAndArgs ...any) string {
	switch len(msgAndArgs) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("\nMessage: %v", msgAndArgs[0])
	}
	format, ok := msgAndArgs[0].(string)
	if !ok {
		return fmt.Sprintf("\nMessage: %v", msgAndArgs)
	}
	return "\nMessage: " + fmt.Sprintf(format, msgAndArgs[1:]...)
}
