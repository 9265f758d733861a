// Package testutil provides helper functions for testing covgate components
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

// WriteFile writes content to name inside dir and returns the full path
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// Decimal parses s and fails the test if it is not a number
func Decimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("Invalid decimal %q: %v", s, err)
	}
	return d
}

// DecimalPtr is like Decimal but returns a pointer
func DecimalPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := Decimal(t, s)
	return &d
}

// AssertDecimal fails the test if actual is not numerically equal to expected
func AssertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	if !Decimal(t, expected).Equal(actual) {
		t.Errorf("Expected %s, got %s", expected, actual.String())
	}
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error but got nil")
	}
}

// AssertEqual fails the test if expected != actual
func AssertEqual(t *testing.T, expected, actual any) {
	t.Helper()
	if expected != actual {
		t.Errorf("Expected %v, got %v", expected, actual)
	}
}

// AssertTrue fails the test if condition is false
func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Error(msg)
	}
}

// AssertFalse fails the test if condition is true
func AssertFalse(t *testing.T, condition bool, msg string) {
	t.Helper()
	if condition {
		t.Error(msg)
	}
}
