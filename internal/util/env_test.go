package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		value        string
		defaultValue bool
		expected     bool
	}{
		{"true", false, true},
		{"TRUE", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"off", true, false},
		{" true ", false, true},
		{"garbage", true, true},
		{"garbage", false, false},
		{"", true, true},
		{"", false, false},
	}

	for _, tc := range cases {
		t.Setenv("TEST_BOOL_ENV", tc.value)
		if got := ParseBoolEnv("TEST_BOOL_ENV", tc.defaultValue); got != tc.expected {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, expected %v", tc.value, tc.defaultValue, got, tc.expected)
		}
	}
}

func TestParseBoolEnvUnset(t *testing.T) {
	if got := ParseBoolEnv("TEST_BOOL_ENV_UNSET", true); !got {
		t.Error("expected default true for unset variable")
	}
}

func TestParseSecondsEnv(t *testing.T) {
	cases := []struct {
		value        string
		defaultValue time.Duration
		expected     time.Duration
	}{
		{"60", time.Second, 60 * time.Second},
		{"0.5", time.Second, 500 * time.Millisecond},
		{"0", time.Second, 0},
		{" 30 ", time.Second, 30 * time.Second},
		{"-5", time.Second, time.Second},
		{"not-a-number", 90 * time.Second, 90 * time.Second},
		{"", 45 * time.Second, 45 * time.Second},
	}

	for _, tc := range cases {
		t.Setenv("TEST_SECONDS_ENV", tc.value)
		if got := ParseSecondsEnv("TEST_SECONDS_ENV", tc.defaultValue); got != tc.expected {
			t.Errorf("ParseSecondsEnv(%q, %v) = %v, expected %v", tc.value, tc.defaultValue, got, tc.expected)
		}
	}
}
