package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"empty slice", []string{}, []string{}},
		{"brokers with spaces and repeats", []string{" kafka-1:9092", "kafka-2:9092 ", "kafka-1:9092"}, []string{"kafka-1:9092", "kafka-2:9092"}},
		{"only blanks", []string{"", "  "}, []string{}},
		{"case is kept", []string{"Foo", "foo"}, []string{"Foo", "foo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	got := DedupeAndTrimLower([]string{"Image/PNG", " image/png", "image/jpeg", ""})
	assert.Equal(t, []string{"image/png", "image/jpeg"}, got)
}
