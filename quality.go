package ssao

import (
	"fmt"
	"strings"
)

// Quality selects the occlusion sample variant.
type Quality uint8

// Quality tiers.
const (
	QualityLow Quality = iota
	QualityMedium
	QualityHigh
)

// Shader keywords of the exclusive quality group.
const (
	KeywordLowQuality    = "SSAO_SAMPLE_LOW_QUALITY"
	KeywordMediumQuality = "SSAO_SAMPLE_MEDIUM_QUALITY"
	KeywordHighQuality   = "SSAO_SAMPLE_HIGH_QUALITY"
)

var qualityNames = [...]string{"LOW", "MEDIUM", "HIGH"}

var qualityKeywords = [...]string{KeywordLowQuality, KeywordMediumQuality, KeywordHighQuality}

var qualitySamples = [...]int{8, 16, 32}

// QualityKeywords returns the exclusive keyword group, ordered by tier.
func QualityKeywords() []string {
	return append([]string(nil), qualityKeywords[:]...)
}

// Valid reports whether q is one of the three tiers.
func (q Quality) Valid() bool {
	return q <= QualityHigh
}

// String returns "LOW", "MEDIUM" or "HIGH".
func (q Quality) String() string {
	if !q.Valid() {
		return fmt.Sprintf("Quality(%d)", uint8(q))
	}
	return qualityNames[q]
}

// Keyword returns the shader keyword enabled for this tier.
func (q Quality) Keyword() string {
	if !q.Valid() {
		return KeywordHighQuality
	}
	return qualityKeywords[q]
}

// SampleCount returns the number of kernel samples taken per pixel.
func (q Quality) SampleCount() int {
	if !q.Valid() {
		return qualitySamples[QualityHigh]
	}
	return qualitySamples[q]
}

// ParseQuality parses a tier name, ignoring case.
func ParseQuality(s string) (Quality, error) {
	for i, name := range qualityNames {
		if strings.EqualFold(s, name) {
			return Quality(i), nil
		}
	}
	return QualityHigh, fmt.Errorf("ssao: quality %q: %w", s, ErrOutOfRange)
}

// MarshalText implements encoding.TextMarshaler.
func (q Quality) MarshalText() ([]byte, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("ssao: quality %d: %w", uint8(q), ErrOutOfRange)
	}
	return []byte(q.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (q *Quality) UnmarshalText(text []byte) error {
	v, err := ParseQuality(string(text))
	if err != nil {
		return err
	}
	*q = v
	return nil
}
