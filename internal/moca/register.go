// Package moca decodes the hex register dumps of a MoCA adapter into
// network membership, PHY rates and a status record.
//
// Every function in this package is pure: it takes the raw register arrays
// of one poll and returns fresh values. Nothing here performs I/O.
package moca

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseHexWord parses a 32-bit register word. A leading 0x or 0X is optional.
func ParseHexWord(s string) (uint32, error) {
	trimmed := strings.TrimSpace(s)
	digits := trimmed
	if len(digits) >= 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		digits = digits[2:]
	}
	if digits == "" {
		return 0, &RegisterError{Index: -1, Value: s, Cause: ErrMalformedRegister}
	}
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, &RegisterError{Index: -1, Value: s, Cause: err}
	}
	return uint32(v), nil
}

// wordAt reads and parses words[index], naming field in any error.
func wordAt(words []string, field string, index int) (uint32, error) {
	if index < 0 || index >= len(words) {
		return 0, missingWord(field, index)
	}
	v, err := ParseHexWord(words[index])
	if err != nil {
		return 0, &RegisterError{Field: field, Index: index, Value: words[index], Cause: err}
	}
	return v, nil
}

// HiLoTo64 joins two 32-bit halves into one 64-bit counter.
func HiLoTo64(hi, lo uint32) uint64 {
	return uint64(hi)<<32 | uint64(lo)
}

// BytesToPrintableASCII decodes up to 8 hex digits of a word as raw bytes.
// ok is false unless every byte lies strictly between 0x00 and 0x80.
func BytesToPrintableASCII(word string) (string, bool) {
	digits := strings.TrimSpace(word)
	if len(digits) >= 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		digits = digits[2:]
	}
	if len(digits) > 8 {
		digits = digits[:8]
	}
	if digits == "" || len(digits)%2 != 0 {
		return "", false
	}

	buf := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		b, err := strconv.ParseUint(digits[i:i+2], 16, 8)
		if err != nil {
			return "", false
		}
		if b == 0 || b >= 0x80 {
			return "", false
		}
		buf = append(buf, byte(b))
	}
	return string(buf), true
}

// MACFromHiLo formats a MAC address stored as four bytes in hi and the top two bytes of lo.
func MACFromHiLo(hi, lo uint32) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		byte(hi>>24), byte(hi>>16), byte(hi>>8), byte(hi),
		byte(lo>>24), byte(lo>>16))
}

// IPv4FromWord formats a word as a dotted quad, most significant byte first.
func IPv4FromWord(w uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(w>>24), byte(w>>16), byte(w>>8), byte(w))
}

// VersionString renders a MoCA version byte such as 0x25 as "2.5".
func VersionString(v uint32) string {
	return fmt.Sprintf("%d.%d", (v>>4)&0xF, v&0xF)
}
