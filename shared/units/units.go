// Package units handles parsing of human readable byte quantities.
package units

import (
	"fmt"
	"strconv"
	"strings"
)

// handleOverflow checks that the multiplication doesn't overflow an int64.
func handleOverflow(val int64, mult int64) (int64, error) {
	result := val * mult
	if val == 0 || mult == 0 || val == 1 || mult == 1 {
		return result, nil
	}

	if val != 0 && (result/val) != mult {
		return -1, fmt.Errorf("Overflow multiplying %d with %d", val, mult)
	}

	return result, nil
}

// ParseByteSizeString parses a human representation of an amount of
// data into a number of bytes. Both SI ("10MB"), IEC ("10MiB") and
// bare single letter ("10M", binary) suffixes are understood, as is a
// plain number of bytes.
func ParseByteSizeString(input string) (int64, error) {
	if input == "" {
		return 0, fmt.Errorf("Invalid value: %q", input)
	}

	// Find where the suffix begins.
	input = strings.TrimSpace(input)
	suffixAt := len(input)
	for i, c := range input {
		if c < '0' || c > '9' {
			suffixAt = i
			break
		}
	}

	if suffixAt == 0 {
		return 0, fmt.Errorf("Invalid value: %q", input)
	}

	value, err := strconv.ParseInt(input[:suffixAt], 10, 64)
	if err != nil {
		return -1, fmt.Errorf("Invalid integer: %q", input)
	}

	suffix := strings.TrimSpace(input[suffixAt:])
	if suffix == "" || suffix == "B" || suffix == "b" {
		return value, nil
	}

	multiplicator, err := suffixMultiplicator(suffix)
	if err != nil {
		return -1, err
	}

	return handleOverflow(value, multiplicator)
}

// suffixMultiplicator maps a size suffix to its byte multiplicator.
func suffixMultiplicator(suffix string) (int64, error) {
	// Single letter suffixes ("K", "m", ...) are binary units.
	if len(suffix) == 1 {
		suffix = strings.ToUpper(suffix) + "iB"
	}

	multiplicators := map[string]int64{
		"kB":  1000,
		"MB":  1000 * 1000,
		"GB":  1000 * 1000 * 1000,
		"TB":  1000 * 1000 * 1000 * 1000,
		"PB":  1000 * 1000 * 1000 * 1000 * 1000,
		"EB":  1000 * 1000 * 1000 * 1000 * 1000 * 1000,
		"KiB": 1024,
		"MiB": 1024 * 1024,
		"GiB": 1024 * 1024 * 1024,
		"TiB": 1024 * 1024 * 1024 * 1024,
		"PiB": 1024 * 1024 * 1024 * 1024 * 1024,
		"EiB": 1024 * 1024 * 1024 * 1024 * 1024 * 1024,
	}

	multiplicator, ok := multiplicators[suffix]
	if !ok {
		return -1, fmt.Errorf("Unsupported suffix: %q", suffix)
	}

	return multiplicator, nil
}

// GetByteSizeString takes a number of bytes and returns a human
// readable rendering using binary units.
func GetByteSizeString(input int64, precision uint) string {
	if input < 1024 {
		return fmt.Sprintf("%dB", input)
	}

	value := float64(input)
	for _, unit := range []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"} {
		value = value / 1024
		if value < 1024 {
			return fmt.Sprintf("%.*f%s", precision, value, unit)
		}
	}

	return fmt.Sprintf("%.*fEiB", precision, value)
}
