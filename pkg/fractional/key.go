// Package fractional generates lexicographically-sortable ordering keys
// (fractional indices). Keys are base-62 strings with a variable-length
// integer head, so arbitrarily many keys fit between any two existing keys
// without renumbering and without a precision limit.
package fractional

import (
	"errors"
	"fmt"
	"strings"
)

const digitSet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// smallestInteger is the minimum representable integer part; no key may sort
// at or below it.
var smallestInteger = "A" + strings.Repeat("0", 26)

var (
	// ErrInvalidKey means a bound is not a well-formed ordering key.
	ErrInvalidKey = errors.New("fractional: invalid order key")
	// ErrInvalidRange means the lower bound does not sort before the upper.
	ErrInvalidRange = errors.New("fractional: invalid key range")
	// ErrKeyspaceExhausted means the integer range over- or underflowed.
	ErrKeyspaceExhausted = errors.New("fractional: keyspace exhausted")
)

// KeyBetween returns a key strictly between a and b. Either bound may be ""
// meaning unbounded on that side; KeyBetween("", "") returns the canonical
// first key.
func KeyBetween(a, b string) (string, error) {
	if a != "" {
		if err := validateKey(a); err != nil {
			return "", err
		}
	}
	if b != "" {
		if err := validateKey(b); err != nil {
			return "", err
		}
	}
	if a != "" && b != "" && a >= b {
		return "", fmt.Errorf("fractional: %q >= %q: %w", a, b, ErrInvalidRange)
	}

	if a == "" {
		if b == "" {
			return "a0", nil
		}
		ib, err := integerPart(b)
		if err != nil {
			return "", err
		}
		fb := b[len(ib):]
		if ib == smallestInteger {
			mid, err := midpoint("", fb)
			if err != nil {
				return "", err
			}
			return ib + mid, nil
		}
		if ib < b {
			return ib, nil
		}
		res, ok := decrementInteger(ib)
		if !ok {
			return "", fmt.Errorf("fractional: cannot go below %q: %w", b, ErrKeyspaceExhausted)
		}
		return res, nil
	}

	if b == "" {
		ia, err := integerPart(a)
		if err != nil {
			return "", err
		}
		fa := a[len(ia):]
		if next, ok := incrementInteger(ia); ok {
			return next, nil
		}
		mid, err := midpoint(fa, "")
		if err != nil {
			return "", err
		}
		return ia + mid, nil
	}

	ia, err := integerPart(a)
	if err != nil {
		return "", err
	}
	fa := a[len(ia):]
	ib, err := integerPart(b)
	if err != nil {
		return "", err
	}
	fb := b[len(ib):]
	if ia == ib {
		mid, err := midpoint(fa, fb)
		if err != nil {
			return "", err
		}
		return ia + mid, nil
	}
	next, ok := incrementInteger(ia)
	if !ok {
		return "", fmt.Errorf("fractional: cannot go above %q: %w", a, ErrKeyspaceExhausted)
	}
	if next < b {
		return next, nil
	}
	mid, err := midpoint(fa, "")
	if err != nil {
		return "", err
	}
	return ia + mid, nil
}

// NKeysBetween returns n keys strictly ordered between a and b
// (either may be ""). For n == 0 it returns an empty slice.
func NKeysBetween(a, b string, n int) ([]string, error) {
	if n < 0 {
		return nil, fmt.Errorf("fractional: negative count %d: %w", n, ErrInvalidRange)
	}
	if n == 0 {
		return []string{}, nil
	}
	if n == 1 {
		k, err := KeyBetween(a, b)
		if err != nil {
			return nil, err
		}
		return []string{k}, nil
	}
	if b == "" {
		c, err := KeyBetween(a, b)
		if err != nil {
			return nil, err
		}
		result := []string{c}
		for i := 0; i < n-1; i++ {
			c, err = KeyBetween(c, b)
			if err != nil {
				return nil, err
			}
			result = append(result, c)
		}
		return result, nil
	}
	if a == "" {
		c, err := KeyBetween(a, b)
		if err != nil {
			return nil, err
		}
		result := []string{c}
		for i := 0; i < n-1; i++ {
			c, err = KeyBetween(a, c)
			if err != nil {
				return nil, err
			}
			result = append(result, c)
		}
		reverse(result)
		return result, nil
	}
	mid := n / 2
	c, err := KeyBetween(a, b)
	if err != nil {
		return nil, err
	}
	left, err := NKeysBetween(a, c, mid)
	if err != nil {
		return nil, err
	}
	right, err := NKeysBetween(c, b, n-mid-1)
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, n)
	result = append(result, left...)
	result = append(result, c)
	result = append(result, right...)
	return result, nil
}

// =============================================================================
// Internals
// =============================================================================

// integerHeadLength maps the head character to the integer part's length.
// 'a'..'z' encode positive magnitudes, 'A'..'Z' negative ones.
func integerHeadLength(head byte) (int, error) {
	switch {
	case head >= 'a' && head <= 'z':
		return int(head-'a') + 2, nil
	case head >= 'A' && head <= 'Z':
		return int('Z'-head) + 2, nil
	default:
		return 0, fmt.Errorf("fractional: bad head %q: %w", string(head), ErrInvalidKey)
	}
}

func integerPart(key string) (string, error) {
	n, err := integerHeadLength(key[0])
	if err != nil {
		return "", err
	}
	if n > len(key) {
		return "", fmt.Errorf("fractional: truncated integer in %q: %w", key, ErrInvalidKey)
	}
	return key[:n], nil
}

func validateInteger(i string) error {
	n, err := integerHeadLength(i[0])
	if err != nil {
		return err
	}
	if len(i) != n {
		return fmt.Errorf("fractional: bad integer %q: %w", i, ErrInvalidKey)
	}
	return nil
}

func validateKey(key string) error {
	if key == smallestInteger {
		return fmt.Errorf("fractional: %q: %w", key, ErrInvalidKey)
	}
	i, err := integerPart(key)
	if err != nil {
		return err
	}
	frac := key[len(i):]
	if strings.HasSuffix(frac, "0") {
		return fmt.Errorf("fractional: trailing zero in %q: %w", key, ErrInvalidKey)
	}
	return nil
}

// midpoint returns a fraction string strictly between a and b ("" = open
// upper bound). Fractions never carry trailing zeros.
func midpoint(a, b string) (string, error) {
	if b != "" && a >= b {
		return "", fmt.Errorf("fractional: midpoint %q >= %q: %w", a, b, ErrInvalidRange)
	}
	if strings.HasSuffix(a, "0") || strings.HasSuffix(b, "0") {
		return "", fmt.Errorf("fractional: trailing zero fraction: %w", ErrInvalidKey)
	}
	if b != "" {
		n := 0
		for n < len(b) {
			ca := byte('0')
			if n < len(a) {
				ca = a[n]
			}
			if ca != b[n] {
				break
			}
			n++
		}
		if n > 0 {
			rest, err := midpoint(sliceFrom(a, n), sliceFrom(b, n))
			if err != nil {
				return "", err
			}
			return b[:n] + rest, nil
		}
	}
	digitA := 0
	if a != "" {
		digitA = strings.IndexByte(digitSet, a[0])
	}
	digitB := len(digitSet)
	if b != "" {
		digitB = strings.IndexByte(digitSet, b[0])
	}
	if digitB-digitA > 1 {
		mid := (digitA + digitB + 1) / 2
		return string(digitSet[mid]), nil
	}
	if len(b) > 1 {
		return b[:1], nil
	}
	rest, err := midpoint(sliceFrom(a, 1), "")
	if err != nil {
		return "", err
	}
	return string(digitSet[digitA]) + rest, nil
}

// incrementInteger returns the next integer part, or ok=false on overflow.
func incrementInteger(x string) (string, bool) {
	head := x[0]
	digs := []byte(x[1:])
	carry := true
	for i := len(digs) - 1; carry && i >= 0; i-- {
		d := strings.IndexByte(digitSet, digs[i]) + 1
		if d == len(digitSet) {
			digs[i] = '0'
		} else {
			digs[i] = digitSet[d]
			carry = false
		}
	}
	if carry {
		if head == 'Z' {
			return "a0", true
		}
		if head == 'z' {
			return "", false
		}
		h := head + 1
		if h > 'a' {
			digs = append(digs, '0')
		} else {
			digs = digs[:len(digs)-1]
		}
		return string(h) + string(digs), true
	}
	return string(head) + string(digs), true
}

// decrementInteger returns the previous integer part, or ok=false on
// underflow.
func decrementInteger(x string) (string, bool) {
	head := x[0]
	digs := []byte(x[1:])
	last := digitSet[len(digitSet)-1]
	borrow := true
	for i := len(digs) - 1; borrow && i >= 0; i-- {
		d := strings.IndexByte(digitSet, digs[i]) - 1
		if d == -1 {
			digs[i] = last
		} else {
			digs[i] = digitSet[d]
			borrow = false
		}
	}
	if borrow {
		if head == 'a' {
			return "Z" + string(last), true
		}
		if head == 'A' {
			return "", false
		}
		h := head - 1
		if h < 'Z' {
			digs = append(digs, last)
		} else {
			digs = digs[:len(digs)-1]
		}
		return string(h) + string(digs), true
	}
	return string(head) + string(digs), true
}

func sliceFrom(s string, n int) string {
	if n >= len(s) {
		return ""
	}
	return s[n:]
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
