package config

import (
	"fmt"
	"strings"
)

// Parity is the serial parity mode.
type Parity byte

const (
	ParityNone  Parity = 'N'
	ParityOdd   Parity = 'O'
	ParityEven  Parity = 'E'
	ParityMark  Parity = 'M'
	ParitySpace Parity = 'S'
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	case ParityMark:
		return "mark"
	case ParitySpace:
		return "space"
	default:
		return fmt.Sprintf("Parity(%d)", byte(p))
	}
}

// ParseParity accepts a parity name or its first letter, in any case.
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "none":
		return ParityNone, nil
	case "o", "odd":
		return ParityOdd, nil
	case "e", "even":
		return ParityEven, nil
	case "m", "mark":
		return ParityMark, nil
	case "s", "space":
		return ParitySpace, nil
	}
	return 0, fmt.Errorf("unknown parity %q", s)
}

// StopBits is the number of stop bits, in halves.
type StopBits byte

const (
	Stop1     StopBits = 2
	Stop1Half StopBits = 3
	Stop2     StopBits = 4
)

func (s StopBits) String() string {
	switch s {
	case Stop1:
		return "1"
	case Stop1Half:
		return "1.5"
	case Stop2:
		return "2"
	default:
		return fmt.Sprintf("StopBits(%d)", byte(s))
	}
}

// ParseStopBits accepts "1", "1.5" or "2".
func ParseStopBits(s string) (StopBits, error) {
	switch strings.TrimSpace(s) {
	case "1":
		return Stop1, nil
	case "1.5":
		return Stop1Half, nil
	case "2":
		return Stop2, nil
	}
	return 0, fmt.Errorf("unknown stop bits %q", s)
}

// Framing renders the classic "8N1" shorthand.
func Framing(dataBits int, p Parity, s StopBits) string {
	return fmt.Sprintf("%d%c%s", dataBits, byte(p), s)
}
