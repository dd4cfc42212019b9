package eval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/javacontext-mcp/internal/jast"
)

// literalValue decodes a literal into the constant the JVM sees: int32 for
// int and char literals, int64, float32, float64, string, bool, or nil for
// null.
func literalValue(n *jast.Literal) (any, error) {
	switch n.Kind {
	case jast.LitInt:
		v, err := parseInteger(n.Text, 32)
		return int32(uint32(v)), err
	case jast.LitLong:
		v, err := parseInteger(n.Text, 64)
		return int64(v), err
	case jast.LitFloat:
		v, err := parseFloating(n.Text, 32)
		return float32(v), err
	case jast.LitDouble:
		v, err := parseFloating(n.Text, 64)
		return v, err
	case jast.LitChar:
		r := []rune(n.Value)
		if len(r) != 1 {
			return nil, fmt.Errorf("invalid character literal %s", n.Text)
		}
		return int32(r[0]), nil
	case jast.LitString:
		return n.Value, nil
	case jast.LitBool:
		return n.Text == "true", nil
	}
	return nil, nil
}

// parseInteger accepts decimal, hex, octal and binary digits with
// underscores and an optional L suffix. Non-decimal literals may use the
// full unsigned range; decimal ones may reach 2^(bits-1) so that the most
// negative value can be written with a unary minus.
func parseInteger(text string, bits int) (uint64, error) {
	s := strings.TrimRight(strings.ReplaceAll(text, "_", ""), "lL")
	base := 10
	switch {
	case len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X'):
		base, s = 16, s[2:]
	case len(s) > 1 && s[0] == '0' && (s[1] == 'b' || s[1] == 'B'):
		base, s = 2, s[2:]
	case len(s) > 1 && s[0] == '0':
		base, s = 8, s[1:]
	}
	v, err := strconv.ParseUint(s, base, bits)
	if err != nil {
		return 0, err
	}
	if base == 10 && v > 1<<(bits-1) {
		return 0, strconv.ErrRange
	}
	return v, nil
}

func parseFloating(text string, bits int) (float64, error) {
	s := strings.ReplaceAll(text, "_", "")
	if n := len(s); n > 0 && strings.ContainsRune("fFdD", rune(s[n-1])) {
		hex := strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
		if !hex || strings.ContainsAny(s, "pP") {
			s = s[:n-1]
		}
	}
	return strconv.ParseFloat(s, bits)
}
