package intercept

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Upper maps ASCII letters to upper case.
func Upper(data []byte) ([]byte, error) { return bytes.ToUpper(data), nil }

// Lower maps ASCII letters to lower case.
func Lower(data []byte) ([]byte, error) { return bytes.ToLower(data), nil }

// Drop swallows the burst; nothing is forwarded.
func Drop([]byte) ([]byte, error) { return nil, nil }

// Replace returns a transform that substitutes every occurrence of old
// with repl, e.g. swapping a username for "admin" in a login exchange.
func Replace(old, repl []byte) Transform {
	o := append([]byte(nil), old...)
	r := append([]byte(nil), repl...)
	return func(data []byte) ([]byte, error) {
		return bytes.ReplaceAll(data, o, r), nil
	}
}

// Chain runs transforms left to right.  The first error stops the chain.
func Chain(ts ...Transform) Transform {
	switch len(ts) {
	case 0:
		return Identity
	case 1:
		return ts[0]
	}
	return func(data []byte) ([]byte, error) {
		var err error
		for _, t := range ts {
			if data, err = t(data); err != nil {
				return nil, err
			}
		}
		return data, nil
	}
}

// Parse builds a transform from its command-line form:
//
//	identity | upper | lower | drop | replace:OLD=NEW
//
// OLD and NEW may use Go escape sequences (\r, \n, \x00 …).
func Parse(spec string) (Transform, error) {
	name, arg, hasArg := strings.Cut(spec, ":")
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "identity", "none":
		return Identity, nil
	case "upper":
		return Upper, nil
	case "lower":
		return Lower, nil
	case "drop":
		return Drop, nil
	case "replace":
		if !hasArg {
			return nil, fmt.Errorf("transform %q: expected replace:OLD=NEW", spec)
		}
		old, repl, ok := strings.Cut(arg, "=")
		if !ok || old == "" {
			return nil, fmt.Errorf("transform %q: expected replace:OLD=NEW with non-empty OLD", spec)
		}
		o, err := unescape(old)
		if err != nil {
			return nil, fmt.Errorf("transform %q: %w", spec, err)
		}
		r, err := unescape(repl)
		if err != nil {
			return nil, fmt.Errorf("transform %q: %w", spec, err)
		}
		return Replace(o, r), nil
	default:
		return nil, fmt.Errorf("unknown transform %q (want identity, upper, lower, drop, replace:OLD=NEW)", spec)
	}
}

// ParseChain parses each spec and chains the results in order.
func ParseChain(specs []string) (Transform, error) {
	ts := make([]Transform, 0, len(specs))
	for _, s := range specs {
		t, err := Parse(s)
		if err != nil {
			return nil, err
		}
		ts = append(ts, t)
	}
	return Chain(ts...), nil
}

func unescape(s string) ([]byte, error) {
	if !strings.Contains(s, `\`) {
		return []byte(s), nil
	}
	var out []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			out = append(out, c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case '\\':
			out = append(out, '\\')
		case 'x':
			if i+2 >= len(s) {
				return nil, fmt.Errorf("short \\x escape")
			}
			b, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return nil, fmt.Errorf("bad \\x escape %q", s[i-1:i+3])
			}
			out = append(out, byte(b))
			i += 2
		default:
			return nil, fmt.Errorf("unknown escape \\%c", s[i])
		}
	}
	return out, nil
}
