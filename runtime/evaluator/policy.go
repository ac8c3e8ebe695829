package evaluator

import "fmt"

// Policy decides what happens after a failed call.
type Policy int

const (
	// FailFast stops at the first failure and returns it.
	FailFast Policy = iota
	// CollectAll records every failure, nulls the failed node and keeps going.
	CollectAll
)

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case CollectAll:
		return "collect"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy accepts "fail-fast" and "collect".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "fail-fast", "failfast":
		return FailFast, nil
	case "collect", "collect-all":
		return CollectAll, nil
	}
	return 0, fmt.Errorf("unknown policy %q (want fail-fast or collect)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
