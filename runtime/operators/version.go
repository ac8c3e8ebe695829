package operators

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/aledsdavies/operon/core/dispatch"
	"github.com/aledsdavies/operon/core/operator"
	"github.com/aledsdavies/operon/core/types"
	"golang.org/x/mod/semver"
)

const (
	semverOp = "_semver"
	netOp    = "_net"
)

// Semver installs the _semver family. Versions may omit the leading "v".
// A bare "_semver" node means "_semver.compare".
func Semver(b *operator.Builder, c *dispatch.CatalogBuilder) {
	ob := b.Operator(semverOp).Summary("Semantic versions").Default("compare")

	ob.Method("compare").Named("a", "b").Accepts(containers...).Class().Pure().
		Arg(types.Arg("a", types.TypeString).WithFormat(types.FormatSemver)).
		Arg(types.Arg("b", types.TypeString).WithFormat(types.FormatSemver)).
		Summary("-1, 0 or 1 as a is older than, equal to or newer than b").Done()
	ob.Method("canonical").Named("version").Accepts(containers...).Class().Pure().
		Arg(types.Arg("version", types.TypeString).WithFormat(types.FormatSemver)).
		Summary("Version in vMAJOR.MINOR.PATCH form, build metadata dropped").Done()
	ob.Method("major").Named("version").Accepts(containers...).Class().Pure().
		Arg(types.Arg("version", types.TypeString).WithFormat(types.FormatSemver)).
		Summary("Major version prefix, e.g. v2").Done()

	c.Class(semverOp, "compare", dispatch.Exactly(2), semverCompare).
		Class(semverOp, "canonical", dispatch.Exactly(1), semverUnary(semver.Canonical)).
		Class(semverOp, "major", dispatch.Exactly(1), semverUnary(semver.Major))
}

func version(name string, v types.Value) (string, error) {
	s, ok := v.(string)
	if !ok {
		if types.IsAbsent(v) {
			return "", fmt.Errorf("%s is required", name)
		}
		return "", fmt.Errorf("%s must be a string, got %s", name, types.Describe(v))
	}
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	if !semver.IsValid(s) {
		return "", fmt.Errorf("%s %q is not a semantic version", name, s)
	}
	return s, nil
}

func semverCompare(args []types.Value) (types.Value, error) {
	a, err := version("a", args[0])
	if err != nil {
		return nil, err
	}
	b, err := version("b", args[1])
	if err != nil {
		return nil, err
	}
	return int64(semver.Compare(a, b)), nil
}

func semverUnary(fn func(string) string) dispatch.ClassFunc {
	return func(args []types.Value) (types.Value, error) {
		v, err := version("version", args[0])
		if err != nil {
			return nil, err
		}
		return fn(v), nil
	}
}

// Net installs the _net family.
func Net(b *operator.Builder, c *dispatch.CatalogBuilder) {
	b.Operator(netOp).Summary("IP address checks").
		Method("contains").Named("prefix", "addr").Accepts(containers...).Class().Pure().
		Arg(types.Arg("prefix", types.TypeString).WithFormat(types.FormatCIDR)).
		Arg(types.Arg("addr", types.TypeString)).
		Summary("Whether the CIDR prefix contains the address").Done()

	c.Class(netOp, "contains", dispatch.Exactly(2), netContains)
}

func netContains(args []types.Value) (types.Value, error) {
	prefixText, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("prefix is required")
	}
	addrText, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("addr is required")
	}
	prefix, err := netip.ParsePrefix(prefixText)
	if err != nil {
		return nil, err
	}
	addr, err := netip.ParseAddr(addrText)
	if err != nil {
		return nil, err
	}
	return prefix.Contains(addr), nil
}
