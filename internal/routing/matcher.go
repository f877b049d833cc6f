package routing

import "strings"

// Kind defines how a matched request is answered.
type Kind string

const (
	KindMainDocument Kind = "main_document"
	KindAsset        Kind = "asset"
	KindConfig       Kind = "config"
)

// Target names the asset store a route resolves against.
type Target string

const (
	TargetNone   Target = ""
	TargetApp    Target = "app"
	TargetChains Target = "chains"
)

// MainDocument is the app store key served for the root and client routes.
const MainDocument = "index.html"

// Rule maps a path pattern to a handling strategy. Prefix rules match any
// path starting with Pattern; the remainder becomes the lookup key.
type Rule struct {
	Pattern string `yaml:"pattern"`
	Prefix  bool   `yaml:"prefix,omitempty"`
	Kind    Kind   `yaml:"kind"`
	Target  Target `yaml:"target,omitempty"`
	Key     string `yaml:"key,omitempty"`
}

// Label renders the rule as it appears in metrics and listings.
func (r Rule) Label() string {
	if r.Prefix {
		return r.Pattern + "*"
	}
	return r.Pattern
}

// Route is the outcome of Match for a single path.
type Route struct {
	Kind   Kind
	Target Target
	Key    string
	Label  string
}

// rules is ordered by precedence; Match returns the first hit.
var rules = []Rule{
	{Pattern: "/", Kind: KindMainDocument, Target: TargetApp, Key: MainDocument},
	{Pattern: "/index.html", Kind: KindMainDocument, Target: TargetApp, Key: MainDocument},
	{Pattern: "/block/", Prefix: true, Kind: KindMainDocument, Target: TargetApp, Key: MainDocument},
	{Pattern: "/address/", Prefix: true, Kind: KindMainDocument, Target: TargetApp, Key: MainDocument},
	{Pattern: "/static/", Prefix: true, Kind: KindAsset, Target: TargetApp},
	{Pattern: "/chains/", Prefix: true, Kind: KindAsset, Target: TargetChains},
	{Pattern: "/manifest.json", Kind: KindAsset, Target: TargetApp, Key: "manifest.json"},
	{Pattern: "/favicon.ico", Kind: KindAsset, Target: TargetApp, Key: "favicon.ico"},
	{Pattern: "/config.json", Kind: KindConfig},
}

// Rules returns a copy of the route table in precedence order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Match resolves an incoming path to a route.
func Match(path string) (Route, bool) {
	for _, rule := range rules {
		switch {
		case rule.Prefix && strings.HasPrefix(path, rule.Pattern):
			key := rule.Key
			if key == "" {
				key = path[len(rule.Pattern):]
			}
			return Route{Kind: rule.Kind, Target: rule.Target, Key: key, Label: rule.Label()}, true
		case !rule.Prefix && path == rule.Pattern:
			return Route{Kind: rule.Kind, Target: rule.Target, Key: rule.Key, Label: rule.Label()}, true
		}
	}
	return Route{}, false
}
