package rewrite

import "strings"

// TargetExt is the extension every normalized link target ends up with.
const TargetExt = "norg"

// Normalize turns a raw link target into a Neorg file name: spaces in the
// name become underscores and whatever extension was present (split on the
// last dot) is replaced by TargetExt. Any input is accepted; "" yields ".norg".
func Normalize(token string) string {
	name := token
	if i := strings.LastIndex(token, "."); i >= 0 {
		name = token[:i]
	}
	name = strings.ReplaceAll(name, " ", "_")
	return name + "." + TargetExt
}
