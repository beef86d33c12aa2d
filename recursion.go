package delegate

import "fmt"

// CurrentRecursionLevel walks the ancestor-session chain and returns the
// delegation depth of the given session. A root session is at level 0.
func CurrentRecursionLevel(sess SessionHandle) int {
	level := 0
	for sess != nil {
		parent := sess.Parent()
		if parent == nil {
			break
		}
		level++
		sess = parent
	}
	return level
}

// checkRecursionLimit rejects delegation once the current depth reaches the
// configured maximum. A negative maximum is a configuration error caught by
// DelegationConfig.Validate before depth is computed.
func checkRecursionLimit(level, maxLevel int) error {
	if level >= maxLevel {
		return fmt.Errorf("%w: current level %d, maximum %d", ErrRecursionLimit, level, maxLevel)
	}
	return nil
}
