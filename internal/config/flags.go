package config

import "fmt"

// ExtractPairFlags scans args for every occurrence of a flag in names,
// each of which consumes exactly the two argv tokens that follow it
// (spec.md §6's `-H KEY VALUE`, `-e KEY VALUE`, and
// `--named-server NAME COMMAND_STRING` all take this shape). pflag has
// no native two-value flag, so this runs as a pre-pass before cobra
// ever sees argv: matched flags and their two tokens are removed from
// the returned remaining slice, leaving pflag to parse everything
// else normally.
//
// Parsing stops consuming pair flags at a literal "--", since
// everything after that belongs to the default server's argv, not to
// proxy flags.
func ExtractPairFlags(args []string, names ...string) (remaining []string, pairs [][2]string, err error) {
	isPairFlag := make(map[string]bool, len(names))
	for _, n := range names {
		isPairFlag[n] = true
	}

	remaining = make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			remaining = append(remaining, args[i:]...)
			break
		}
		if !isPairFlag[a] {
			remaining = append(remaining, a)
			continue
		}
		if i+2 >= len(args) {
			return nil, nil, fmt.Errorf("flag %s requires two arguments", a)
		}
		pairs = append(pairs, [2]string{args[i+1], args[i+2]})
		i += 2
	}
	return remaining, pairs, nil
}

// pairsToMap turns a slice of (key, value) pairs into a map, later
// entries overwriting earlier ones with the same key (repeated flags
// for the same key take the last value, matching the teacher's
// repeated-flag handling elsewhere in the CLI).
func pairsToMap(pairs [][2]string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p[0]] = p[1]
	}
	return m
}
