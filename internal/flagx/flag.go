// Package flagx lets several loaders share os.Args without tripping over each
// other's flags: every loader parses only the flags it owns.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs returns the subset of args made of allowed flags and their
// values. Both "-f value" and "-f=value" forms are understood; a following
// token that starts with "-" is never taken as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// ConfigFiles extracts the JSON config path (-c / -config) and the dotenv
// path (-env) from args. Missing flags yield empty strings.
func ConfigFiles(args []string) (jsonPath string, envPath string) {
	filtered := FilterArgs(args, []string{"-c", "-config", "-env"})

	fs := flag.NewFlagSet("files", flag.ContinueOnError)
	fs.StringVar(&jsonPath, "config", "", "path to JSON config file")
	fs.StringVar(&jsonPath, "c", "", "path to JSON config file (short)")
	fs.StringVar(&envPath, "env", "", "path to .env file")
	_ = fs.Parse(filtered)

	return jsonPath, envPath
}
