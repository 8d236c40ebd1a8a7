// Package sandbox - validator.go performs the static safety pass over
// generated scraper code before anything is executed.
package sandbox

import (
	"fmt"
	"regexp"
)

// Violation describes a disallowed construct found in scraper code.
type Violation struct {
	Pattern string
	Match   string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("disallowed construct %q (matched %s)", v.Match, v.Pattern)
}

type rule struct {
	name string
	re   *regexp.Regexp
}

// disallowed blocks dynamic code execution, process spawning and filesystem
// or network escapes that the runtime import hook cannot catch on its own.
var disallowed = []rule{
	{"eval", regexp.MustCompile(`\beval\s*\(`)},
	{"exec", regexp.MustCompile(`\bexec\s*\(`)},
	{"compile", regexp.MustCompile(`(^|[^.\w])compile\s*\(`)},
	{"dynamic-import", regexp.MustCompile(`__import__\s*\(`)},
	{"importlib", regexp.MustCompile(`\bimportlib\b`)},
	{"subprocess", regexp.MustCompile(`\bsubprocess\b`)},
	{"os-system", regexp.MustCompile(`\bos\s*\.\s*(system|popen|exec\w*|spawn\w*|fork)\b`)},
	{"shutil", regexp.MustCompile(`\bshutil\b`)},
	{"socket", regexp.MustCompile(`\bsocket\b`)},
	{"ctypes", regexp.MustCompile(`\bctypes\b`)},
	{"file-write", regexp.MustCompile(`\bopen\s*\([^)]*["'][wax]\+?["']`)},
	{"builtins-access", regexp.MustCompile(`__builtins__`)},
	{"globals-access", regexp.MustCompile(`\b(globals|vars)\s*\(\s*\)`)},
	{"getattr-dunder", regexp.MustCompile(`getattr\s*\([^)]*__`)},
}

// Validate scans code for disallowed constructs. It returns the first
// *Violation found, or nil when the code passes the static checks.
func Validate(code string) error {
	for _, r := range disallowed {
		if m := r.re.FindString(code); m != "" {
			return &Violation{Pattern: r.name, Match: m}
		}
	}
	return nil
}
