package sandbox

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Modules the generated scrapers may import, per flavor. The harness enforces
// this at import time inside the Python process; the static validator only
// catches what is visible in source.
var (
	staticAllowedModules = []string{
		// The generated code itself, loaded by the harness as a module.
		"scraper",
		"requests", "bs4", "urllib", "urllib3", "charset_normalizer", "idna",
		"certifi", "soupsieve", "json", "re", "time", "datetime", "math",
		"random", "string", "html", "collections", "itertools", "functools",
		"typing", "dataclasses", "copy", "decimal", "unicodedata", "textwrap",
		"base64", "hashlib", "abc", "enum", "warnings", "logging", "traceback",
		"sys", "io", "encodings", "codecs", "_typeshed",
	}
	dynamicExtraModules = []string{
		"playwright", "asyncio", "greenlet", "pyee", "concurrent", "threading",
		"queue", "selectors", "socket", "ssl", "subprocess", "signal", "os",
		"pathlib", "tempfile", "shutil", "struct", "stat", "errno", "fcntl",
		"contextlib", "inspect", "types", "weakref", "atexit", "platform",
	}
)

// harnessTemplate is the Python prelude written next to the scraper. It caps
// memory and CPU, installs the import allow-list hook, then calls
// scrape_data(url) and reports the outcome as a single marked JSON line on
// stdout so the Go side can parse it out of whatever else the scraper prints.
const harnessTemplate = `import sys, json, builtins

RESULT_MARKER = "{{.Marker}}"

def _emit(payload):
    sys.stdout.flush()
    print(RESULT_MARKER + json.dumps(payload, default=str))
    sys.stdout.flush()

{{if .Limits}}
try:
    import resource
    resource.setrlimit(resource.RLIMIT_AS, ({{.MemoryBytes}}, {{.MemoryBytes}}))
    resource.setrlimit(resource.RLIMIT_CPU, ({{.CPUSeconds}}, {{.CPUSeconds}}))
    resource.setrlimit(resource.RLIMIT_CORE, (0, 0))
except Exception:
    pass
{{end}}

_ALLOWED = frozenset({{.Allowed}})
_real_import = builtins.__import__

def _guarded_import(name, *args, **kwargs):
    top = name.split(".")[0]
    if top and not top.startswith("_") and top not in _ALLOWED:
        raise ImportError("import of module '%s' is not permitted" % top)
    return _real_import(name, *args, **kwargs)

builtins.__import__ = _guarded_import

try:
    import scraper
    result = scraper.scrape_data(sys.argv[1])
    if not isinstance(result, dict):
        _emit({"ok": False, "kind": "serialization", "error": "scrape_data returned %s, expected dict" % type(result).__name__})
    else:
        _emit({"ok": True, "result": result})
except ImportError as exc:
    _emit({"ok": False, "kind": "import", "error": str(exc)})
except MemoryError:
    _emit({"ok": False, "kind": "resource", "error": "memory limit exceeded"})
except Exception as exc:
    import traceback
    _emit({"ok": False, "kind": "runtime", "error": "%s: %s" % (type(exc).__name__, exc), "trace": traceback.format_exc()[-2000:]})
`

var harnessTmpl = template.Must(template.New("harness").Parse(harnessTemplate))

type harnessParams struct {
	Marker      string
	Allowed     string
	Limits      bool
	MemoryBytes int64
	CPUSeconds  int
}

// renderHarness produces the runner script for a flavor. The dynamic flavor
// skips RLIMIT_AS because Chromium subprocesses need their own address space;
// its budget is enforced by the overall timeout instead.
func renderHarness(flavor Flavor, memoryLimitMB, cpuSeconds int) (string, error) {
	allowed := staticAllowedModules
	limits := true
	if flavor == FlavorDynamic {
		allowed = append(append([]string{}, staticAllowedModules...), dynamicExtraModules...)
		limits = false
	}

	quoted := make([]string, len(allowed))
	for i, m := range allowed {
		quoted[i] = fmt.Sprintf("%q", m)
	}

	var buf bytes.Buffer
	err := harnessTmpl.Execute(&buf, harnessParams{
		Marker:      resultMarker,
		Allowed:     "[" + strings.Join(quoted, ", ") + "]",
		Limits:      limits,
		MemoryBytes: int64(memoryLimitMB) * 1024 * 1024,
		CPUSeconds:  cpuSeconds,
	})
	if err != nil {
		return "", fmt.Errorf("rendering harness: %w", err)
	}
	return buf.String(), nil
}
