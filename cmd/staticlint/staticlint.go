// Command staticlint bundles the static checks used on this repository into
// a single multichecker binary.
//
// Checks included:
//   - analysis/passes/printf, structtag, loopclosure from x/tools;
//   - the staticcheck SA and ST analyzers;
//   - bodyclose, so debug-server clients close response bodies;
//   - decorder, for declaration order;
//   - exitcheck, the in-house check for os.Exit in main.main.
//
// Usage:
//
//	go vet -vettool=./cmd/staticlint/staticlint ./...
package main

import (
	"strings"

	"github.com/timakin/bodyclose/passes/bodyclose"
	"gitlab.com/bosi/decorder"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"honnef.co/go/tools/staticcheck"

	"github.com/code-sauce/procmetrics/internal/pkg/exitcheck"
)

func main() {
	checks := []*analysis.Analyzer{
		printf.Analyzer,
		structtag.Analyzer,
		loopclosure.Analyzer,
		bodyclose.Analyzer,
		decorder.Analyzer,
		exitcheck.Analyzer,
	}

	for _, v := range staticcheck.Analyzers {
		if strings.HasPrefix(v.Analyzer.Name, "SA") || strings.HasPrefix(v.Analyzer.Name, "ST") {
			checks = append(checks, v.Analyzer)
		}
	}

	multichecker.Main(checks...)
}
