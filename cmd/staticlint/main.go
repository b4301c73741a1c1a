// Staticlint is the project's lint binary. It bundles a fixed set of
// go/analysis passes, the ineffassign and nilerr analyzers and the local
// noosexit check into one multichecker, and extends that set with the
// staticcheck analyzers named in a config.json placed next to the binary.
//
// Usage:
//
//	staticlint ./...
package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"honnef.co/go/tools/staticcheck"

	"github.com/patric-chuzhbe/tinylink/cmd/staticlint/noosexit"
)

// configFileName sits in the same directory as the staticlint binary and
// lists the staticcheck analyzers to enable by name.
const configFileName = `config.json`

type lintConfig struct {
	Staticcheck []string
}

// baseAnalyzers are always on, regardless of the config file.
var baseAnalyzers = []*analysis.Analyzer{
	copylock.Analyzer,
	loopclosure.Analyzer,
	lostcancel.Analyzer,
	printf.Analyzer,
	structtag.Analyzer,
	unmarshal.Analyzer,
	unreachable.Analyzer,

	ineffassign.Analyzer,
	nilerr.Analyzer,

	noosexit.Analyzer,
}

func loadConfig() (*lintConfig, error) {
	binaryPath, err := os.Executable()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(binaryPath), configFileName))
	if err != nil {
		return nil, err
	}

	cfg := &lintConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func selectedStaticcheckAnalyzers(cfg *lintConfig) []*analysis.Analyzer {
	enabled := make(map[string]bool, len(cfg.Staticcheck))
	for _, name := range cfg.Staticcheck {
		enabled[name] = true
	}

	var result []*analysis.Analyzer
	for _, lintPass := range staticcheck.Analyzers {
		if enabled[lintPass.Analyzer.Name] {
			result = append(result, lintPass.Analyzer)
		}
	}

	return result
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	multichecker.Main(append(baseAnalyzers, selectedStaticcheckAnalyzers(cfg)...)...)
}
