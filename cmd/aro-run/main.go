/*
Aro-run parses, analyzes, and executes one ARO program file.

Usage:

	aro-run [flags] PROGRAM_FILE

Once started, aro-run lexes and parses the named program file, runs the
semantic analyzer over it, and — if analysis reports no errors — executes
the program's entry feature set through the Execution Engine, printing
the resulting Response. SIGINT/SIGTERM trigger a graceful shutdown.

The flags are:

	-c, --config PATH
		Load engine defaults from the given TOML file. If not given, will
		default to the value of environment variable ARO_CONFIG. If no
		config file is specified, built-in defaults are used.

	-e, --entry NAME
		Run the named feature set as the entry point. If not given, will
		default to the value of environment variable ARO_ENTRY_POINT, and
		if that is not given, falls back to the config file's entry_point
		(default "Application-Start").

	-o, --output-context CONTEXT
		Render the Response as "machine" (JSON), "human", or "developer".
		Defaults to the config file's output_context.
*/
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dekarrin/rosed"
	"github.com/spf13/pflag"

	"github.com/arolang/aro-sub011/internal/aro/config"
	"github.com/arolang/aro-sub011/internal/aro/engine"
	"github.com/arolang/aro-sub011/internal/aro/parser"
	"github.com/arolang/aro-sub011/internal/aro/runtime"
	"github.com/arolang/aro-sub011/internal/aro/sema"
)

const (
	EnvConfig = "ARO_CONFIG"
	EnvEntry  = "ARO_ENTRY_POINT"
)

var (
	flagConfig = pflag.StringP("config", "c", "", "Load engine defaults from the given TOML file.")
	flagEntry  = pflag.StringP("entry", "e", "", "Run the named feature set as the entry point.")
	flagOutput = pflag.StringP("output-context", "o", "", "Render the Response as machine, human, or developer.")
)

func main() {
	pflag.Parse()

	args := pflag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Expected exactly one PROGRAM_FILE argument\nDo -h for help.\n")
		os.Exit(1)
	}

	cfgPath := os.Getenv(EnvConfig)
	if pflag.Lookup("config").Changed {
		cfgPath = *flagConfig
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL could not load config: %s\n", err)
		os.Exit(1)
	}

	entryPoint := cfg.EntryPoint
	if v := os.Getenv(EnvEntry); v != "" {
		entryPoint = v
	}
	if pflag.Lookup("entry").Changed {
		entryPoint = *flagEntry
	}

	if pflag.Lookup("output-context").Changed {
		cfg.OutputContext = *flagOutput
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL could not read %s: %s\n", args[0], err)
		os.Exit(1)
	}

	prog, diags := parser.Parse(string(src))
	if diags.HasErrors() {
		fmt.Fprint(os.Stderr, diags.Render(cfg.OutputContext))
		os.Exit(1)
	}

	analyzed, diags := sema.Analyze(prog)
	if diags.HasErrors() {
		fmt.Fprint(os.Stderr, diags.Render(cfg.OutputContext))
		os.Exit(1)
	}

	eng := engine.New(engine.Config{
		OutputContext:     cfg.OutputContext,
		WorkerLimit:       cfg.WorkerLimit,
		LogLevel:          cfg.LogLevel,
		LogFormat:         cfg.LogFormat,
		QuiescenceTimeout: cfg.QuiescenceTimeout.Std(),
	})
	eng.ListenForSignals()

	resp, err := eng.Execute(analyzed, entryPoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL %s\n", err)
		os.Exit(1)
	}

	fmt.Println(renderResponse(cfg.OutputContext, resp))

	if resp.Status == "Error" {
		os.Exit(1)
	}
}

// renderResponse renders resp per output context: "machine" as compact
// JSON, "human"/"developer" as a line-wrapped status/reason/data summary
// via dekarrin/rosed, matching internal/aro/diag's human rendering.
func renderResponse(outputContext string, resp runtime.Response) string {
	if outputContext != "human" && outputContext != "developer" {
		out, _ := json.Marshal(map[string]any{
			"status": resp.Status,
			"reason": resp.Reason,
			"data":   resp.Data.Raw,
		})
		return string(out)
	}

	line := fmt.Sprintf("%s: %v", resp.Status, resp.Data.Raw)
	if resp.Reason != "" {
		line = fmt.Sprintf("%s (%s): %v", resp.Status, resp.Reason, resp.Data.Raw)
	}
	return rosed.Edit(line).Wrap(72).String()
}
