// yasm CLI - assemble, compile, inspect and run instruction sequences
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	"gopkg.in/yaml.v3"

	"github.com/chazu/yasm/asm"
	"github.com/chazu/yasm/compiler"
	"github.com/chazu/yasm/host"
	"github.com/chazu/yasm/manifest"
	"github.com/chazu/yasm/vm"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	verbosity := flag.Int("v", 0, "Log verbosity (2 and above logs debug output)")
	trace := flag.Bool("trace", false, "Log every executed instruction (needs -v 2)")
	maxDepth := flag.Int("max-call-depth", 0, "Maximum nested method/block calls")
	configPath := flag.String("config", "", "Path to a yasm.toml (default: search upward from the working directory)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: yasm [options] <command> [file]\n\n")
		fmt.Fprintf(os.Stderr, "Files ending in .yasm are text assembly; .yaml, .yml and .json files hold\n")
		fmt.Fprintf(os.Stderr, "either an AST document or an instruction sequence dump.\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  run FILE       Evaluate a program with the host kernel\n")
		fmt.Fprintf(os.Stderr, "  compile FILE   Compile an AST document and print its disassembly\n")
		fmt.Fprintf(os.Stderr, "  asm FILE       Assemble a .yasm file and print its disassembly\n")
		fmt.Fprintf(os.Stderr, "  disasm FILE    Print the disassembly of any supported file\n")
		fmt.Fprintf(os.Stderr, "  dump FILE      Print the array dump as YAML\n")
		fmt.Fprintf(os.Stderr, "  digest FILE    Print the content digest\n\n")
		fmt.Fprintf(os.Stderr, "FILE defaults to [source] entry in yasm.toml.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags given on the command line override yasm.toml.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			cfg.Log.Verbosity = *verbosity
		case "trace":
			cfg.VM.Trace = *trace
		case "max-call-depth":
			cfg.VM.MaxCallDepth = *maxDepth
		}
	})
	commonlog.Configure(cfg.Log.Verbosity, cfg.LogFile())

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	cmd := args[0]
	path := cfg.EntryPath()
	if len(args) > 1 {
		path = args[1]
	}
	if path == "" {
		fmt.Fprintf(os.Stderr, "Error: %s: no file given and no [source] entry configured\n", cmd)
		os.Exit(2)
	}

	if err := dispatch(cmd, path, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*manifest.Manifest, error) {
	if path != "" {
		return manifest.LoadFile(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, err := manifest.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	return m, nil
}

func dispatch(cmd, path string, cfg *manifest.Manifest) error {
	switch cmd {
	case "run":
		seq, err := load(path)
		if err != nil {
			return err
		}
		return run(seq, cfg)

	case "compile":
		if !isDocument(path) {
			return fmt.Errorf("compile: %s is not an AST document", path)
		}
		seq, err := load(path)
		if err != nil {
			return err
		}
		fmt.Print(seq.Disassemble())

	case "asm":
		if filepath.Ext(path) != ".yasm" {
			return fmt.Errorf("asm: %s is not a .yasm file", path)
		}
		seq, err := load(path)
		if err != nil {
			return err
		}
		fmt.Print(seq.Disassemble())

	case "disasm":
		seq, err := load(path)
		if err != nil {
			return err
		}
		fmt.Print(seq.Disassemble())

	case "dump":
		seq, err := load(path)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(vm.Portable(seq.ToArray()))
		if err != nil {
			return fmt.Errorf("dump: %w", err)
		}
		os.Stdout.Write(out)

	case "digest":
		seq, err := load(path)
		if err != nil {
			return err
		}
		digest, err := seq.Digest()
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", digest, path)

	default:
		return fmt.Errorf("unknown command %q (see yasm -h)", cmd)
	}
	return nil
}

func isDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// load reads text assembly, an AST document or an array dump.
func load(path string) (*vm.InstructionSequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !isDocument(path) {
		return asm.Parse(path, string(data))
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(doc.Content) > 0 && doc.Content[0].Kind == yaml.SequenceNode {
		var dump []any
		if err := doc.Content[0].Decode(&dump); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		seq, err := vm.FromArray(dump)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return seq, nil
	}

	node, err := compiler.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	label := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return compiler.Compile(node, compiler.WithLabel(label))
}

func run(seq *vm.InstructionSequence, cfg *manifest.Manifest) error {
	interp := vm.NewInterpreter(host.NewKernel(),
		vm.WithMaxCallDepth(cfg.VM.MaxCallDepth),
		vm.WithTrace(cfg.VM.Trace),
	)
	result, err := interp.Execute(seq, nil)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		out.WriteString("=> ")
	}
	out.WriteString(vm.Inspect(result))
	out.WriteByte('\n')
	_, err = os.Stdout.Write(out.Bytes())
	return err
}
