package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/V4-project/v4front/pkg/compiler/forth"
	"github.com/V4-project/v4front/pkg/vm"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: v4front build <source.fs> [-o out.v4b] [-dis]")
	fmt.Fprintln(os.Stderr, "       v4front dis <file.v4b>")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 3 {
		usage()
	}

	switch os.Args[1] {
	case "build":
		runBuild(os.Args[2], os.Args[3:])
	case "dis":
		runDis(os.Args[2])
	default:
		usage()
	}
}

func runBuild(path string, args []string) {
	buildCmd := flag.NewFlagSet("build", flag.ExitOnError)
	outPath := buildCmd.String("o", "", "Output .v4b path (default: source path with .v4b)")
	dis := buildCmd.Bool("dis", false, "Print a disassembly listing after compiling")
	buildCmd.Parse(args)

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	unit, err := forth.Compile(src)
	if err != nil {
		if ce, ok := err.(*forth.Error); ok {
			fmt.Fprintln(os.Stderr, forth.FormatError(ce))
		} else {
			fmt.Fprintf(os.Stderr, "Compilation error: %v\n", err)
		}
		os.Exit(1)
	}

	out := *outPath
	if out == "" {
		out = path + ".v4b"
	}
	if err := vm.SaveBytecode(out, unit.Main); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", out, err)
		os.Exit(1)
	}

	fmt.Printf("%s: %d bytes main, %d words -> %s\n", path, len(unit.Main), len(unit.Words), out)

	if *dis {
		fmt.Println("main:")
		vm.DisasmPrint(unit.Main, os.Stdout)
		for i, w := range unit.Words {
			fmt.Printf("word %d %s:\n", i, w.Name)
			vm.DisasmPrint(w.Code, os.Stdout)
		}
	}
}

func runDis(path string) {
	code, err := vm.LoadBytecode(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", path, err)
		os.Exit(1)
	}
	vm.DisasmPrint(code, os.Stdout)
}
