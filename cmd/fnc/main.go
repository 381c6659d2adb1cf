package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fnlang/pkg/compiler"
	"fnlang/pkg/config"
)

// Exit codes form the driver contract:
//
//	0 OK
//	1 lexer, parser or unclassified failure
//	2 cannot open input
//	3 empty input
//	4 resolver errors
//	5 type errors
const (
	exitOK = iota
	exitFailure
	exitCannotOpen
	exitEmptyInput
	exitScopeErrors
	exitTypeErrors
)

var (
	cfgPath string
	cfg     *config.Config
)

func fail(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}

// readSource loads the input file (the configured default when no
// argument was given) and enforces the open/empty exit codes.
func readSource(args []string) string {
	path := cfg.Input.Path
	if len(args) > 0 {
		path = args[0]
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fail(exitCannotOpen, "Error: could not open '%s'.", path)
	}
	if len(data) == 0 {
		fail(exitEmptyInput, "Error: '%s' is empty.", path)
	}
	return string(data)
}

// exitCodeFor maps a pipeline error to the driver contract.
func exitCodeFor(err error) int {
	var stage *compiler.StageError
	if errors.As(err, &stage) {
		switch stage.Stage {
		case "scope analysis":
			return exitScopeErrors
		case "type checking":
			return exitTypeErrors
		}
	}
	return exitFailure
}

func lexOrDie(src string) []compiler.Token {
	tokens, err := compiler.Lex(src)
	if err != nil {
		fail(exitFailure, "Lexer error: %v", err)
	}
	return tokens
}

func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens [file]",
		Short: "Print the token list for a source file",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			src := readSource(args)
			listing := compiler.FormatTokens(lexOrDie(src))
			fmt.Println(listing)
			if cfg.Dump.Tokens != "" {
				if err := os.WriteFile(cfg.Dump.Tokens, []byte(listing+"\n"), 0o644); err != nil {
					fail(exitFailure, "Error: could not write '%s': %v", cfg.Dump.Tokens, err)
				}
			}
		},
	}
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file]",
		Short: "Lex, parse and scope-check a source file; dump the tree when dump.ast is set",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			src := readSource(args)
			listing := compiler.FormatTokens(lexOrDie(src))
			fmt.Println(listing)
			if cfg.Dump.Tokens != "" {
				if err := os.WriteFile(cfg.Dump.Tokens, []byte(listing+"\n"), 0o644); err != nil {
					fail(exitFailure, "Error: could not write '%s': %v", cfg.Dump.Tokens, err)
				}
			}
			prog, _, err := compiler.Frontend(src)
			if err != nil {
				fail(exitCodeFor(err), "%v", err)
			}
			fmt.Println()
			fmt.Println("[Scope OK]")
			fmt.Println()
			if cfg.Dump.AST {
				fmt.Print(prog.Dump())
			}
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Run a source file through the type checker",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			src := readSource(args)
			prog, res, err := compiler.Frontend(src)
			if err != nil {
				fail(exitCodeFor(err), "%v", err)
			}
			report := compiler.Check(prog, res)
			if report.HasErrors() {
				fmt.Fprintln(os.Stderr, "Type checking reported errors:")
				for _, d := range report.Diagnostics {
					fmt.Fprintf(os.Stderr, "  [%s] %s\n", d.Kind, d.Message)
				}
				os.Exit(exitTypeErrors)
			}
			fmt.Println("[Types OK]")
		},
	}
}

func newIRCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ir [file]",
		Short: "Compile a source file down to three-address IR",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			src := readSource(args)
			ir, err := compiler.Compile(src)
			if err != nil {
				fail(exitCodeFor(err), "%v", err)
			}
			text := ir.String()
			fmt.Print(text)
			if cfg.Dump.IR != "" {
				if err := os.WriteFile(cfg.Dump.IR, []byte(text), 0o644); err != nil {
					fail(exitFailure, "Error: could not write '%s': %v", cfg.Dump.IR, err)
				}
			}
		},
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "fnc",
		Short:         "Compiler front-end for the fn language",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			return err
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "fnc.yaml", "path to the driver config file")
	rootCmd.AddCommand(newTokensCmd(), newParseCmd(), newCheckCmd(), newIRCmd())

	if err := rootCmd.Execute(); err != nil {
		fail(exitFailure, "%v", err)
	}
}
