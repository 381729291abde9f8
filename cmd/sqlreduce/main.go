package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nnaka2992/sqlreduce/internal/logx"
	"github.com/nnaka2992/sqlreduce/internal/oracle"
	"github.com/nnaka2992/sqlreduce/internal/parser"
	"github.com/nnaka2992/sqlreduce/internal/reduce"
	"github.com/nnaka2992/sqlreduce/internal/rules"
)

var (
	version = "0.1.0"

	fileFlag        string
	databaseFlag    string
	timeoutFlag     time.Duration
	retryDelayFlag  time.Duration
	useSQLStateFlag bool
	verboseFlag     bool
	debugFlag       bool
	noColorFlag     bool
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := buildCommand()
	cmd.SetArgs(args)

	var exitCode int
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		err := runReduce(cmd, args)
		if err != nil {
			exitCode = determineExitCode(err)
		}
		return err
	}

	if err := cmd.Execute(); err != nil {
		if exitCode == 0 {
			return 1 // default error code for flag parsing errors
		}
		return exitCode
	}

	return 0
}

func buildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "sqlreduce [SQL]",
		Short:        "minimize a SQL script to the smallest one reproducing the same database error",
		Version:      version,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "read SQL from file")
	cmd.Flags().StringVarP(&databaseFlag, "database", "d", "", "connection string for the oracle database (required)")
	cmd.Flags().DurationVarP(&timeoutFlag, "timeout", "t", 500*time.Millisecond, "per-statement timeout")
	cmd.Flags().DurationVar(&retryDelayFlag, "retry-delay", time.Second, "delay between oracle connection retries")
	cmd.Flags().BoolVar(&useSQLStateFlag, "use-sqlstate", false, "compare outcomes by SQLSTATE code instead of error message")
	cmd.Flags().BoolVar(&verboseFlag, "verbose", false, "print each reduction attempt")
	cmd.Flags().BoolVar(&debugFlag, "debug", false, "print each candidate's parse tree (implies --verbose)")
	cmd.Flags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")

	return cmd
}

func runReduce(cmd *cobra.Command, args []string) error {
	logx.SetVerbose(verboseFlag)
	logx.SetDebug(debugFlag)
	logx.SetNoColor(noColorFlag)

	if databaseFlag == "" {
		return fmt.Errorf("--database is required")
	}

	sql, err := getSQLInput(cmd, args)
	if err != nil {
		return err
	}

	p := parser.NewParser()
	tree, err := p.Parse(sql)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	table, err := rules.Load()
	if err != nil {
		return fmt.Errorf("loading rule table: %w", err)
	}

	o := oracle.New(oracle.Config{
		DSN:         databaseFlag,
		Timeout:     timeoutFlag,
		UseSQLState: useSQLStateFlag,
		RetryDelay:  retryDelayFlag,
	})

	ctx := context.Background()
	if err := o.CheckConnection(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}

	st := reduce.New(tree, table, o, p)
	if err := reduce.VerifyRoundTrip(ctx, st, sql); err != nil {
		return err
	}

	logx.Infof("original outcome: %s", st.ExpectedError)
	if err := reduce.Loop(ctx, st); err != nil {
		return fmt.Errorf("reduction failed: %w", err)
	}

	reduced, err := p.Deparse(st.Tree)
	if err != nil {
		return fmt.Errorf("deparsing the reduced query: %w", err)
	}

	fmt.Println(reduced)
	fmt.Printf("\n-- %d candidates tried, %d oracle calls\n", st.Called, len(st.Seen))
	return nil
}

// getSQLInput retrieves SQL from the file flag, the positional argument, or
// stdin, in that priority order — the teacher's getSQLInput, unchanged.
func getSQLInput(cmd *cobra.Command, args []string) (string, error) {
	if fileFlag != "" {
		content, err := os.ReadFile(fileFlag)
		if err != nil {
			return "", fmt.Errorf("reading file: %w", err)
		}
		return string(content), nil
	}

	if len(args) > 0 {
		return args[0], nil
	}

	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(content), nil
	}

	_ = cmd.Usage()
	return "", fmt.Errorf("no SQL provided")
}

func determineExitCode(err error) int {
	if isParseError(err) {
		return 2
	}
	return 1
}

func isParseError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "parse error") ||
		strings.Contains(err.Error(), "syntax error"))
}
