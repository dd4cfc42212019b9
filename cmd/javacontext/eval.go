package main

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dshills/javacontext-mcp/internal/classfile"
	"github.com/dshills/javacontext-mcp/internal/eval"
)

func newEvalCmd() *cobra.Command {
	var (
		declaringType string
		static        bool
		imports       []string
		locals        []string
		disassemble   bool
	)
	cmd := &cobra.Command{
		Use:   "eval <snippet>",
		Short: "Compile a code snippet against the indexed projects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			capture := eval.Capture{DeclaringType: declaringType, Static: static}
			for _, l := range locals {
				typeName, name, ok := strings.Cut(l, ":")
				if !ok || typeName == "" || name == "" {
					return fmt.Errorf("local %q is not of the form type:name", l)
				}
				typeName, final := strings.CutPrefix(typeName, "final ")
				capture.Locals = append(capture.Locals, eval.LocalVariable{Name: name, TypeName: typeName, Final: final})
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			w, err := openWorkspace(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := w.Close(); err == nil {
					err = cerr
				}
			}()
			// new entries only resolve once merged
			if err := w.manager.MergeAll(cmd.Context()); err != nil {
				return err
			}

			opts := cfg.EvalOptions()
			if len(imports) > 0 {
				opts.Imports = imports
			}
			ec, err := eval.NewContext(w.engine.NameEnvironment(cmd.Context()), opts)
			if err != nil {
				return err
			}
			defer ec.Close()

			out, err := ec.Evaluate(args[0], capture)
			if err != nil {
				return err
			}
			return printOutcome(cmd, out, disassemble)
		},
	}
	cmd.Flags().StringVarP(&declaringType, "type", "t", "", "dotted name of the type the snippet runs in")
	cmd.Flags().BoolVar(&static, "static", false, "run in a static context of the type")
	cmd.Flags().StringArrayVarP(&imports, "import", "i", nil, "import of the generated class (can be repeated)")
	cmd.Flags().StringArrayVar(&locals, "local", nil, "visible local variable as [final ]type:name (can be repeated)")
	cmd.Flags().BoolVarP(&disassemble, "disassemble", "d", false, "print the generated class files")
	return cmd
}

func printOutcome(cmd *cobra.Command, out *eval.Outcome, disassemble bool) error {
	problems := out.Problems()
	if len(problems) > 0 {
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"Severity", "Line", "Problem", "Message", "Suggestion"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)
		for _, p := range problems {
			severity := "warning"
			if p.IsError() {
				severity = "error"
			}
			table.Append([]string{severity, fmt.Sprintf("%d", p.Line), string(p.ID), p.Message, p.Suggestion})
		}
		table.Render()
	}
	if !out.Succeeded() {
		return fmt.Errorf("snippet did not compile: %d problem(s)", len(problems))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "compiled %s (%d class file(s), has result: %v)\n", out.ClassName, len(out.ClassFiles), out.HasResult)
	if !disassemble {
		return nil
	}
	for _, c := range out.ClassFiles {
		cf, err := classfile.Parse(c.Bytes)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", c.Name, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), classfile.Disassemble(cf))
	}
	return nil
}
