package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flashlang/flash-core/pkg/common"
	"github.com/flashlang/flash-core/pkg/flash/ast"
	"github.com/flashlang/flash-core/pkg/flash/navigator"
	"github.com/flashlang/flash-core/pkg/flash/policy"
	"github.com/flashlang/flash-core/pkg/flash/postprocess"
)

var version = "dev"

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flashc",
		Short: "FLASH - a FHIR-aware expression post-processor",
		Long: `flashc lowers and flattens a FLASH abstract syntax tree: flash
blocks/rules become resolved element references, chained path
operators become step/stage sequences, and ancestor references are
bound to their enclosing step.`,
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCheckCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("flashc version %s\n", version)
		},
	}
}

func newCheckCmd() *cobra.Command {
	var policyPath string
	var recover bool
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "check [ast.json]",
		Short: "Lower and flatten a serialized FLASH AST, reporting diagnostics",
		Long: `check reads a JSON-encoded AST node tree (the shape produced by
a FLASH parser), runs it through post-processing, and prints a summary
of the result (reference tables, recovered faults and collected
diagnostics), or the resulting tree itself with --output json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return common.WrapPath(args[0], err)
			}

			var root ast.Node
			if err := json.Unmarshal(data, &root); err != nil {
				return common.WrapPath(args[0], err)
			}

			cfg := policy.DefaultConfig()
			if policyPath != "" {
				cfg, err = policy.LoadConfig(policyPath)
				if err != nil {
					return err
				}
			}
			pol := policy.New(cfg, nil)

			out, err := postprocess.Run(&root, postprocess.Options{
				Navigator: navigator.NewStaticNavigator(nil, nil),
				Policy:    pol,
				Recover:   recover,
			})
			if err != nil {
				return fmt.Errorf("post-processing failed: %w", err)
			}

			switch outputFormat {
			case "json":
				return printJSON(out)
			default:
				return printSummary(out, pol)
			}
		},
	}

	cmd.Flags().StringVar(&policyPath, "policy", "", "path to a YAML severity-threshold config")
	cmd.Flags().BoolVar(&recover, "recover", false, "collect faults instead of aborting on the first one")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json)")

	return cmd
}

func printJSON(n *ast.Node) error {
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printSummary(n *ast.Node, pol *policy.Policy) error {
	fmt.Printf("type: %s\n", n.Type)
	if n.ContainsFlash {
		fmt.Printf("structure refs: %d\n", len(n.StructureDefinitionRefs))
		fmt.Printf("element refs:   %d\n", len(n.ElementDefinitionRefs))
		for key := range n.ElementDefinitionRefs {
			fmt.Printf("  %s\n", key)
		}
	}
	if len(n.Errors) > 0 {
		fmt.Printf("recovered faults (%d):\n", len(n.Errors))
		for _, e := range n.Errors {
			fmt.Printf("  %v\n", e)
		}
	}
	diags := pol.Diagnostics()
	if len(diags) == 0 {
		fmt.Println("no diagnostics collected")
		return nil
	}
	fmt.Printf("diagnostics (%d):\n", len(diags))
	for _, d := range diags {
		fmt.Printf("  %s: %s\n", d.Code, d.Error())
	}
	return nil
}
