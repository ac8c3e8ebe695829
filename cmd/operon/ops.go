package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/aledsdavies/operon/core/operator"
	"github.com/aledsdavies/operon/runtime/operators"
	"github.com/spf13/cobra"
)

func newOpsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ops [operator]",
		Short: "List registered operators and their methods",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := operators.Build(nil)
			if err != nil {
				return err
			}

			descriptors := reg.Export()
			if len(args) == 1 {
				name := args[0]
				if !reg.Has(name) {
					return lookupError(reg, name, "")
				}
				filtered := descriptors[:0]
				for _, d := range descriptors {
					if d.Operator == name {
						filtered = append(filtered, d)
					}
				}
				descriptors = filtered
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(descriptors)
			}

			useColor := ShouldUseColor(a.noColor, out)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "METHOD\tCONVENTION\tACCEPTS\tDISPATCH\tSUMMARY")
			for _, d := range descriptors {
				name := d.Name
				if d.Default {
					name += "*"
				}
				dispatchKind := d.Dispatch
				if len(d.Subject) > 0 {
					dispatchKind += "(" + strings.Join(d.Subject, "|") + ")"
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					Colorize(name, ColorCyan, useColor),
					d.Convention,
					strings.Join(d.Accepts, "|"),
					dispatchKind,
					d.Summary)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print descriptors as JSON")
	return cmd
}

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <operator.method>",
		Short: "Print the JSON Schema of a method's params",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := operators.Build(nil)
			if err != nil {
				return err
			}

			op, method := operator.SplitName(args[0])
			spec, err := reg.Lookup(op, method)
			if err != nil {
				return lookupError(reg, op, method)
			}

			schema, err := spec.ToJSONSchema()
			if err != nil {
				return err
			}
			raw, err := schema.ToJSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		},
	}
}

func lookupError(reg *operator.Registry, op, method string) error {
	_, err := reg.Lookup(op, method)
	if err == nil {
		err = fmt.Errorf("operator %q is not registered", op)
	}
	cliErr := &CLIError{Type: "lookup", Message: err.Error(), Err: err}
	if suggestion := reg.Suggest(op, method); suggestion != "" {
		cliErr.Hint = fmt.Sprintf("did you mean %s?", suggestion)
	}
	return cliErr
}
