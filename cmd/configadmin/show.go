package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-configadmin/pkg/functional"
	"github.com/goliatone/go-configadmin/pkg/orchestrator"
	"github.com/goliatone/go-configadmin/pkg/render"
)

func newShowCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.client(ctx)
			if err != nil {
				return err
			}
			cfg, err := client.GetConfiguration(ctx)
			if err != nil {
				return err
			}

			var output []byte
			switch strings.ToLower(format) {
			case "yaml", "yml":
				output, err = functional.ToYAML(cfg)
			case "json":
				output, err = functional.ToJSON(cfg)
			case "text", "":
				var forms *orchestrator.Orchestrator
				forms, err = a.forms()
				if err != nil {
					return err
				}
				var values map[string]any
				values, err = functional.ToValues(cfg)
				if err != nil {
					return err
				}
				output, err = forms.Generate(ctx, orchestrator.Request{
					RenderOptions: render.RenderOptions{Values: values, ReadOnly: true},
				})
			default:
				return fmt.Errorf("unknown format %q (text, yaml or json)", format)
			}
			if err != nil {
				return err
			}
			_, err = a.out.Write(output)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, yaml or json")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the change history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.client(ctx)
			if err != nil {
				return err
			}
			entries, err := client.GetHistory(ctx)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				a.printf("No changes recorded.\n")
				return nil
			}
			for _, entry := range entries {
				a.printf("%s\n", functional.FormatDate(entry.Date))
				for _, line := range strings.Split(strings.TrimRight(entry.Message, "\n"), "\n") {
					a.printf("    %s\n", line)
				}
			}
			return nil
		},
	}
}
