package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-configadmin/pkg/configapi"
	"github.com/goliatone/go-configadmin/pkg/functional"
	"github.com/goliatone/go-configadmin/pkg/render"
	"github.com/goliatone/go-configadmin/pkg/renderers/tui"
	"github.com/goliatone/go-configadmin/pkg/validation"
)

func newEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit the configuration field by field in the terminal",
		Long: `edit walks every field of the configuration, offering the current value as
the default answer. Invalid answers are asked again. The changes are listed
and sent only after confirmation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd.Context())
		},
	}
}

func (a *app) edit(ctx context.Context) error {
	client, err := a.client(ctx)
	if err != nil {
		return err
	}
	current, err := client.GetConfiguration(ctx)
	if err != nil {
		return err
	}
	values, err := functional.ToValues(current)
	if err != nil {
		return err
	}
	forms, err := a.forms()
	if err != nil {
		return err
	}
	form, err := forms.Form(ctx)
	if err != nil {
		return err
	}

	editor, err := tui.New(tui.WithPromptDriver(a.prompts), tui.WithOutput(a.out))
	if err != nil {
		return err
	}
	edited, err := editor.Edit(ctx, form, values, nil)
	if errors.Is(err, tui.ErrAborted) {
		a.printf("Aborted, nothing sent.\n")
		return nil
	}
	if err != nil {
		return err
	}

	next, err := functional.FromValues(edited)
	if err != nil {
		return err
	}
	changes, err := functional.Diff(current, next)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		a.printf("%s\n", functional.ResultNothingToUpdate)
		return nil
	}
	a.printChanges(changes)

	ok, err := editor.Confirm(ctx, fmt.Sprintf("Send %d change(s) to profile %s?", len(changes), client.Profile()), false)
	if errors.Is(err, tui.ErrAborted) || (err == nil && !ok) {
		a.printf("Nothing sent.\n")
		return nil
	}
	if err != nil {
		return err
	}
	return a.put(ctx, client, next, len(changes))
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a YAML or JSON configuration file against the form rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.readChecked(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printf("%s is valid.\n", args[0])
			return nil
		},
	}
}

func newApplyCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "apply FILE",
		Short: "Send a YAML or JSON configuration file to the API",
		Long: `apply validates FILE, lists how it differs from the configuration the API
serves and sends it. With --dry-run only the differences are listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			next, err := a.readChecked(ctx, args[0])
			if err != nil {
				return err
			}
			client, err := a.client(ctx)
			if err != nil {
				return err
			}
			current, err := client.GetConfiguration(ctx)
			if err != nil {
				return err
			}
			changes, err := functional.Diff(current, next)
			if err != nil {
				return err
			}
			if len(changes) == 0 {
				a.printf("%s\n", functional.ResultNothingToUpdate)
				return nil
			}
			a.printChanges(changes)
			if dryRun {
				a.printf("Dry run, nothing sent.\n")
				return nil
			}
			return a.put(ctx, client, next, len(changes))
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the differences without sending")
	return cmd
}

// readChecked parses path and validates it with the form rules. Issues are
// printed one per line.
func (a *app) readChecked(ctx context.Context, path string) (functional.FunctionalConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return functional.FunctionalConfiguration{}, err
	}
	cfg, err := functional.ParseDocument(data, formatOf(path))
	if err != nil {
		return functional.FunctionalConfiguration{}, err
	}
	values, err := functional.ToValues(cfg)
	if err != nil {
		return functional.FunctionalConfiguration{}, err
	}
	forms, err := a.forms()
	if err != nil {
		return functional.FunctionalConfiguration{}, err
	}
	form, err := forms.Form(ctx)
	if err != nil {
		return functional.FunctionalConfiguration{}, err
	}
	result := validation.Validate(form, values)
	if !result.Valid {
		for _, issue := range result.Issues {
			a.printf("%s: %s\n", issue.Path, issue.Message)
		}
		return functional.FunctionalConfiguration{}, fmt.Errorf("%s: %d invalid field(s)", path, len(result.Issues))
	}
	return cfg, nil
}

func (a *app) put(ctx context.Context, client *configapi.Client, cfg functional.FunctionalConfiguration, changes int) error {
	result, err := client.PutConfiguration(ctx, cfg)
	if err != nil {
		if configapi.IsUpdateFailure(err) {
			return errors.New(functional.ResultUpdateFailed)
		}
		return err
	}
	a.logger.Info("configuration sent", zap.String("profile", client.Profile()), zap.Int("changes", changes), zap.String("result", result))
	a.printf("%s\n", result)
	if result == functional.ResultUpdateFailed {
		return errors.New(result)
	}
	return nil
}

func (a *app) printChanges(changes []functional.Change) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tCURRENT\tNEW")
	for _, change := range changes {
		fmt.Fprintf(w, "%s\t%s\t%s\n", change.Key, orDash(render.FormatValue(change.CurrentValue)), orDash(render.FormatValue(change.NewValue)))
	}
	_ = w.Flush()
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	return ""
}
