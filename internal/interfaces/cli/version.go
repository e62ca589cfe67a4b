package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leohfurlan/reometro-score/internal/domain/catalog"
	"github.com/leohfurlan/reometro-score/internal/domain/scoring"
	"github.com/leohfurlan/reometro-score/pkg/errors"
)

// NewVersionCmd creates the `version` command group for managing scoring
// versions: immutable snapshots of parameter specs plus action rules.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Manage scoring versions",
		Long: `Manage the append-only scoring version store.

A version snapshots the per-product parameter specs and the action-rule
ladder.  Exactly one version is active at a time; activating a version
archives the previous one.  Archived versions are never modified, so old
results stay explainable.`,
	}

	cmd.AddCommand(
		newVersionListCmd(),
		newVersionShowCmd(),
		newVersionCreateCmd(),
		newVersionActivateCmd(),
		newVersionArchiveCmd(),
		newVersionInitCmd(),
	)

	return cmd
}

func newVersionListCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all scoring versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := requireContext(cmd)
			if err != nil {
				return err
			}
			conn, svc, err := openStore(cliCtx)
			if err != nil {
				return err
			}
			defer conn.Close()

			versions, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd, versions)
			}

			rows := make([][]string, 0, len(versions))
			for _, v := range versions {
				rows = append(rows, []string{
					strconv.FormatInt(v.ID, 10),
					v.Label,
					string(v.Status),
					v.CreatedAt.Format("2006-01-02 15:04"),
					v.Notes,
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), FormatTable(
				[]string{"ID", "LABEL", "STATUS", "CREATED", "NOTES"}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print versions as JSON")
	return cmd
}

func newVersionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one version including its snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := requireContext(cmd)
			if err != nil {
				return err
			}
			id, err := parseVersionID(args[0])
			if err != nil {
				return err
			}
			conn, svc, err := openStore(cliCtx)
			if err != nil {
				return err
			}
			defer conn.Close()

			v, err := svc.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, v)
		},
	}
	return cmd
}

func newVersionCreateCmd() *cobra.Command {
	var (
		label    string
		notes    string
		specs    string
		rules    string
		activate bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft version from spec and rule files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := requireContext(cmd)
			if err != nil {
				return err
			}
			snap, err := snapshotFromFiles(cliCtx, specs, rules)
			if err != nil {
				return err
			}
			conn, svc, err := openStore(cliCtx)
			if err != nil {
				return err
			}
			defer conn.Close()

			v, err := svc.CreateDraft(cmd.Context(), label, notes, snap)
			if err != nil {
				return err
			}
			if activate {
				if err := svc.Activate(cmd.Context(), v.ID); err != nil {
					return err
				}
			}
			PrintSuccess(cmd, fmt.Sprintf("created version %d (%s)", v.ID, v.Label))
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "human-readable version label [REQUIRED]")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes recorded on the version")
	cmd.Flags().StringVar(&specs, "specs", "", "parameter spec file (default: reference.specs_path)")
	cmd.Flags().StringVar(&rules, "rules", "", "action rule file (default: reference.rules_path)")
	cmd.Flags().BoolVar(&activate, "activate", false, "activate the version after creating it")
	_ = cmd.MarkFlagRequired("label")

	return cmd
}

func newVersionActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>",
		Short: "Activate a version, archiving the current active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := requireContext(cmd)
			if err != nil {
				return err
			}
			id, err := parseVersionID(args[0])
			if err != nil {
				return err
			}
			conn, svc, err := openStore(cliCtx)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := svc.Activate(cmd.Context(), id); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("version %d is active", id))
			return nil
		},
	}
}

func newVersionArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a non-active version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := requireContext(cmd)
			if err != nil {
				return err
			}
			id, err := parseVersionID(args[0])
			if err != nil {
				return err
			}
			conn, svc, err := openStore(cliCtx)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := svc.Archive(cmd.Context(), id); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("version %d archived", id))
			return nil
		},
	}
}

func newVersionInitCmd() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Bootstrap the version store if it is empty",
		Long: `Create and activate an initial version from the configured spec and rule
files.  Does nothing when the store already holds at least one version.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := requireContext(cmd)
			if err != nil {
				return err
			}
			snap, err := snapshotFromFiles(cliCtx, "", "")
			if err != nil {
				return err
			}
			conn, svc, err := openStore(cliCtx)
			if err != nil {
				return err
			}
			defer conn.Close()

			v, err := svc.EnsureBootstrap(cmd.Context(), label, snap)
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("version %d (%s) is %s", v.ID, v.Label, v.Status))
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "bootstrap", "label for the bootstrap version")
	return cmd
}

// snapshotFromFiles builds a version snapshot from a spec file and a rule
// file, falling back to the configured reference paths for empty arguments.
func snapshotFromFiles(cliCtx *CLIContext, specsPath, rulesPath string) (scoring.Snapshot, error) {
	if specsPath == "" {
		specsPath = cliCtx.Config.Reference.SpecsPath
	}
	if rulesPath == "" {
		rulesPath = cliCtx.Config.Reference.RulesPath
	}

	_, specs, err := catalog.LoadSpecsFile(specsPath)
	if err != nil {
		return scoring.Snapshot{}, err
	}
	rules, err := scoring.LoadRulesFile(rulesPath)
	if err != nil {
		return scoring.Snapshot{}, err
	}

	snap := scoring.Snapshot{Specs: specs, Rules: rules}
	if err := snap.Validate(); err != nil {
		return scoring.Snapshot{}, err
	}
	return snap, nil
}

func parseVersionID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Newf(errors.ErrCodeValidation, "invalid version id %q", arg)
	}
	return id, nil
}
