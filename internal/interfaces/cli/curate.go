package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leohfurlan/reometro-score/internal/application/curation"
	"github.com/leohfurlan/reometro-score/internal/domain/catalog"
)

// NewAuditCmd creates the `audit` command: list free-text sample names the
// matcher cannot resolve, with the closest catalog suggestion for each.
func NewAuditCmd() *cobra.Command {
	var (
		minDate string
		minSeen int
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List unmatched sample names with correction suggestions",
		Long: `Scan the trial history for free-text sample names that no identification
tier can resolve, and propose the closest catalog product for each.
Accepted suggestions belong in the correction table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := requireContext(cmd)
			if err != nil {
				return err
			}

			opts, err := pipelineOptions(cliCtx.Config, minDate)
			if err != nil {
				return err
			}

			cat, _, err := catalog.LoadSpecsFile(cliCtx.Config.Reference.SpecsPath)
			if err != nil {
				return err
			}

			refs, cache := newSnapshotLoader(cliCtx)
			if cache != nil {
				defer cache.Close()
			}
			snap, err := refs.Load(cmd.Context())
			if err != nil {
				return err
			}

			sourceConn, trials, err := openSource(cliCtx)
			if err != nil {
				return err
			}
			defer sourceConn.Close()

			audit := curation.NewCorrectionAudit(trials, cat, snap, cliCtx.Logger)
			candidates, err := audit.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if minSeen > 1 {
				kept := candidates[:0]
				for _, c := range candidates {
					if c.Seen >= minSeen {
						kept = append(kept, c)
					}
				}
				candidates = kept
			}

			if jsonOut {
				return printJSON(cmd, candidates)
			}
			rows := make([][]string, 0, len(candidates))
			for _, c := range candidates {
				suggestion, sim := c.Suggestion, strconv.FormatFloat(c.Similarity, 'f', 2, 64)
				if c.Intermediate {
					suggestion, sim = "(intermediate process)", "-"
				}
				rows = append(rows, []string{
					c.Input,
					suggestion,
					sim,
					strconv.Itoa(c.Seen),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), FormatTable(
				[]string{"INPUT", "SUGGESTION", "SIMILARITY", "SEEN"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&minDate, "min-date", "", "override extraction lower bound (YYYY-MM-DD)")
	cmd.Flags().IntVar(&minSeen, "min-seen", 1, "only show names seen at least N times")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print candidates as JSON")

	return cmd
}

// NewClassifyGroupsCmd creates the `classify-groups` command: rebuild the
// machine-group → equipment-kind table from trial history.
func NewClassifyGroupsCmd() *cobra.Command {
	var (
		minDate string
		save    bool
	)

	cmd := &cobra.Command{
		Use:   "classify-groups",
		Short: "Classify machine groups as rheometer or viscometer",
		Long: `Vote each machine group into rheometer or viscometer territory from the
plate temperatures and value shapes of its trial history.  With --save the
verdicts replace the configured group table; ambiguous groups are left out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := requireContext(cmd)
			if err != nil {
				return err
			}

			opts, err := pipelineOptions(cliCtx.Config, minDate)
			if err != nil {
				return err
			}

			sourceConn, trials, err := openSource(cliCtx)
			if err != nil {
				return err
			}
			defer sourceConn.Close()

			classifier := curation.NewGroupClassifier(trials, cliCtx.Logger)
			classes, err := classifier.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(classes))
			for _, c := range classes {
				rows = append(rows, []string{
					c.Group,
					string(c.Kind),
					strconv.Itoa(c.RheoVotes),
					strconv.Itoa(c.ViscVotes),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), FormatTable(
				[]string{"GROUP", "KIND", "RHEO VOTES", "VISC VOTES"}, rows))

			if save {
				files := newFileStore(cliCtx.Config.Reference)
				table := curation.Table(classes)
				if err := files.SaveGroups(table); err != nil {
					return err
				}
				PrintSuccess(cmd, fmt.Sprintf("saved %d classified groups", len(table)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&minDate, "min-date", "", "override extraction lower bound (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&save, "save", false, "write verdicts to the configured group table")

	return cmd
}
