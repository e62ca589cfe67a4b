package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leohfurlan/reometro-score/internal/domain/catalog"
)

// NewTeachCmd creates the `teach` command: record a manual lot → product
// association that overrides every other identification tier.
func NewTeachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teach <lot> <product>",
		Short: "Teach a manual lot → product association",
		Long: `Record a manual association between a lot number and a catalog product.
Taught associations win over the planning spreadsheet and free-text
matching on every subsequent run.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := requireContext(cmd)
			if err != nil {
				return err
			}

			lot := strings.ToUpper(strings.TrimSpace(args[0]))
			name := catalog.NormalizeName(args[1])

			cat, _, err := catalog.LoadSpecsFile(cliCtx.Config.Reference.SpecsPath)
			if err != nil {
				return err
			}
			if _, err := cat.ByName(name); err != nil {
				return fmt.Errorf("unknown product %q: teach only accepts catalog names (try `reoscore audit` for suggestions)", name)
			}

			files := newFileStore(cliCtx.Config.Reference)
			if err := files.Teach(lot, name); err != nil {
				return err
			}

			PrintSuccess(cmd, fmt.Sprintf("lot %s now resolves to %s", lot, name))
			return nil
		},
	}
	return cmd
}
