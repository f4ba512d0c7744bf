package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/sstent/buzzsample/internal/db"
)

func newResidueCmd(a *app) *cobra.Command {
	var listAll, listResidue, listDeleted bool
	var pageSize int

	residueCmd := &cobra.Command{
		Use:   "residue",
		Short: "List resources recorded in the ledger",
		Long: `List ledger entries with various filters:
- All resources created by past runs
- Residue (created but never deleted)
- Deleted resources`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			database, err := db.NewDatabase(cfg.DatabasePath)
			if err != nil {
				return errors.Wrap(err, "failed to connect to database")
			}
			defer database.Close()

			if pageSize <= 0 {
				pageSize = 20
			}
			in := bufio.NewReader(cmd.InOrStdin())
			page := 1
			totalShown := 0

			for {
				var resources []db.Resource
				switch {
				case listAll:
					resources, err = database.GetAllPaginated(page, pageSize)
				case listResidue:
					resources, err = database.GetResiduePaginated(page, pageSize)
				case listDeleted:
					resources, err = database.GetDeletedPaginated(page, pageSize)
				}
				if err != nil {
					return errors.Wrap(err, "failed to get resources")
				}

				if len(resources) == 0 {
					if totalShown == 0 {
						fmt.Fprintln(a.stdout, "No resources found matching the criteria")
					}
					break
				}

				for _, r := range resources {
					status := "❌ Not Deleted"
					if r.Deleted {
						status = "✅ Deleted"
					}
					fmt.Fprintf(a.stdout, "%s %s | %s | %s | run %s | %s\n",
						r.Kind,
						r.ResourceID,
						r.CreatedAt.Format("2006-01-02 15:04:05"),
						r.Title,
						r.RunID,
						status)
					totalShown++
				}

				// Only prompt if there might be more results
				if len(resources) < pageSize {
					fmt.Fprintf(a.stdout, "\nTotal: %d resources shown\n", totalShown)
					break
				}
				fmt.Fprintf(a.stdout, "\nPage %d (%d resources shown) - Show more? (y/n): ", page, totalShown)
				response, _ := in.ReadString('\n')
				if strings.ToLower(strings.TrimSpace(response)) != "y" {
					break
				}
				page++
			}

			return nil
		},
	}

	residueCmd.Flags().BoolVar(&listAll, "all", false, "List all resources")
	residueCmd.Flags().BoolVar(&listResidue, "residue", false, "List resources that were never deleted")
	residueCmd.Flags().BoolVar(&listDeleted, "deleted", false, "List resources that have been deleted")
	residueCmd.Flags().IntVar(&pageSize, "page-size", 20, "Resources per page")
	residueCmd.MarkFlagsMutuallyExclusive("all", "residue", "deleted")
	residueCmd.MarkFlagsOneRequired("all", "residue", "deleted")

	return residueCmd
}
