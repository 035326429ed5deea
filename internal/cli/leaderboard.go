package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"timed-quiz-service/internal/domain"
)

// NewLeaderboardCmd prints the ranked results as a table.
func NewLeaderboardCmd(configPath *string) *cobra.Command {
	var field string
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			rt, err := buildRuntime(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			lb, err := rt.service.Leaderboard(cmd.Context(), field)
			if err != nil {
				return err
			}
			renderLeaderboard(os.Stdout, lb)
			return nil
		},
	}
	cmd.Flags().StringVar(&field, "field", "", "only show results for this field")
	return cmd
}

func renderLeaderboard(out io.Writer, lb domain.Leaderboard) {
	title := "Leaderboard"
	if lb.Field != "" {
		title += " - " + lb.Field
	}
	color.New(color.FgYellow).Fprintf(out, "\n%s\n", title)

	if len(lb.Entries) == 0 {
		fmt.Fprintln(out, "No results yet.")
		return
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Rank", "Name", "Matric", "Field", "Score", "Percentage", "Date"})
	for _, e := range lb.Entries {
		table.Append([]string{
			strconv.Itoa(e.Rank),
			e.Name,
			e.Matric,
			e.Field,
			fmt.Sprintf("%d/%d", e.Score, e.Total),
			fmt.Sprintf("%.2f%%", e.Percentage),
			e.Date,
		})
	}
	table.Render()
}
