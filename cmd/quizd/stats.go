package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

var statsCmd = &cobra.Command{
	Use:   "stats <student-id>",
	Short: "Print a student's answer statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := context.Background()
		store, dbh, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		if dbh != nil {
			defer dbh.Close()
		}
		category, _ := cmd.Flags().GetString("category")
		st, err := quiz.NewService(store).StudentStats(ctx, args[0], quiz.StatsFilter{Category: category})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "answered %d  correct %d  incorrect %d  flagged %d  accuracy %.2f%%\n\n",
			st.TotalAnswered, st.CorrectAnswers, st.IncorrectAnswers, st.FlaggedAnswers, st.Accuracy)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tTOTAL\tCORRECT\tPCT")
		for _, c := range st.CategoryStats {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\n", c.Category, c.Total, c.Correct, c.Percentage)
		}
		fmt.Fprintln(tw, "\nSUBJECT\tTOTAL\tCORRECT\tPCT")
		for _, s := range st.SubjectStats {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\n", s.Name, s.Total, s.Correct, s.Percentage)
		}
		return tw.Flush()
	},
}

func init() {
	statsCmd.Flags().String("category", "", "Only count answers in this category")
}
