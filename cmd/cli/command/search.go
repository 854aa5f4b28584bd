package command

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bookauthor/internal/search"
)

func newSearchCmd(opts *options) *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search authors by name or books by title",
	}

	authorsCmd := &cobra.Command{
		Use:   "authors [query]",
		Short: "Find authors whose name contains the query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			all, err := opts.client(cmd).ListAuthors(ctx)
			if err != nil {
				return fmt.Errorf("failed to get author list: %w", err)
			}
			exclude, _ := cmd.Flags().GetStringSlice("exclude")
			matches := search.Authors(all, strings.Join(args, " "), exclude)

			out := cmd.OutOrStdout()
			if ok, err := opts.printJSON(out, matches); ok {
				return err
			}
			if len(matches) == 0 {
				fmt.Fprintln(out, "No matching authors.")
				return nil
			}
			for _, a := range matches {
				fmt.Fprintf(out, "%-36s %s\n", a.ID, a.FullName())
			}
			return nil
		},
	}

	booksCmd := &cobra.Command{
		Use:   "books [query]",
		Short: "Find books whose title contains the query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			all, err := opts.client(cmd).ListBooks(ctx)
			if err != nil {
				return fmt.Errorf("failed to get book list: %w", err)
			}
			exclude, _ := cmd.Flags().GetStringSlice("exclude")
			matches := search.Books(all, strings.Join(args, " "), exclude)

			out := cmd.OutOrStdout()
			if ok, err := opts.printJSON(out, matches); ok {
				return err
			}
			if len(matches) == 0 {
				fmt.Fprintln(out, "No matching books.")
				return nil
			}
			for _, b := range matches {
				fmt.Fprintf(out, "%-17s %s\n", b.ISBN, b.Title)
			}
			return nil
		},
	}

	authorsCmd.Flags().StringSlice("exclude", nil, "Author ids to leave out")
	booksCmd.Flags().StringSlice("exclude", nil, "ISBNs to leave out")

	searchCmd.AddCommand(authorsCmd, booksCmd)
	return searchCmd
}
