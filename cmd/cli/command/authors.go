package command

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"bookauthor/internal/forms"
	"bookauthor/internal/models"
)

func newAuthorsCmd(opts *options) *cobra.Command {
	authorsCmd := &cobra.Command{
		Use:   "authors",
		Short: "Author management commands",
		Long:  `Manage authors: list, view, create, update, delete, and set their books`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all authors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			authors, err := opts.client(cmd).ListAuthors(ctx)
			if err != nil {
				return fmt.Errorf("failed to get author list: %w", err)
			}
			out := cmd.OutOrStdout()
			if ok, err := opts.printJSON(out, authors); ok {
				return err
			}
			if len(authors) == 0 {
				fmt.Fprintln(out, "No authors found.")
				return nil
			}

			fmt.Fprintf(out, "Found %d authors:\n\n", len(authors))
			for _, a := range authors {
				fmt.Fprintf(out, "%-36s %s (%d books)\n", a.ID, a.FullName(), len(a.Books))
			}
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show an author with their books",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			author, err := opts.client(cmd).GetAuthor(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get author: %w", err)
			}
			if ok, err := opts.printJSON(cmd.OutOrStdout(), author); ok {
				return err
			}
			printAuthor(cmd.OutOrStdout(), author)
			return nil
		},
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an author",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form := authorFormFromFlags(cmd, forms.AuthorForm{})
			in, err := form.NewInput()
			if err != nil {
				return inputError(err)
			}
			image, _ := cmd.Flags().GetString("image")
			upload, closeImage, err := openImage(image)
			if err != nil {
				return err
			}
			defer closeImage()

			ctx, cancel := opts.context(cmd)
			defer cancel()

			api := opts.client(cmd)
			author, err := api.CreateAuthor(ctx, in, upload)
			if err != nil {
				return fmt.Errorf("failed to create author: %w", err)
			}
			if _, err := opts.reconciler(cmd, api).LinkAuthorBooks(ctx, author.ID, form.Books); err != nil {
				return fmt.Errorf("author %s created but books not linked: %w", author.ID, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Author %s created.\n", author.ID)
			return nil
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Update the fields of an author; their books are left alone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			api := opts.client(cmd)
			current, err := api.GetAuthor(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get author: %w", err)
			}
			form := authorFormFromFlags(cmd, forms.AuthorFormFrom(*current))
			in, err := form.Input()
			if err != nil {
				return inputError(err)
			}
			image, _ := cmd.Flags().GetString("image")
			upload, closeImage, err := openImage(image)
			if err != nil {
				return err
			}
			defer closeImage()

			if _, err := api.UpdateAuthor(ctx, current.ID, in, upload); err != nil {
				return fmt.Errorf("failed to update author: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Author %s updated.\n", current.ID)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			if err := opts.client(cmd).DeleteAuthor(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete author: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Author %s deleted.\n", args[0])
			return nil
		},
	}

	setBooksCmd := &cobra.Command{
		Use:   "set-books [id] [isbn...]",
		Short: "Make the books of an author exactly the given list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			api := opts.client(cmd)
			res, err := opts.reconciler(cmd, api).AuthorBooks(ctx, args[0], args[1:])
			if err != nil {
				return fmt.Errorf("failed to set books: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Books of %s set: %d removed, %d added.\n", args[0], res.Removed, res.Added)
			return nil
		},
	}

	for _, c := range []*cobra.Command{createCmd, updateCmd} {
		c.Flags().String("first-name", "", "First name")
		c.Flags().String("last-name", "", "Last name")
		c.Flags().String("dob", "", "Date of birth (YYYY-MM-DD)")
		c.Flags().String("image-url", "", "Portrait image URL")
		c.Flags().String("image", "", "Portrait image file to upload")
	}
	createCmd.Flags().StringSlice("book", nil, "ISBN of a book to link (repeatable)")

	authorsCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, deleteCmd, setBooksCmd)
	return authorsCmd
}

// authorFormFromFlags overlays the flags the user actually set onto form.
func authorFormFromFlags(cmd *cobra.Command, form forms.AuthorForm) forms.AuthorForm {
	flags := cmd.Flags()
	if flags.Changed("first-name") {
		form.FirstName, _ = flags.GetString("first-name")
	}
	if flags.Changed("last-name") {
		form.LastName, _ = flags.GetString("last-name")
	}
	if flags.Changed("dob") {
		form.DOB, _ = flags.GetString("dob")
	}
	if flags.Changed("image-url") {
		form.Image, _ = flags.GetString("image-url")
	}
	if flags.Changed("book") {
		form.Books, _ = flags.GetStringSlice("book")
	}
	return form
}

func printAuthor(w io.Writer, a *models.Author) {
	fmt.Fprintf(w, "ID: %s\n", a.ID)
	fmt.Fprintf(w, "Name: %s\n", a.FullName())
	fmt.Fprintf(w, "Born: %s\n", a.DOB)
	if a.Image != "" {
		fmt.Fprintf(w, "Image: %s\n", a.Image)
	}
	titles := make([]string, 0, len(a.Books))
	for _, b := range a.Books {
		titles = append(titles, fmt.Sprintf("%s [%s]", b.Title, b.ISBN))
	}
	if len(titles) == 0 {
		titles = append(titles, "-")
	}
	fmt.Fprintf(w, "Books: %s\n", strings.Join(titles, ", "))
}
