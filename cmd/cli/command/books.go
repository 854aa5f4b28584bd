package command

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bookauthor/internal/forms"
	"bookauthor/internal/models"
)

func newBooksCmd(opts *options) *cobra.Command {
	booksCmd := &cobra.Command{
		Use:   "books",
		Short: "Book management commands",
		Long:  `Manage books: list, view, create, update, delete, and set their authors`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			books, err := opts.client(cmd).ListBooks(ctx)
			if err != nil {
				return fmt.Errorf("failed to get book list: %w", err)
			}
			out := cmd.OutOrStdout()
			if ok, err := opts.printJSON(out, books); ok {
				return err
			}
			if len(books) == 0 {
				fmt.Fprintln(out, "No books found.")
				return nil
			}

			fmt.Fprintf(out, "Found %d books:\n\n", len(books))
			for _, b := range books {
				fmt.Fprintf(out, "%-17s %s (%s)\n", b.ISBN, b.Title, b.Published)
			}
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get [isbn]",
		Short: "Show a book with its authors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			book, err := opts.client(cmd).GetBook(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get book: %w", err)
			}
			if ok, err := opts.printJSON(cmd.OutOrStdout(), book); ok {
				return err
			}
			printBook(cmd.OutOrStdout(), book)
			return nil
		},
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form := bookFormFromFlags(cmd, forms.BookForm{})
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
			book, err := api.CreateBook(ctx, in, upload)
			if err != nil {
				return fmt.Errorf("failed to create book: %w", err)
			}
			if _, err := opts.reconciler(cmd, api).LinkBookAuthors(ctx, book.ISBN, form.Authors); err != nil {
				return fmt.Errorf("book %s created but authors not linked: %w", book.ISBN, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Book %s created.\n", book.ISBN)
			return nil
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update [isbn]",
		Short: "Update the fields of a book; its authors are left alone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			api := opts.client(cmd)
			current, err := api.GetBook(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get book: %w", err)
			}
			form := bookFormFromFlags(cmd, forms.BookFormFrom(*current))
			form.ISBN = current.ISBN
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

			if _, err := api.UpdateBook(ctx, current.ISBN, in, upload); err != nil {
				return fmt.Errorf("failed to update book: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Book %s updated.\n", current.ISBN)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [isbn]",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			if err := opts.client(cmd).DeleteBook(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete book: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Book %s deleted.\n", args[0])
			return nil
		},
	}

	setAuthorsCmd := &cobra.Command{
		Use:   "set-authors [isbn] [author-id...]",
		Short: "Make the authors of a book exactly the given list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			api := opts.client(cmd)
			res, err := opts.reconciler(cmd, api).BookAuthors(ctx, args[0], args[1:])
			if err != nil {
				return fmt.Errorf("failed to set authors: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authors of %s set: %d removed, %d added.\n", args[0], res.Removed, res.Added)
			return nil
		},
	}

	for _, c := range []*cobra.Command{createCmd, updateCmd} {
		c.Flags().String("title", "", "Book title")
		c.Flags().Int("pages", 0, "Number of pages")
		c.Flags().Int("published", 0, "Year of publication")
		c.Flags().String("image-url", "", "Cover image URL")
		c.Flags().String("image", "", "Cover image file to upload")
	}
	createCmd.Flags().String("isbn", "", "ISBN (required)")
	createCmd.Flags().StringSlice("author", nil, "Author id to link (repeatable)")

	booksCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, deleteCmd, setAuthorsCmd)
	return booksCmd
}

// bookFormFromFlags overlays the flags the user actually set onto form.
func bookFormFromFlags(cmd *cobra.Command, form forms.BookForm) forms.BookForm {
	flags := cmd.Flags()
	if flags.Changed("isbn") {
		form.ISBN, _ = flags.GetString("isbn")
	}
	if flags.Changed("title") {
		form.Title, _ = flags.GetString("title")
	}
	if flags.Changed("pages") {
		n, _ := flags.GetInt("pages")
		form.Pages = strconv.Itoa(n)
	}
	if flags.Changed("published") {
		n, _ := flags.GetInt("published")
		form.Published = strconv.Itoa(n)
	}
	if flags.Changed("image-url") {
		form.Image, _ = flags.GetString("image-url")
	}
	if flags.Changed("author") {
		form.Authors, _ = flags.GetStringSlice("author")
	}
	return form
}

func printBook(w io.Writer, b *models.Book) {
	fmt.Fprintf(w, "ISBN: %s\n", b.ISBN)
	fmt.Fprintf(w, "Title: %s\n", b.Title)
	fmt.Fprintf(w, "Pages: %d\n", b.Pages)
	fmt.Fprintf(w, "Published: %s\n", b.Published)
	if b.Image != "" {
		fmt.Fprintf(w, "Image: %s\n", b.Image)
	}
	names := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		names = append(names, fmt.Sprintf("%s [%s]", a.FullName(), a.ID))
	}
	if len(names) == 0 {
		names = append(names, "-")
	}
	fmt.Fprintf(w, "Authors: %s\n", strings.Join(names, ", "))
}
