package command

// root.go defines the root command for the bookauthor CLI.
// set up the global flags and the shared catalog client here.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bookauthor/internal/catalog"
	"bookauthor/internal/config"
	"bookauthor/internal/forms"
	"bookauthor/internal/reconcile"
)

// options are the global persistent flags, available to all subcommands
type options struct {
	apiURL  string
	timeout time.Duration
	asJSON  bool
	verbose bool
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "bookauthor",
		Short: "bookauthor - book and author catalog command line interface",
		Long: `bookauthor talks to the book/author catalog service. It can:
- List, show, create, update and delete books and authors
- Set the authors of a book or the books of an author
- Search authors by name and books by title

Use "bookauthor [command] --help" to see all available commands.`,
		SilenceUsage: true,
	}

	defaultAPI := catalog.DefaultBaseURL
	if cfg, err := config.LoadConfig(); err == nil {
		defaultAPI = cfg.CatalogAPIURL
	}
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api", defaultAPI, "catalog service URL")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall timeout for one command")
	rootCmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every catalog request")

	rootCmd.AddCommand(newBooksCmd(opts))
	rootCmd.AddCommand(newAuthorsCmd(opts))
	rootCmd.AddCommand(newSearchCmd(opts))
	return rootCmd
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err) // Print error to standard error
		os.Exit(1)
	}
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (o *options) client(cmd *cobra.Command) *catalog.Client {
	return catalog.NewClient(catalog.ClientConfig{
		BaseURL:   o.apiURL,
		UserAgent: "bookauthor-cli/1.0",
		Logger:    o.logger(cmd),
	})
}

func (o *options) reconciler(cmd *cobra.Command, api reconcile.AssociationAPI) *reconcile.Reconciler {
	return reconcile.New(api, o.logger(cmd))
}

// printJSON writes v as indented JSON when --json is set and reports
// whether it did.
func (o *options) printJSON(w io.Writer, v any) (bool, error) {
	if !o.asJSON {
		return false, nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

// openImage opens an image file for upload. An empty path means no image.
func openImage(path string) (*catalog.Upload, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open image: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat image: %w", err)
	}
	up := &catalog.Upload{
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Size:        info.Size(),
		Body:        f,
	}
	return up, func() { f.Close() }, nil
}

// inputError lists every field problem instead of the single banner message
// the web form shows.
func inputError(err error) error {
	var verrs forms.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("invalid input: %s", strings.Join(msgs, "; "))
}
