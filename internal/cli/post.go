package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"crier/internal/calendar"
)

func newPostCmd() *cobra.Command {
	var row int
	var dryRun bool
	var live bool
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish one calendar row immediately, ignoring its date",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			settings, err := loadSettings(logger)
			if err != nil {
				return err
			}

			mode := resolveMode(dryRun, live, settings)
			if err := settings.Validate(!mode); err != nil {
				return err
			}

			if row == 0 {
				if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
					return errors.New("interactive picker needs a terminal; pass --row N")
				}
				row, err = pickRow(cmd, calendar.NewStore(settings.CalendarPath))
				if err != nil {
					return err
				}
			}

			d := buildDriver(settings, mode, logger, cmd.OutOrStdout())
			_, err = d.RunRow(cmd.Context(), row)
			return err
		},
	}
	cmd.Flags().IntVar(&row, "row", 0, "data row number to post (1 is the first row below the header)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview what would be posted without posting")
	cmd.Flags().BoolVar(&live, "live", false, "post for real regardless of DRY_RUN")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "live")
	return cmd
}

// pickRow lists the calendar's data rows and reads a 1-based selection.
func pickRow(cmd *cobra.Command, store *calendar.Store) (int, error) {
	file, err := store.Load()
	if err != nil {
		return 0, fmt.Errorf("load calendar: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Select content to post immediately:")
	for i := range file.Rows {
		entry, ok := file.Entry(i)
		if !ok {
			continue
		}
		fmt.Fprintf(out, "%d. %s: %s (Status: %s)\n", i+1, entry.Platform, previewContent(entry.Content), entry.Status)
	}
	fmt.Fprint(out, "\nEnter row number to post: ")

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return 0, fmt.Errorf("read selection: %w", err)
	}

	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("not a row number: %q", strings.TrimSpace(line))
	}
	return choice, nil
}

func previewContent(content string) string {
	runes := []rune(content)
	if len(runes) <= 50 {
		return content
	}
	return string(runes[:50]) + "..."
}
