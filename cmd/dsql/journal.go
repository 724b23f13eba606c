package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chameleon-db/dsql/internal/journal"
)

var journalFormat string

var journalCmd = &cobra.Command{
	Use:   "journal <subcommand>",
	Short: "Query and audit the statement journal",
	Long: `View and search the statement journal.

The journal is an append-only log of every statement dsql exec runs.
Stored in .dsql/journal/ with daily rotation.

Subcommands:
  journal last       Show last N statements
  journal errors     Show today's failed statements
  journal actions    Show today's statements of one kind
  journal search     Search journal entries`,
	Args: cobra.MinimumNArgs(1),
}

var journalLastCmd = &cobra.Command{
	Use:   "last [n]",
	Short: "Show last N journal entries",
	Long: `Display the most recent journal entries.

Examples:
  dsql journal last        # Last 10 entries
  dsql journal last 20     # Last 20 entries
  dsql journal last 5 --format=json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit := 10
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return fmt.Errorf("invalid number: %s", args[0])
			}
			limit = n
		}
		return showJournal(cmd.OutOrStdout(), "No journal entries found", func(l *journal.Logger) ([]*journal.Entry, error) {
			return l.Last(limit)
		})
	},
}

var journalErrorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Show error journal entries",
	Long: `Display all failed statements from today's journal.

Examples:
  dsql journal errors
  dsql journal errors --format=json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showJournal(cmd.OutOrStdout(), "", (*journal.Logger).Errors)
	},
}

var journalActionsCmd = &cobra.Command{
	Use:   "actions <kind>",
	Short: "Show today's entries of one statement kind",
	Long: `Display today's statements of one kind (select, insert, update,
delete or raw).

Examples:
  dsql journal actions insert`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showJournal(cmd.OutOrStdout(), "No "+args[0]+" entries found", func(l *journal.Logger) ([]*journal.Entry, error) {
			return l.Actions(args[0])
		})
	},
}

var journalSearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search journal entries",
	Long: `Search all journal entries by table, SQL text or error message.

Examples:
  dsql journal search users`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showJournal(cmd.OutOrStdout(), "No matching entries found", func(l *journal.Logger) ([]*journal.Entry, error) {
			return l.Search(args[0])
		})
	},
}

func init() {
	journalCmd.AddCommand(journalLastCmd)
	journalCmd.AddCommand(journalErrorsCmd)
	journalCmd.AddCommand(journalActionsCmd)
	journalCmd.AddCommand(journalSearchCmd)

	journalCmd.PersistentFlags().StringVar(&journalFormat, "format", "table", "output format (table|json)")

	rootCmd.AddCommand(journalCmd)
}

// showJournal opens the project journal, runs query and prints the
// entries. An empty result prints empty, or a success line when empty
// is "".
func showJournal(w io.Writer, empty string, query func(*journal.Logger) ([]*journal.Entry, error)) error {
	_, factory, err := loadProject()
	if err != nil {
		return err
	}
	jl, err := factory.CreateJournalLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize journal: %w", err)
	}

	entries, err := query(jl)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	if journalFormat == "json" {
		return printEntriesJSON(w, entries)
	}
	if len(entries) == 0 {
		if empty == "" {
			printSuccess("No errors found")
		} else {
			printInfo("%s", empty)
		}
		return nil
	}
	printEntriesTable(w, entries)
	return nil
}

// printEntriesTable prints entries in table format
func printEntriesTable(w io.Writer, entries []*journal.Entry) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Timestamp            Action  Status   Table            Details")
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────────────────────")

	for _, entry := range entries {
		timestamp := entry.Timestamp.Local().Format("2006-01-02 15:04:05")

		details := ""
		if entry.Duration > 0 {
			details = fmt.Sprintf("duration=%dms", entry.Duration)
		}
		for _, key := range []string{"affected", "inserted"} {
			if v, ok := entry.Details[key]; ok {
				details = appendDetail(details, fmt.Sprintf("%s=%v", key, v))
			}
		}
		if entry.Error != "" {
			details = appendDetail(details, "error="+truncate(entry.Error, 50))
		}

		fmt.Fprintf(w, "%-20s %-7s %-8s %-16s %s\n", timestamp, entry.Action, entry.Status, truncate(entry.Table, 16), details)
	}

	fmt.Fprintln(w)
}

func appendDetail(details, s string) string {
	if details == "" {
		return s
	}
	return details + " " + s
}

// printEntriesJSON prints entries as a JSON array
func printEntriesJSON(w io.Writer, entries []*journal.Entry) error {
	if entries == nil {
		entries = []*journal.Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// truncate truncates a string to max length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
