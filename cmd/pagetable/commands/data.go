package commands

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maruel/pagetable/internal/output"
	"github.com/maruel/pagetable/internal/record"
	"github.com/maruel/pagetable/internal/table"
)

var (
	fetchPages int
	showSort   string
	showOutput string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch pages into the local store",
	Long: `Fetch pages into the local store.

The first page is only fetched when nothing is persisted yet; every further
page continues from the persisted page cursor.

Examples:
  # Load the persisted data or the first page
  pagetable fetch

  # Load three more pages
  pagetable fetch -n 4`,
	RunE: runFetch,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted rows",
	Long: `Print the persisted rows.

Examples:
  pagetable show
  pagetable show --sort name
  pagetable show --sort age:desc -o json`,
	RunE: runShow,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Erase the persisted rows and page cursor",
	RunE:  runClear,
}

func init() {
	fetchCmd.Flags().IntVarP(&fetchPages, "pages", "n", 1, "number of load operations")
	showCmd.Flags().StringVar(&showSort, "sort", "", "sort column, optionally suffixed with :asc or :desc")
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "table", "output format (table|json|yaml)")
}

func runFetch(cmd *cobra.Command, _ []string) error {
	if fetchPages < 1 {
		return fmt.Errorf("--pages must be at least 1, got %d", fetchPages)
	}
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	res, err := a.co.InitialLoad(ctx)
	if err != nil {
		return err
	}
	total := res.Loaded
	for range fetchPages - 1 {
		if res, err = a.co.OnScrollProximity(ctx); err != nil {
			return err
		}
		total += res.Loaded
	}
	slog.DebugContext(ctx, "Fetched", "records", total, "offset", a.cache.Offset())
	fmt.Fprintf(cmd.OutOrStdout(), "%d records loaded, %d in table, next page %d\n", total, a.co.State().Len(), a.cache.Offset())
	return nil
}

func runShow(cmd *cobra.Command, _ []string) error {
	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}
	field, dir, err := parseSort(showSort)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ds, err := a.cache.Persisted(ctx)
	if err != nil {
		return err
	}
	s := table.New()
	s.AppendPage(ds)
	if field != "" {
		if !slices.Contains(s.Fields(), field) {
			return fmt.Errorf("unknown sort field %q", field)
		}
		// The first activation sorts ascending, the second descending.
		s.SetSortField(field)
		if dir == table.Desc {
			s.SetSortField(field)
		}
	}
	v := s.View(false)
	p := output.NewPrinter(cmd.OutOrStdout(), format)
	if format == output.FormatTable {
		if len(v.Rows) == 0 {
			p.Printf("No data. Run %q first.\n", "pagetable fetch")
			return nil
		}
		return p.Print(viewTable{v})
	}
	rows := make(record.Dataset, len(v.Rows))
	for i, r := range v.Rows {
		rows[i] = r.Record
	}
	return p.Print(rows)
}

func runClear(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	if err := a.co.ClearAll(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cleared.")
	return nil
}

// parseSort parses "field", "field:asc" or "field:desc".
func parseSort(s string) (string, table.Direction, error) {
	if s == "" {
		return "", table.None, nil
	}
	field, dir, ok := strings.Cut(s, ":")
	if field == "" {
		return "", table.None, fmt.Errorf("invalid sort field %q", field)
	}
	if !ok {
		return field, table.Asc, nil
	}
	switch strings.ToLower(dir) {
	case "asc":
		return field, table.Asc, nil
	case "desc":
		return field, table.Desc, nil
	default:
		return "", table.None, fmt.Errorf("invalid sort direction %q, want asc or desc", dir)
	}
}

// viewTable prints a view without the actions column.
type viewTable struct {
	v table.View
}

func (t viewTable) Headers() []string {
	var h []string
	for _, c := range t.v.Columns {
		if !c.Action {
			h = append(h, c.Label())
		}
	}
	return h
}

func (t viewTable) Rows() [][]string {
	out := make([][]string, len(t.v.Rows))
	for i, r := range t.v.Rows {
		var line []string
		for _, c := range t.v.Columns {
			if !c.Action {
				line = append(line, r.Record.String(c.Name))
			}
		}
		out[i] = line
	}
	return out
}
