package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/devfolio/portfolio-api/internal/dashboard"
	"github.com/devfolio/portfolio-api/internal/models"
	"github.com/devfolio/portfolio-api/internal/query"
	"github.com/spf13/cobra"
)

// collection describes the list/create/update/delete/query commands of one
// entity type.
type collection[E any, P models.Ptr[E]] struct {
	use     string
	aliases []string
	short   string
	res     func(*dashboard.Dashboard) *dashboard.Resource[E, P]
	parse   func(url.Values) (query.Filter[E], error)
	headers []string
	row     func(E) []string
}

var messagesCollection = collection[models.Message, *models.Message]{
	use:   "messages",
	short: "Manage contact messages",
	res:   func(d *dashboard.Dashboard) *dashboard.Resource[models.Message, *models.Message] { return d.Messages },
	parse: func(v url.Values) (query.Filter[models.Message], error) {
		return query.ParseMessageFilter(v)
	},
	headers: []string{"ID", "DATE", "FROM", "SUBJECT", "SOURCE", "READ"},
	row: func(m models.Message) []string {
		return []string{id(m.ID), m.Date.Format("2006-01-02"), fmt.Sprintf("%s <%s>", m.Name, m.Email), m.Subject, m.Source, yesNo(m.Read)}
	},
}

var postsCollection = collection[models.BlogPost, *models.BlogPost]{
	use:     "posts",
	aliases: []string{"blog-posts"},
	short:   "Manage blog posts",
	res:     func(d *dashboard.Dashboard) *dashboard.Resource[models.BlogPost, *models.BlogPost] { return d.BlogPosts },
	parse: func(v url.Values) (query.Filter[models.BlogPost], error) {
		return query.ParsePostFilter(v)
	},
	headers: []string{"ID", "DATE", "TITLE", "STATUS"},
	row: func(p models.BlogPost) []string {
		return []string{id(p.ID), p.Date, p.Title, p.Status}
	},
}

var projectsCollection = collection[models.Project, *models.Project]{
	use:   "projects",
	short: "Manage projects",
	res:   func(d *dashboard.Dashboard) *dashboard.Resource[models.Project, *models.Project] { return d.Projects },
	parse: func(v url.Values) (query.Filter[models.Project], error) {
		return query.ParseProjectFilter(v)
	},
	headers: []string{"ID", "NAME", "STATUS", "START", "END"},
	row: func(p models.Project) []string {
		return []string{id(p.ID), p.Name, p.Status, p.StartDate, p.EndDate}
	},
}

var ratingsCollection = collection[models.Rating, *models.Rating]{
	use:   "ratings",
	short: "Manage portfolio ratings",
	res:   func(d *dashboard.Dashboard) *dashboard.Resource[models.Rating, *models.Rating] { return d.Ratings },
	parse: func(v url.Values) (query.Filter[models.Rating], error) {
		return query.ParseRatingFilter(v)
	},
	headers: []string{"ID", "DATE", "RATING", "COMMENT"},
	row: func(r models.Rating) []string {
		return []string{id(r.ID), r.Date.Format("2006-01-02"), stars(r.Rating), r.Comment}
	},
}

func id(n int64) string { return strconv.FormatInt(n, 10) }

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func stars(n int) string {
	if n < 0 || n > models.MaxRating {
		return strconv.Itoa(n)
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", models.MaxRating-n)
}

func parseID(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return n, nil
}

// parseFields turns key=value pairs and an optional JSON object into a
// patch for E. Values are sent as strings unless E needs another JSON type
// for that field (read=true, rating=5).
func parseFields[E any](sets []string, raw string) (map[string]any, error) {
	patch := map[string]any{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &patch); err != nil {
			return nil, fmt.Errorf("--json: %w", err)
		}
		if err := fits[E](patch); err != nil {
			return nil, fmt.Errorf("--json: %w", err)
		}
	}
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("--set %q: want key=value", kv)
		}
		if fits[E](map[string]any{k: v}) == nil {
			patch[k] = v
			continue
		}
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil && fits[E](map[string]any{k: decoded}) == nil {
			patch[k] = decoded
			continue
		}
		return nil, fmt.Errorf("--set %q: unknown field or wrong type", kv)
	}
	delete(patch, "id")
	return patch, nil
}

func fits[E any](patch map[string]any) error {
	b, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var e E
	return dec.Decode(&e)
}

func renderTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Border)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			return CellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

func (c collection[E, P]) print(a *app, w io.Writer, items []E) error {
	if a.json() {
		if items == nil {
			items = []E{}
		}
		return writeJSON(w, items)
	}
	if len(items) == 0 {
		fmt.Fprintln(w, LabelStyle.Render("no "+c.use))
		return nil
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, c.row(it))
	}
	renderTable(w, c.headers, rows)
	return nil
}

func (c collection[E, P]) printOne(a *app, w io.Writer, e E) error {
	return c.print(a, w, []E{e})
}

func (c collection[E, P]) command(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     c.use,
		Aliases: c.aliases,
		Short:   c.short,
	}
	cmd.AddCommand(c.listCmd(a), c.createCmd(a), c.updateCmd(a), c.deleteCmd(a), c.queryCmd(a))
	return cmd
}

func (c collection[E, P]) listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all " + c.use,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			res := c.res(a.dashboard())
			if err := res.Fetch(ctx); err != nil {
				return err
			}
			return c.print(a, cmd.OutOrStdout(), res.Items())
		},
	}
}

func (c collection[E, P]) createCmd(a *app) *cobra.Command {
	var (
		sets []string
		raw  string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record from --set key=value pairs or --json",
		Example: "  portfolioctl " + c.use + " create --set title=Hello --set status=Draft\n" +
			"  portfolioctl " + c.use + ` create --json '{"title":"Hello"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseFields[E](sets, raw)
			if err != nil {
				return err
			}
			var e E
			if err := fromPatch(patch, &e); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			out, err := c.res(a.dashboard()).Create(ctx, e)
			if err != nil {
				return err
			}
			a.warnDiverged(cmd.ErrOrStderr())
			return c.printOne(a, cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value (repeatable)")
	cmd.Flags().StringVar(&raw, "json", "", "record as a JSON object")
	return cmd
}

func fromPatch(patch map[string]any, v any) error {
	b, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (c collection[E, P]) updateCmd(a *app) *cobra.Command {
	var (
		sets []string
		raw  string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseID(args[0])
			if err != nil {
				return err
			}
			patch, err := parseFields[E](sets, raw)
			if err != nil {
				return err
			}
			if len(patch) == 0 {
				return fmt.Errorf("nothing to update: use --set or --json")
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			out, err := c.res(a.dashboard()).Update(ctx, n, patch)
			if err != nil {
				return err
			}
			a.warnDiverged(cmd.ErrOrStderr())
			return c.printOne(a, cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value (repeatable)")
	cmd.Flags().StringVar(&raw, "json", "", "fields as a JSON object")
	return cmd
}

func (c collection[E, P]) deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a record",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			if err := c.res(a.dashboard()).Delete(ctx, n); err != nil {
				return err
			}
			a.warnDiverged(cmd.ErrOrStderr())
			if !a.json() {
				fmt.Fprintln(cmd.OutOrStdout(), OKStyle.Render("deleted "+c.use+" "+args[0]))
			}
			return nil
		},
	}
}

func (c collection[E, P]) queryCmd(a *app) *cobra.Command {
	var where []string
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter " + c.use + " with --where key=value (dateFrom, dateTo, ...)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := url.Values{}
			for _, kv := range where {
				k, val, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("--where %q: want key=value", kv)
				}
				v.Set(strings.TrimSpace(k), strings.TrimSpace(val))
			}
			f, err := c.parse(v)
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			items, err := c.res(a.dashboard()).Query(ctx, f)
			if err != nil {
				return err
			}
			return c.print(a, cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().StringArrayVar(&where, "where", nil, "filter key=value (repeatable)")
	return cmd
}
