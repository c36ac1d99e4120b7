package cli

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/llehouerou/shoal/internal/bridge"
	"github.com/llehouerou/shoal/internal/errmsg"
	"github.com/llehouerou/shoal/internal/meta"
	"github.com/llehouerou/shoal/internal/query"
	"github.com/llehouerou/shoal/internal/render"
)

// columnOrder is the display order of known result columns. Unknown
// columns (custom return functions) follow in name order.
var columnOrder = []string{
	meta.FieldTrackNumber.String(),
	meta.FieldDiscNumber.String(),
	meta.FieldTitle.String(),
	meta.FieldArtist.String(),
	meta.FieldAlbum.String(),
	meta.FieldAlbumArtist.String(),
	meta.FieldGenre.String(),
	meta.FieldComposer.String(),
	meta.FieldYear.String(),
	meta.FieldLength.String(),
	meta.FieldBitrate.String(),
	meta.FieldSampleRate.String(),
	meta.FieldFileSize.String(),
	meta.FieldBPM.String(),
	meta.FieldComment.String(),
	meta.FieldScore.String(),
	meta.FieldRating.String(),
	meta.FieldPlayCount.String(),
	meta.FieldFirstPlayed.String(),
	meta.FieldLastPlayed.String(),
	meta.FieldCreateDate.String(),
	meta.FieldURL.String(),
	meta.FieldUniqueID.String(),
	"collection",
}

// hiddenColumns are left out unless asked for with --columns.
var hiddenColumns = []string{meta.FieldUniqueID.String(), "collection"}

func newQueryCmd(a *app) *cobra.Command {
	var (
		width   int
		columns []string
	)
	cmd := &cobra.Command{
		Use:   "query [file]",
		Short: "Run an XML query against the collection",
		Long: `Run an XML query and print the results as a table. The local
collection is queried together with every database listed in
collection.databases.

The query is read from file, or from standard input when file is
omitted or "-". Example:

  <query version="1.0">
    <filters><include field="artist" value="Enigma"/></filters>
    <returnValues><tracks/></returnValues>
  </query>`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readQuery(cmd, args)
			if err != nil {
				return fail(errmsg.OpQueryRead, err)
			}

			mgr, err := a.openManager(cmd.Context())
			if err != nil {
				return err
			}
			defer mgr.Close()

			svc := bridge.NewService(func() query.Maker { return mgr.NewQueryMaker() },
				a.cfg.GetQueryConfig().Timeout, a.logger)
			results, err := svc.Query(cmd.Context(), doc)
			if err != nil {
				return fail(errmsg.OpQueryRun, err)
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No results.")
				return nil
			}
			header := columns
			if len(header) == 0 {
				header = resultColumns(results)
			}
			rows := make([][]string, len(results))
			for i, r := range results {
				rows[i] = make([]string, len(header))
				for j, col := range header {
					rows[i][j] = formatValue(col, r[col])
				}
			}
			if err := render.Table(out, header, rows, width); err != nil {
				return err
			}
			if len(results) == 1 {
				fmt.Fprintln(out, "\n1 result")
			} else {
				fmt.Fprintf(out, "\n%s results\n", render.Count(len(results)))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&width, "width", "w", 40, "maximum column width (0 = unlimited)")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to print, in order")
	return cmd
}

func readQuery(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		return readAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(args[0])
	return string(b), err
}

// resultColumns returns the visible columns present in any result.
func resultColumns(results []map[string]string) []string {
	var cols []string
	for _, r := range results {
		for col := range r {
			if !slices.Contains(cols, col) && !slices.Contains(hiddenColumns, col) {
				cols = append(cols, col)
			}
		}
	}
	slices.SortFunc(cols, func(x, y string) int {
		return cmp.Or(cmp.Compare(columnRank(x), columnRank(y)), strings.Compare(x, y))
	})
	return cols
}

func columnRank(col string) int {
	if i := slices.Index(columnOrder, col); i >= 0 {
		return i
	}
	return len(columnOrder)
}

// formatValue makes raw values readable: lengths as m:ss, sizes with units
// and timestamps relative to now.
func formatValue(col, value string) string {
	if value == "" {
		return ""
	}
	switch col {
	case meta.FieldLength.String():
		if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
			return render.Length(time.Duration(ms) * time.Millisecond)
		}
	case meta.FieldFileSize.String():
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return render.Size(n)
		}
	case meta.FieldLastPlayed.String(), meta.FieldFirstPlayed.String(), meta.FieldCreateDate.String():
		if sec, err := strconv.ParseInt(value, 10, 64); err == nil && sec > 0 {
			return render.Ago(time.Unix(sec, 0))
		}
	}
	return value
}
