package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	service "github.com/okian/stagerank/internal/app"
	"github.com/okian/stagerank/internal/domain/model"
	"github.com/okian/stagerank/pkg/logger"
)

var (
	queryURLs  []string
	queryFiles []string

	competitorsClass string

	stagesCompetitor string
	stagesNumber     string
	stagesClass      string
	stagesStage      int
	stagesTable      bool
)

// ErrNothingToIngest is returned by query commands without any source.
var ErrNothingToIngest = errors.New("nothing to ingest: pass --url or --file, or configure sources")

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List the competitor classes of a results page",
	Args:  cobra.NoArgs,
	RunE:  runClasses,
}

var competitorsCmd = &cobra.Command{
	Use:   "competitors",
	Short: "List the competitors of one class",
	Args:  cobra.NoArgs,
	RunE:  runCompetitors,
}

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "Print ranked stage results",
	Long: `Prints ranked stage results, either every stage of one competitor
(--competitor or --number) or one stage of one class (--class and --stage).`,
	Args: cobra.NoArgs,
	RunE: runStages,
}

func init() {
	for _, c := range []*cobra.Command{classesCmd, competitorsCmd, stagesCmd} {
		c.Flags().StringSliceVar(&queryURLs, "url", nil, "results page address to ingest (repeatable)")
		c.Flags().StringSliceVar(&queryFiles, "file", nil, "local results document to ingest (repeatable)")
		rootCmd.AddCommand(c)
	}

	competitorsCmd.Flags().StringVar(&competitorsClass, "class", "", "competitor class")
	_ = competitorsCmd.MarkFlagRequired("class")

	stagesCmd.Flags().StringVar(&stagesCompetitor, "competitor", "", "competitor name")
	stagesCmd.Flags().StringVar(&stagesNumber, "number", "", "competitor start number")
	stagesCmd.Flags().StringVar(&stagesClass, "class", "", "competitor class")
	stagesCmd.Flags().IntVar(&stagesStage, "stage", 0, "stage number, with --class")
	stagesCmd.Flags().BoolVar(&stagesTable, "table", false, "print a table instead of JSON")
}

func runClasses(cmd *cobra.Command, args []string) error {
	svc, err := loadResults(cmd.Context())
	if err != nil {
		return err
	}
	return outputJSON(cmd, svc.ListClasses(cmd.Context()))
}

func runCompetitors(cmd *cobra.Command, args []string) error {
	svc, err := loadResults(cmd.Context())
	if err != nil {
		return err
	}
	return outputJSON(cmd, svc.ListCompetitors(cmd.Context(), competitorsClass))
}

func runStages(cmd *cobra.Command, args []string) error {
	query, err := stagesQuery()
	if err != nil {
		return err
	}

	svc, err := loadResults(cmd.Context())
	if err != nil {
		return err
	}

	results := query(cmd.Context(), svc)
	if stagesTable {
		return outputStagesTable(cmd, results)
	}
	return outputJSON(cmd, results)
}

// stagesQuery picks the query from the flags. Exactly one of competitor,
// number or class must be set; class requires a stage >= 1.
func stagesQuery() (func(context.Context, *service.Service) []model.StageResult, error) {
	set := 0
	for _, v := range []string{stagesCompetitor, stagesNumber, stagesClass} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("pass exactly one of --competitor, --number or --class")
	}

	switch {
	case stagesCompetitor != "":
		return func(ctx context.Context, svc *service.Service) []model.StageResult {
			return svc.StagesByCompetitor(ctx, stagesCompetitor)
		}, nil
	case stagesNumber != "":
		if _, err := strconv.Atoi(stagesNumber); err != nil {
			return nil, fmt.Errorf("--number must be an integer: %q", stagesNumber)
		}
		return func(ctx context.Context, svc *service.Service) []model.StageResult {
			return svc.StagesByCompetitorNumber(ctx, stagesNumber)
		}, nil
	default:
		if stagesStage < 1 {
			return nil, errors.New("--class needs --stage >= 1")
		}
		return func(ctx context.Context, svc *service.Service) []model.StageResult {
			return svc.StagesByClass(ctx, stagesClass, stagesStage)
		}, nil
	}
}

// loadResults builds a service and ingests the requested sources into it.
// Without --url or --file the configured sources and watch file are used.
func loadResults(ctx context.Context) (*service.Service, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	urls, files := queryURLs, queryFiles
	if len(urls) == 0 && len(files) == 0 {
		urls = cfg.Sources
		if cfg.WatchFile != "" {
			files = []string{cfg.WatchFile}
		}
	}
	if len(urls) == 0 && len(files) == 0 {
		return nil, ErrNothingToIngest
	}

	svc, err := newService(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.Get()
	for _, u := range urls {
		report, err := svc.IngestURL(ctx, u)
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "ingested", logger.String("source", u), logger.Int("records", report.Records))
	}
	for _, f := range files {
		report, err := svc.IngestFile(ctx, f)
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "ingested", logger.String("source", f), logger.Int("records", report.Records))
	}
	return svc, nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func outputStagesTable(cmd *cobra.Command, results []model.StageResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No results found.")
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MATCH\tSTAGE\tCLASS\tRANK\tCOMPETITOR\tTIME\tPOINTS\tPERCENT")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\t%.2f\t%.1f\t%.2f\n",
			r.MatchID, r.Stage, r.Class, r.Rank, r.CompetitorName, r.Time, r.StagePoints, r.StagePercent)
	}
	return w.Flush()
}
