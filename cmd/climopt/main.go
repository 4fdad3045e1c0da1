package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/FrankErrickson/Utilitarianism/internal/config"
	"github.com/FrankErrickson/Utilitarianism/internal/experiment"
	"github.com/FrankErrickson/Utilitarianism/internal/logging"
	"github.com/FrankErrickson/Utilitarianism/internal/optim"
	"github.com/FrankErrickson/Utilitarianism/internal/policy"
	"github.com/FrankErrickson/Utilitarianism/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

var (
	dataDir   string
	logLevel  string
	logFormat string
	logger    = zap.NewNop()

	configFile   string
	preset       string
	modelName    string
	regimeName   string
	algorithm    string
	periods      int
	stopTime     time.Duration
	starts       int
	seed         uint64
	maxEvals     int
	useNegishi   bool
	backstopFile string
	jsonOut      bool
	noSave       bool

	synthPeriods int
	synthRegions int

	exportFormat string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "climopt",
		Short:         "carbon tax and mitigation policy optimizer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(logLevel, logFormat)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".climopt", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatConsole, "log format (console, json)")

	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "find the welfare-maximizing policy",
		Args:  cobra.NoArgs,
		RunE:  runOptimize,
	}
	optimizeCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	optimizeCmd.Flags().StringVar(&preset, "preset", "", "optimizer preset")
	optimizeCmd.Flags().StringVar(&modelName, "model", config.DefaultModel, "model")
	optimizeCmd.Flags().StringVar(&regimeName, "regime", config.DefaultRegime, "regime (costmin, utilitarian)")
	optimizeCmd.Flags().StringVar(&algorithm, "algorithm", config.DefaultAlgorithm, "optimization algorithm")
	optimizeCmd.Flags().IntVar(&periods, "periods", config.DefaultPeriods, "number of optimized periods")
	optimizeCmd.Flags().DurationVar(&stopTime, "stop-time", config.DefaultStopTime, "advisory time limit")
	optimizeCmd.Flags().IntVar(&starts, "starts", 1, "independent starts run concurrently")
	optimizeCmd.Flags().Uint64Var(&seed, "seed", 1, "seed for start points and stochastic algorithms")
	optimizeCmd.Flags().IntVar(&maxEvals, "max-evals", 0, "evaluation limit per start (0 = none)")
	optimizeCmd.Flags().BoolVar(&useNegishi, "negishi", false, "use Negishi weights")
	optimizeCmd.Flags().StringVar(&backstopFile, "backstop", "", "backstop price CSV (periods x regions)")
	optimizeCmd.Flags().BoolVar(&jsonOut, "json", false, "print the result as JSON")
	optimizeCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	translateCmd := &cobra.Command{
		Use:   "translate [tax...]",
		Short: "convert a carbon tax path into a mitigation matrix (CSV)",
		RunE:  runTranslate,
	}
	translateCmd.Flags().StringVar(&backstopFile, "backstop", "", "backstop price CSV (periods x regions)")
	translateCmd.Flags().IntVar(&synthPeriods, "periods", config.DefaultBackstopPeriods, "synthetic backstop periods")
	translateCmd.Flags().IntVar(&synthRegions, "regions", config.DefaultBackstopRegions, "synthetic backstop regions")

	algorithmsCmd := &cobra.Command{
		Use:   "algorithms",
		Short: "list optimization algorithms",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, a := range optim.Algorithms() {
				fmt.Println(a)
			}
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list available models",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, m := range experiment.NewRegistry().ListModels() {
				fmt.Println(m)
			}
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list optimizer presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run's mitigation matrix",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format (csv, json)")

	rootCmd.AddCommand(optimizeCmd, translateCmd, algorithmsCmd, modelsCmd, presetsCmd, listCmd, showCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig builds the run configuration. The config file (or the defaults)
// comes first, a preset replaces the optimizer section, and explicitly set
// flags win over both.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if preset != "" {
		p, ok := config.GetPreset(preset)
		if !ok {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg.Optimizer = p
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model = modelName
	}
	if flags.Changed("regime") {
		cfg.Regime = regimeName
	}
	if flags.Changed("algorithm") {
		cfg.Optimizer.Algorithm = algorithm
	}
	if flags.Changed("periods") {
		cfg.Optimizer.Periods = periods
	}
	if flags.Changed("stop-time") {
		cfg.Optimizer.StopTime = stopTime
	}
	if flags.Changed("starts") {
		cfg.Optimizer.Starts = starts
	}
	if flags.Changed("seed") {
		cfg.Optimizer.Seed = seed
	}
	if flags.Changed("max-evals") {
		cfg.Optimizer.MaxEvaluations = maxEvals
	}
	if flags.Changed("negishi") {
		cfg.UseNegishi = useNegishi
	}
	if flags.Changed("backstop") {
		cfg.Backstop.File = backstopFile
		cfg.Backstop.Values = nil
	}
	return cfg, nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg, nil, logger)
	if err := exp.Setup(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		if _, err := st.Save(cfg.Model, cfg.Optimizer.Algorithm, res); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
	}

	if jsonOut {
		return printJSON(res)
	}
	return printSummary(res)
}

type jsonResult struct {
	*optim.Result
	Mitigation  [][]float64 `json:"mitigation"`
	CarbonPrice [][]float64 `json:"carbon_price"`
}

func printJSON(res *optim.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonResult{
		Result:      res,
		Mitigation:  rowsOf(res.Mitigation),
		CarbonPrice: rowsOf(res.CarbonPrice),
	})
}

func rowsOf(m *mat.Dense) [][]float64 {
	if m == nil {
		return nil
	}
	r, _ := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, m)
	}
	return rows
}

func printSummary(res *optim.Result) error {
	fmt.Printf("run id: %s\n", res.RunID)
	fmt.Printf("regime: %s\n", res.Regime)
	fmt.Printf("welfare: %.6f\n", res.Welfare)
	fmt.Printf("termination: %s (%s)\n", res.Termination, res.Status)
	fmt.Printf("evaluations: %d over %d start(s)\n", res.Evaluations, res.Starts)
	fmt.Printf("elapsed: %v\n", res.Elapsed.Round(time.Millisecond))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, regions := res.Mitigation.Dims()
	header := []string{"PERIOD"}
	if res.TaxPath != nil {
		header = append(header, "TAX")
	}
	for j := 0; j < regions; j++ {
		header = append(header, fmt.Sprintf("MIU_R%d", j))
	}
	fmt.Println()
	fmt.Fprintln(w, strings.Join(header, "\t"))

	rows := rowsOf(res.Mitigation)
	for t, row := range rows {
		cells := []string{strconv.Itoa(t)}
		if res.TaxPath != nil {
			cells = append(cells, fmt.Sprintf("%.2f", res.TaxPath[t]))
		}
		for _, v := range row {
			cells = append(cells, fmt.Sprintf("%.4f", v))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func runTranslate(cmd *cobra.Command, args []string) error {
	tax := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("tax %d: %w", i+1, err)
		}
		tax[i] = v
	}

	bc := config.BackstopConfig{File: backstopFile, Periods: synthPeriods, Regions: synthRegions}
	backstop, err := experiment.LoadBackstop(bc)
	if err != nil {
		return err
	}
	m, err := policy.MitigationFromTax(tax, backstop, policy.DefaultTheta)
	if err != nil {
		return err
	}
	return storage.WriteMatrix(os.Stdout, m)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tALGORITHM\tPERIODS\tSTOP\tSTARTS")
	for _, name := range config.ListPresets() {
		p, _ := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\t%d\n", name, p.Algorithm, p.Periods, p.StopTime, p.Starts)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tMODEL\tREGIME\tALGO\tWELFARE\tTERM\tEVALS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.6f\t%s\t%d\n",
			run.ID,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Model,
			run.Regime,
			run.Algorithm,
			run.Welfare,
			run.Termination,
			run.Evaluations,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	switch exportFormat {
	case "json":
		return st.ExportJSON(os.Stdout, args[0])
	case "csv":
	default:
		return fmt.Errorf("unknown export format: %s", exportFormat)
	}

	m, err := st.LoadMitigation(args[0])
	if err != nil {
		return err
	}
	return storage.WriteMatrix(os.Stdout, m)
}
