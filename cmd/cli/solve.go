package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kosarica/purchase-optimizer/internal/optimizer"
	"github.com/kosarica/purchase-optimizer/internal/parsers/xlsx"
	"github.com/kosarica/purchase-optimizer/internal/solver"
)

var (
	solveOutput      string
	solveSolver      string
	solveExact       bool
	solveContinuous  bool
	solveConcurrency int
	solveShowModel   bool
	verbose          bool
)

var solveCmd = &cobra.Command{
	Use:   "solve <workbook>...",
	Short: "Optimize one or more purchase problem workbooks",
	Long: `Read purchase problems from workbooks and print the cheapest purchase plan.

Each workbook holds four sheets in order: the items with their desired quantity,
the unit prices per retailer, the stock per retailer, and each retailer's
shipping fee and free-shipping threshold.

The solver status, every model variable, the total purchase cost, the quantity
table and the bill per retailer are printed for each workbook. With --output the
plan is also written to a result workbook; when several workbooks are solved
--output names a directory and each result is saved as <name>_result.xlsx.`,
	Example: `  # Solve a problem and print the plan
  purchase-optimizer solve shopping.xlsx

  # Demand must be met exactly, save the result
  purchase-optimizer solve shopping.xlsx --exact -o result.xlsx

  # Solve a batch, four at a time
  purchase-optimizer solve data/*.xlsx -o results/ --concurrency 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSolve,
}

func init() {
	rootCmd.AddCommand(solveCmd)

	solveCmd.Flags().StringVarP(&solveOutput, "output", "o", "", "result workbook path, or output directory for several workbooks")
	solveCmd.Flags().StringVar(&solveSolver, "solver", "", "solver id (default from config)")
	solveCmd.Flags().BoolVar(&solveExact, "exact", false, "buy exactly the desired quantities, no surplus")
	solveCmd.Flags().BoolVar(&solveContinuous, "continuous", false, "allow fractional quantities (experimental)")
	solveCmd.Flags().IntVar(&solveConcurrency, "concurrency", 2, "number of workbooks solved in parallel")
	solveCmd.Flags().BoolVar(&solveShowModel, "show-model", false, "print the generated model before solving")
	solveCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// solveOutcome is the result of one workbook, printed after the batch ends
// so output of parallel solves does not interleave.
type solveOutcome struct {
	path     string
	warnings []xlsx.ParseWarning
	model    string
	result   *optimizer.Result
	saved    string
	err      error
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if logger != nil {
		ctx = logger.WithContext(ctx)
	}

	oc := optimizer.Defaults()
	if cfg != nil {
		oc = cfg.OptimizerConfig()
	}
	if solveSolver != "" {
		oc.SolverID = solveSolver
	}
	if cmd.Flags().Changed("exact") {
		oc.AllowSurplusForSavings = !solveExact
	}
	if cmd.Flags().Changed("continuous") {
		oc.IntegerQuantities = !solveContinuous
	}
	if err := oc.Validate(); err != nil {
		return err
	}

	service := optimizer.NewService(solver.NewDefaultRegistry(), oc)
	outputs, err := outputPaths(args, solveOutput)
	if err != nil {
		return err
	}

	outcomes := make([]solveOutcome, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(solveConcurrency, 1))
	for i, path := range args {
		g.Go(func() error {
			outcomes[i] = solveWorkbook(gctx, service, oc, path, outputs[i])
			return nil
		})
	}
	_ = g.Wait()

	out := cmd.OutOrStdout()
	failed := 0
	for i, o := range outcomes {
		if len(args) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "== %s ==\n", o.path)
		}
		for _, w := range o.warnings {
			fmt.Fprintf(out, "Warning: sheet %s row %d: %s\n", w.Sheet, w.Row, w.Message)
		}
		if o.model != "" {
			fmt.Fprintln(out, o.model)
		}
		if o.err != nil {
			failed++
			fmt.Fprintf(out, "Error: %v\n", o.err)
			continue
		}
		printResult(out, o.result)
		if o.saved != "" {
			fmt.Fprintf(out, "\nResult written to %s\n", o.saved)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d workbooks failed", failed, len(args))
	}
	return nil
}

func solveWorkbook(ctx context.Context, service *optimizer.Service, oc *optimizer.Config, path, output string) solveOutcome {
	o := solveOutcome{path: path}
	log := zerolog.Ctx(ctx).With().Str("workbook", path).Logger()

	parsed, err := xlsx.NewParser(xlsx.DefaultOptions()).ParseFile(path)
	if err != nil {
		o.err = err
		return o
	}
	o.warnings = parsed.Warnings

	p, err := optimizer.NewProblem(parsed.Input, oc.ProblemOptions())
	if err != nil {
		o.err = err
		return o
	}
	if solveShowModel {
		o.model = optimizer.BuildModel(p).Model().String()
	}

	log.Debug().Int("items", len(p.Items)).Int("retailers", len(p.Retailers)).Msg("Solving workbook")
	o.result, o.err = service.Optimize(ctx, p, oc.SolverID)
	if o.err != nil || output == "" || !o.result.IsOptimal() {
		return o
	}

	if err := xlsx.SaveResult(output, o.result.Plan, o.result.Billing); err != nil {
		o.err = err
		return o
	}
	o.saved = output
	return o
}

// outputPaths maps every input workbook to its result path. A single input
// writes to output as given; several inputs treat output as a directory.
func outputPaths(inputs []string, output string) ([]string, error) {
	paths := make([]string, len(inputs))
	if output == "" {
		return paths, nil
	}
	if len(inputs) == 1 && !strings.HasSuffix(output, string(os.PathSeparator)) {
		if info, err := os.Stat(output); err != nil || !info.IsDir() {
			paths[0] = output
			return paths, nil
		}
	}

	if err := os.MkdirAll(output, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	for i, in := range inputs {
		base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		paths[i] = filepath.Join(output, base+"_result.xlsx")
	}
	return paths, nil
}
