package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mhelwig/odefit/internal/abc"
	"github.com/mhelwig/odefit/internal/analysis"
	"github.com/mhelwig/odefit/internal/config"
	"github.com/mhelwig/odefit/internal/engine"
	"github.com/mhelwig/odefit/internal/export"
	"github.com/mhelwig/odefit/internal/models"
	"github.com/mhelwig/odefit/internal/optim"
	"github.com/mhelwig/odefit/internal/petab"
	"github.com/mhelwig/odefit/internal/storage"
	"github.com/mhelwig/odefit/internal/tui"
)

var (
	dataDir    string
	configFile string
	verbose    bool
	// parameter assignments of the form id=value, on the natural scale
	parFlags []string
	// solver overrides
	method   string
	dt       float64
	absTol   float64
	relTol   float64
	maxSteps int
	// fit / profile
	gridPoints int
	live       bool
	save       bool
	svgPath    string
	// snapshot
	outPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "odefit",
		Short: "ode parameter estimation for likelihood-free inference",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	simulateCmd := &cobra.Command{
		Use:   "simulate [problem.yaml]",
		Short: "evaluate the model at a parameter set",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulate,
	}
	addSolverFlags(simulateCmd)
	simulateCmd.Flags().StringSliceVar(&parFlags, "par", nil, "parameter value id=value (natural scale)")
	simulateCmd.Flags().BoolVar(&save, "save", false, "store result in the data directory")

	plotCmd := &cobra.Command{
		Use:   "plot [problem.yaml]",
		Short: "plot simulated observables against measurements",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlot,
	}
	addSolverFlags(plotCmd)
	plotCmd.Flags().StringSliceVar(&parFlags, "par", nil, "parameter value id=value (natural scale)")
	plotCmd.Flags().StringVar(&svgPath, "svg", "", "also write an svg file")

	fitCmd := &cobra.Command{
		Use:   "fit [problem.yaml]",
		Short: "grid search over the free parameters",
		Args:  cobra.ExactArgs(1),
		RunE:  runFit,
	}
	addSolverFlags(fitCmd)
	fitCmd.Flags().IntVar(&gridPoints, "points", config.DefaultGridPoints, "grid points per parameter")
	fitCmd.Flags().BoolVar(&live, "live", false, "live progress view")
	fitCmd.Flags().BoolVar(&save, "save", false, "store best result in the data directory")

	profileCmd := &cobra.Command{
		Use:   "profile [problem.yaml] [parameter]",
		Short: "likelihood profile of one parameter",
		Args:  cobra.ExactArgs(2),
		RunE:  runProfile,
	}
	addSolverFlags(profileCmd)
	profileCmd.Flags().IntVar(&gridPoints, "points", 25, "grid points")
	profileCmd.Flags().StringVar(&svgPath, "svg", "", "also write an svg file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and parameters as json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(args[0], os.Stdout)
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list built-in dynamical models",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range models.Default().Names() {
				fmt.Println(name)
			}
		},
	}

	snapshotCmd := &cobra.Command{
		Use:   "snapshot [problem.yaml]",
		Short: "capture a portable model snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runSnapshot,
	}
	addSolverFlags(snapshotCmd)
	snapshotCmd.Flags().StringVarP(&outPath, "out", "o", "model.snapshot", "output file")

	restoreCmd := &cobra.Command{
		Use:   "restore [snapshot]",
		Short: "rebuild a model from a snapshot and evaluate it",
		Args:  cobra.ExactArgs(1),
		RunE:  runRestore,
	}
	restoreCmd.Flags().StringSliceVar(&parFlags, "par", nil, "parameter value id=value (natural scale)")

	rootCmd.AddCommand(simulateCmd, plotCmd, fitCmd, profileCmd, listCmd, exportCmd, modelsCmd, snapshotCmd, restoreCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSolverFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&method, "method", "", "integration method (euler, rk4, rk45)")
	cmd.Flags().Float64Var(&dt, "dt", 0, "timestep")
	cmd.Flags().Float64Var(&absTol, "abs-tol", 0, "absolute tolerance (rk45)")
	cmd.Flags().Float64Var(&relTol, "rel-tol", 0, "relative tolerance (rk45)")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "step limit per condition")
}

func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// buildImporter resolves problem file, config and flags into a compiled
// importer. Flag values beat config values beat model defaults.
func buildImporter(problemPath string) (*petab.Problem, *abc.Importer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	problem, err := petab.Load(problemPath)
	if err != nil {
		return nil, nil, err
	}

	model, err := engine.ImportProblem(problem)
	if err != nil {
		return nil, nil, err
	}

	solver := model.NewSolver()
	cfg.Solver.Apply(solver)
	flagSolver := config.SolverConfig{
		Method: method, Dt: dt, AbsTol: absTol, RelTol: relTol, MaxSteps: maxSteps,
	}
	flagSolver.Apply(solver)

	imp, err := abc.NewImporter(problem, abc.WithModel(model), abc.WithSolver(solver))
	if err != nil {
		return nil, nil, err
	}
	return problem, imp, nil
}

// parseAssignment turns --par id=value pairs into a scaled assignment
// for the free parameters, defaulting to the problem nominals.
func parseAssignment(problem *petab.Problem) (abc.Assignment, error) {
	freeIDs := problem.ParameterIDs(true, false)
	nominal := problem.NominalValues(true, true, false)

	par := make(abc.Assignment, len(freeIDs))
	for i, id := range freeIDs {
		par[id] = nominal[i]
	}

	for _, pair := range parFlags {
		id, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --par %q, want id=value", pair)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --par value %q: %w", raw, err)
		}
		scaled, err := problem.ScaleValue(id, v)
		if err != nil {
			return nil, err
		}
		par[id] = scaled
	}
	return par, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	problem, imp, err := buildImporter(args[0])
	if err != nil {
		return err
	}

	par, err := parseAssignment(problem)
	if err != nil {
		return err
	}

	model := imp.CreateModel(abc.ModelOptions{ReturnSimulations: true, ReturnRawResults: true})

	start := time.Now()
	res, err := model.Evaluate(context.Background(), par)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("problem: %s\n", problem.Name)
	fmt.Printf("llh: %.6g\n", res[abc.LLHKey])
	fmt.Printf("completed in %v\n", elapsed)

	conditions, _ := res[abc.RawResultsKey].([]*engine.ConditionResult)
	metrics := map[string]float64{}
	if len(conditions) > 0 {
		fmt.Println("\nconditions:")
		for _, cr := range conditions {
			fmt.Printf("  %s: status=%s llh=%.6g chi2=%.6g rmse=%.6g\n",
				cr.ConditionID, cr.Status, cr.LLH, cr.Chi2, cr.RMSE)
			metrics["chi2_"+cr.ConditionID] = cr.Chi2
			metrics["rmse_"+cr.ConditionID] = cr.RMSE
		}
	}

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.SaveResult(problem.Name, problem.ModelName, "simulate",
			unscaledParams(problem, par), metrics, res)
		if err != nil {
			return err
		}
		fmt.Printf("\nrun id: %s\n", runID)
	}
	return nil
}

func runPlot(cmd *cobra.Command, args []string) error {
	problem, imp, err := buildImporter(args[0])
	if err != nil {
		return err
	}

	par, err := parseAssignment(problem)
	if err != nil {
		return err
	}

	model := imp.CreateModel(abc.ModelOptions{ReturnRawResults: true})
	res, err := model.Evaluate(context.Background(), par)
	if err != nil {
		return err
	}

	conditions, _ := res[abc.RawResultsKey].([]*engine.ConditionResult)
	fmt.Printf("problem: %s  llh: %.6g\n\n", problem.Name, res[abc.LLHKey])

	var series []export.Series
	var points []export.Point

	for _, cr := range conditions {
		if cr.Status != engine.StatusOK {
			fmt.Printf("condition %s: %s, nothing to plot\n\n", cr.ConditionID, cr.Status)
			continue
		}
		for oi, obs := range problem.Observables {
			data := make([]float64, len(cr.Times))
			for ti := range cr.Times {
				data[ti] = cr.Observables[ti][oi]
			}
			caption := fmt.Sprintf("%s / %s", cr.ConditionID, obs.ID)
			fmt.Println(asciigraph.Plot(data,
				asciigraph.Height(10), asciigraph.Width(70), asciigraph.Caption(caption)))
			fmt.Println()

			series = append(series, export.Series{
				Label: caption,
				X:     append([]float64(nil), cr.Times...),
				Y:     data,
			})
		}
		for _, m := range problem.ConditionMeasurements(cr.ConditionID) {
			points = append(points, export.Point{X: m.Time, Y: m.Value})
		}
	}

	if svgPath != "" {
		if err := export.FitSVG(svgPath, series, points, 800, 500); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}
	return nil
}

func runFit(cmd *cobra.Command, args []string) error {
	problem, imp, err := buildImporter(args[0])
	if err != nil {
		return err
	}

	model := imp.CreateModel(abc.ModelOptions{ReturnSimulations: save})
	freeIDs := model.FreeParameterIDs()
	if len(freeIDs) == 0 {
		return fmt.Errorf("problem %s has no free parameters to fit", problem.Name)
	}

	grids := make([][]float64, len(freeIDs))
	for i, id := range freeIDs {
		p, _ := problem.Parameter(id)
		lo, err := problem.ScaleValue(id, p.LowerBound)
		if err != nil {
			return err
		}
		hi, err := problem.ScaleValue(id, p.UpperBound)
		if err != nil {
			return err
		}
		grids[i] = optim.Range(lo, hi, gridPoints)
	}

	search, err := optim.NewGridSearch(freeIDs, grids)
	if err != nil {
		return err
	}

	eval := func(ctx context.Context, params map[string]float64) (float64, error) {
		res, err := model.Evaluate(ctx, abc.Assignment(params))
		if err != nil {
			return 0, err
		}
		llh, _ := res[abc.LLHKey].(float64)
		return llh, nil
	}

	var best map[string]float64
	var bestLLH float64

	if live {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		updates := make(chan optim.Progress, 16)
		search.OnProgress(func(p optim.Progress) {
			select {
			case updates <- p:
			case <-ctx.Done():
			}
		})

		errCh := make(chan error, 1)
		go func() {
			var serr error
			best, bestLLH, serr = search.Search(ctx, eval)
			close(updates)
			errCh <- serr
		}()

		viewErr := tui.RunFit(problem.Name, updates)
		cancel()
		serr := <-errCh
		if viewErr != nil {
			return viewErr
		}
		if serr != nil {
			if errors.Is(serr, context.Canceled) {
				fmt.Println("search aborted")
				return nil
			}
			return serr
		}
	} else {
		total := search.Total()
		step := total / 10
		if step == 0 {
			step = 1
		}
		search.OnProgress(func(p optim.Progress) {
			if p.Evaluations%step == 0 || p.Evaluations == total {
				fmt.Printf("  %d/%d  best llh %.6g\n", p.Evaluations, total, p.BestLLH)
			}
		})
		fmt.Printf("fitting %s: %d evaluations over %d parameters\n",
			problem.Name, total, len(freeIDs))
		best, bestLLH, err = search.Search(context.Background(), eval)
		if err != nil {
			return err
		}
	}

	if best == nil {
		return fmt.Errorf("no finite-likelihood point found")
	}

	fmt.Printf("\nbest llh: %.6g\n", bestLLH)
	printParams(problem, best)

	if save {
		// re-evaluate at the optimum so stored trajectories match it
		res, err := model.Evaluate(context.Background(), abc.Assignment(best))
		if err != nil {
			return err
		}

		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.SaveResult(problem.Name, problem.ModelName, "fit",
			unscaledParams(problem, best), nil, res)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	return nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	problem, imp, err := buildImporter(args[0])
	if err != nil {
		return err
	}
	paramID := args[1]

	p, ok := problem.Parameter(paramID)
	if !ok || !p.Estimate {
		return fmt.Errorf("unknown or fixed parameter %q", paramID)
	}

	model := imp.CreateModel(abc.ModelOptions{})
	eval := func(ctx context.Context, params map[string]float64) (float64, error) {
		res, err := model.Evaluate(ctx, abc.Assignment(params))
		if err != nil {
			return 0, err
		}
		llh, _ := res[abc.LLHKey].(float64)
		return llh, nil
	}

	assignment, err := parseAssignment(problem)
	if err != nil {
		return err
	}
	ref := map[string]float64(assignment)

	lo, err := problem.ScaleValue(paramID, p.LowerBound)
	if err != nil {
		return err
	}
	hi, err := problem.ScaleValue(paramID, p.UpperBound)
	if err != nil {
		return err
	}

	points, err := analysis.ProfileLikelihood(context.Background(), eval, ref,
		paramID, optim.Range(lo, hi, gridPoints))
	if err != nil {
		return err
	}

	llhs := make([]float64, 0, len(points))
	finite := false
	for _, pt := range points {
		if !math.IsInf(pt.LLH, -1) {
			finite = true
		}
		llhs = append(llhs, pt.LLH)
	}
	if !finite {
		return fmt.Errorf("profile of %s: every point diverged", paramID)
	}

	fmt.Println(asciigraph.Plot(llhs,
		asciigraph.Height(12), asciigraph.Width(70),
		asciigraph.Caption(fmt.Sprintf("llh profile of %s (scaled)", paramID))))

	if i := analysis.Peak(points); i >= 0 {
		natural, err := problem.UnscaleValue(paramID, points[i].Value)
		if err != nil {
			return err
		}
		fmt.Printf("\npeak: %s = %.6g (llh %.6g)\n", paramID, natural, points[i].LLH)
	}

	if svgPath != "" {
		if err := export.ProfileSVG(svgPath, points, 800, 500); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}
	return nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	problem, imp, err := buildImporter(args[0])
	if err != nil {
		return err
	}

	model := imp.CreateModel(abc.ModelOptions{ReturnSimulations: true})
	snap, err := model.Snapshot()
	if err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := snap.Encode(f); err != nil {
		return err
	}
	fmt.Printf("snapshot of %s written to %s\n", problem.Name, outPath)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	snap, err := abc.DecodeSnapshot(f)
	if err != nil {
		return err
	}

	model, err := abc.RestoreModel(snap)
	if err != nil {
		return err
	}

	par, err := parseAssignment(snap.Problem)
	if err != nil {
		return err
	}

	res, err := model.Evaluate(context.Background(), par)
	if err != nil {
		return err
	}

	fmt.Printf("restored problem: %s\n", snap.Problem.Name)
	fmt.Printf("llh: %.6g\n", res[abc.LLHKey])
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROBLEM\tMODEL\tKIND\tTIME\tLLH")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.6g\n",
			run.ID, run.Problem, run.Model, run.Kind,
			run.Timestamp.Format("2006-01-02 15:04:05"), run.LLH)
	}
	return w.Flush()
}

// unscaledParams converts a scaled assignment back to natural values
// for display and storage.
func unscaledParams(problem *petab.Problem, scaled map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scaled))
	for id, v := range scaled {
		natural, err := problem.UnscaleValue(id, v)
		if err != nil {
			out[id] = v
			continue
		}
		out[id] = natural
	}
	return out
}

func printParams(problem *petab.Problem, scaled map[string]float64) {
	natural := unscaledParams(problem, scaled)
	ids := make([]string, 0, len(natural))
	for id := range natural {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Printf("  %s = %.6g (scaled %.6g)\n", id, natural[id], scaled[id])
	}
}
