package main

import (
	"fmt"
	"log"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fumin/qtebd"
	"github.com/fumin/qtebd/circuit"
	"github.com/fumin/qtebd/mat"
	"github.com/fumin/qtebd/mps"
	"github.com/fumin/qtebd/statevec"
	"github.com/fumin/qtebd/store"
	"github.com/fumin/qtebd/util"
)

const (
	kindRun    = "run"
	kindSweep  = "sweep"
	kindQuench = "quench"
	kindGround = "ground"

	// maxExactQubits is the largest chain compared against exact simulation.
	maxExactQubits = 14
)

var (
	dbPath  string
	runName string

	qubits  int
	depth   int
	seed    uint64
	maxDims []int
	maxDim  int

	coupling float64
	field    float64
	dt       float64
	steps    int

	bondDim int
	tol     float64
)

func main() {
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	rootCmd := &cobra.Command{
		Use:           "qtebd",
		Short:         "bond dimension truncated matrix product state simulations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "results database, empty for no persistence")
	rootCmd.PersistentFlags().StringVar(&runName, "name", "", "run name in the results database")

	runCmd := &cobra.Command{
		Use:   "run [config.yaml]",
		Short: "run a circuit described by a config file",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfig,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "fidelity of a random brickwork circuit against the maximum bond dimension",
		RunE:  sweep,
	}
	sweepCmd.Flags().IntVar(&qubits, "qubits", 10, "number of qubits")
	sweepCmd.Flags().IntVar(&depth, "depth", 10, "circuit depth")
	sweepCmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	sweepCmd.Flags().IntSliceVar(&maxDims, "maxdims", []int{1, 2, 4, 8, 16, 32}, "maximum bond dimensions")

	quenchCmd := &cobra.Command{
		Use:   "quench",
		Short: "magnetization after a transverse field Ising quench from the all up state",
		RunE:  quench,
	}
	quenchCmd.Flags().IntVar(&qubits, "qubits", 10, "number of spins")
	quenchCmd.Flags().Float64Var(&coupling, "j", 1, "Ising coupling")
	quenchCmd.Flags().Float64Var(&field, "h", 1, "transverse field")
	quenchCmd.Flags().Float64Var(&dt, "dt", 0.02, "Trotter time step")
	quenchCmd.Flags().IntVar(&steps, "steps", 100, "number of time steps")
	quenchCmd.Flags().IntVar(&maxDim, "maxdim", 16, "maximum bond dimension, 0 for no limit")

	groundCmd := &cobra.Command{
		Use:   "ground",
		Short: "ground state of the transverse field Ising chain",
		RunE:  ground,
	}
	groundCmd.Flags().IntVar(&qubits, "qubits", 10, "number of spins")
	groundCmd.Flags().Float64Var(&coupling, "j", 1, "Ising coupling")
	groundCmd.Flags().Float64Var(&field, "h", 1, "transverse field")
	groundCmd.Flags().IntVar(&bondDim, "bonddim", 8, "bond dimension")
	groundCmd.Flags().Float64Var(&tol, "tol", 1e-6, "tolerance of the energy variance")
	groundCmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")

	rootCmd.AddCommand(runCmd, sweepCmd, quenchCmd, groundCmd)
	if err := rootCmd.Execute(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := circuit.LoadConfig(args[0])
	if err != nil {
		return errors.Wrap(err, "")
	}
	if dbPath != "" {
		cfg.DB = dbPath
	}
	name := runName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	}
	return simulate(name, kindRun, cfg)
}

func sweep(cmd *cobra.Command, args []string) error {
	cfg := circuit.DefaultConfig()
	cfg.Qubits = qubits
	cfg.Circuit.Depth = depth
	cfg.Circuit.Seed = seed
	cfg.MaxDims = maxDims
	cfg.DB = dbPath
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "")
	}
	name := runName
	if name == "" {
		name = fmt.Sprintf("brickwork-%d-%d-%d", qubits, depth, seed)
	}
	return simulate(name, kindSweep, cfg)
}

// simulate runs the circuit of cfg once for every maximum bond dimension.
func simulate(name, kind string, cfg *circuit.Config) error {
	c, err := cfg.Build()
	if err != nil {
		return errors.Wrap(err, "")
	}
	vectors, err := cfg.InitialState()
	if err != nil {
		return errors.Wrap(err, "")
	}
	observables := make([]mps.Observable, 0, len(cfg.Observables))
	for _, op := range cfg.Observables {
		o, err := op.Observable()
		if err != nil {
			return errors.Wrap(err, op.String())
		}
		observables = append(observables, o)
	}

	var exact *statevec.State
	if cfg.Qubits <= maxExactQubits {
		exact, err = statevec.FromProduct(to128(vectors))
		if err != nil {
			return errors.Wrap(err, "")
		}
		if err := c.RunExact(exact); err != nil {
			return errors.Wrap(err, "")
		}
	}

	dims := cfg.MaxDims
	if len(dims) == 0 {
		dims = []int{0}
	}
	results := make([]store.Result, 0)
	fidelities := make([]float64, 0, len(dims))
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "maxdim\tbond\tnorm\tdiscarded\tfidelity\ttime\t%s\n", strings.Join(opNames(cfg.Observables), "\t"))
	for _, d := range dims {
		state, err := mps.FromProductState(2, vectors)
		if err != nil {
			return errors.Wrap(err, "")
		}
		opt := mps.NewEvolveOptions().MaxDim(d).Canonical(cfg.Canonical).Renormalize(cfg.Renormalize)
		if cfg.Cutoff > 0 {
			opt = opt.Cutoff(cfg.Cutoff)
		}
		start := time.Now()
		if err := c.Run(state, opt); err != nil {
			return errors.Wrap(err, fmt.Sprintf("maxdim %d", d))
		}
		elapsed := time.Since(start)

		fid := math.NaN()
		if exact != nil {
			fid = fidelity(state, exact)
		}
		fidelities = append(fidelities, fid)
		vals, err := state.Expect(observables...)
		if err != nil {
			return errors.Wrap(err, "")
		}

		r := store.Result{Run: name, Kind: kind, MaxDim: d, Step: len(c.Ops)}
		results = append(results, withKey(r, "bond", float64(state.MaxBondDim())))
		results = append(results, withKey(r, "norm", state.Norm()))
		results = append(results, withKey(r, "discarded", state.Discarded()))
		if exact != nil {
			results = append(results, withKey(r, "fidelity", fid))
		}
		norm2 := state.Norm() * state.Norm()
		valStrs := make([]string, 0, len(vals))
		for i, v := range vals {
			ev := float64(real(v)) / norm2
			results = append(results, withKey(r, cfg.Observables[i].String(), ev))
			valStrs = append(valStrs, fmt.Sprintf("%.4f", ev))
		}
		fmt.Fprintf(tw, "%d\t%d\t%.6f\t%.3g\t%.6f\t%s\t%s\n", d, state.MaxBondDim(), state.Norm(), state.Discarded(), fid, elapsed, strings.Join(valStrs, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "")
	}

	if exact != nil && len(fidelities) > 1 {
		caption := fmt.Sprintf("fidelity vs maxdim %v", dims)
		fmt.Println(asciigraph.Plot(fidelities, asciigraph.Height(10), asciigraph.Width(60), asciigraph.Caption(caption)))
	}
	return save(cfg.DB, results)
}

func quench(cmd *cobra.Command, args []string) error {
	n := qubits
	step, err := circuit.IsingTrotter(n, coupling, field, dt, 1)
	if err != nil {
		return errors.Wrap(err, "")
	}
	vectors := make([][]complex64, 0, n)
	for range n {
		vectors = append(vectors, []complex64{1, 0})
	}
	state, err := mps.FromProductState(2, vectors)
	if err != nil {
		return errors.Wrap(err, "")
	}
	opt := mps.NewEvolveOptions().MaxDim(maxDim).Canonical(true)
	mz := mps.MagnetizationZ(n)
	hamiltonian := mps.Ising(n, complex(float32(coupling), 0), complex(float32(field), 0))

	var exact *qtebd.Exact
	var exactH *mat.COO
	var psi0, psi []complex128
	if n <= maxExactQubits {
		exactH = qtebd.TransverseFieldIsing([2]int{n, 1}, coupling, field)
		exact, err = qtebd.NewExact(exactH)
		if err != nil {
			return errors.Wrap(err, "")
		}
		psi0, psi = make([]complex128, 1<<n), make([]complex128, 1<<n)
		psi0[0] = 1
	}

	name := runName
	if name == "" {
		name = fmt.Sprintf("ising-%d-%g-%g-%g", n, coupling, field, dt)
	}
	results := make([]store.Result, 0)
	tebd := make([]float64, 0, steps+1)
	reference := make([]float64, 0, steps+1)
	throttler := util.NewSkipThrottler(time.Second)
	for s := 0; s <= steps; s++ {
		if s > 0 {
			if err := step.Run(state, opt); err != nil {
				return errors.Wrap(err, fmt.Sprintf("step %d", s))
			}
		}

		m, err := state.ExpectMPO(mz)
		if err != nil {
			return errors.Wrap(err, "")
		}
		norm2, err := mps.Overlap(state, state)
		if err != nil {
			return errors.Wrap(err, "")
		}
		mt := float64(real(m/norm2)) / float64(n)
		tebd = append(tebd, mt)
		e, err := state.ExpectMPO(hamiltonian)
		if err != nil {
			return errors.Wrap(err, "")
		}
		r := store.Result{Run: name, Kind: kindQuench, MaxDim: maxDim, Step: s}
		results = append(results, withKey(r, "mz", mt), withKey(r, "energy", float64(real(e/norm2))), withKey(r, "bond", float64(state.MaxBondDim())))

		if exact != nil {
			exact.Evolve(psi, psi0, dt*float64(s))
			mzs, err := qtebd.MagnetizationZ(psi, n)
			if err != nil {
				return errors.Wrap(err, "")
			}
			var me float64
			for _, v := range mzs {
				me += v
			}
			me /= float64(n)
			reference = append(reference, me)
			ee, err := qtebd.Energy(exactH, psi)
			if err != nil {
				return errors.Wrap(err, "")
			}
			results = append(results, withKey(r, "mz_exact", me), withKey(r, "energy_exact", ee))
		}

		if throttler.Ok() {
			log.Printf("step %d t %.3f mz %.6f bond %d", s, dt*float64(s), mt, state.MaxBondDim())
		}
	}

	series := [][]float64{tebd}
	caption := "mean Z vs time"
	if exact != nil {
		series = append(series, reference)
		caption = "mean Z vs time, TEBD and exact"
	}
	graph := asciigraph.PlotMany(series,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
		asciigraph.Caption(caption),
	)
	fmt.Println(graph)
	return save(dbPath, results)
}

func ground(cmd *cobra.Command, args []string) error {
	n := qubits
	h := mps.Ising(n, complex(float32(coupling), 0), complex(float32(field), 0))
	rng := rand.New(rand.NewPCG(seed, seed))
	state := mps.RandMPS(h, bondDim, rng)
	opt := mps.NewSearchGroundStateOptions().Tol(float32(tol))
	start := time.Now()
	if err := state.SearchGroundState(h, opt); err != nil {
		return errors.Wrap(err, "")
	}
	log.Printf("search %s", time.Since(start))

	psiIP, err := mps.Overlap(state, state)
	if err != nil {
		return errors.Wrap(err, "")
	}
	e0, err := state.ExpectMPO(h)
	if err != nil {
		return errors.Wrap(err, "")
	}
	e0 /= psiIP
	h2, err := state.ExpectMPO2(h)
	if err != nil {
		return errors.Wrap(err, "")
	}
	variance := h2/psiIP - e0*e0
	m2, err := state.ExpectMPO2(mps.MagnetizationZ(n))
	if err != nil {
		return errors.Wrap(err, "")
	}
	// Magnetization per spin.
	m := cmplx.Sqrt(complex128(m2/psiIP)) / complex(float64(n), 0)

	name := runName
	if name == "" {
		name = fmt.Sprintf("ground-%d-%g-%g", n, coupling, field)
	}
	r := store.Result{Run: name, Kind: kindGround, MaxDim: bondDim}
	results := []store.Result{
		withKey(r, "energy", float64(real(e0))),
		withKey(r, "variance", float64(real(variance))),
		withKey(r, "m", real(m)),
	}
	fmt.Printf("e0 %.8f variance %.3g m %.6f\n", real(e0), real(variance), real(m))

	if n <= maxExactQubits {
		exact, err := qtebd.NewExact(qtebd.TransverseFieldIsing([2]int{n, 1}, coupling, field))
		if err != nil {
			return errors.Wrap(err, "")
		}
		stats, err := qtebd.GetStatistics([2]int{n, 1}, exact.Eigen())
		if err != nil {
			return errors.Wrap(err, "")
		}
		results = append(results, withKey(r, "energy_exact", stats.EigenValue[0]), withKey(r, "binder_exact", stats.BinderCumulant))
		fmt.Printf("exact e0 %.8f m %.6f binder %.6f\n", stats.EigenValue[0], stats.Magnetization, stats.BinderCumulant)
	}
	return save(dbPath, results)
}

func save(path string, results []store.Result) error {
	if path == "" {
		return nil
	}
	db, err := store.Open(path)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer db.Close()
	if err := db.Put(results...); err != nil {
		return errors.Wrap(err, "")
	}
	log.Printf("saved %d results to %s", len(results), path)
	return nil
}

func withKey(r store.Result, key string, v float64) store.Result {
	r.Key, r.Value = key, v
	return r
}

// fidelity returns |<exact|m>| / (|m| |exact|).
func fidelity(m *mps.MPS, exact *statevec.State) float64 {
	var ip complex128
	for ijk, v := range m.Amplitudes().All() {
		ip += cmplx.Conj(exact.At(ijk...)) * complex128(v)
	}
	return cmplx.Abs(ip) / m.Norm() / exact.Norm()
}

func opNames(ops []circuit.Op) []string {
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, op.String())
	}
	return names
}

func to128(vectors [][]complex64) [][]complex128 {
	vs := make([][]complex128, 0, len(vectors))
	for _, v := range vectors {
		w := make([]complex128, 0, len(v))
		for _, x := range v {
			w = append(w, complex128(x))
		}
		vs = append(vs, w)
	}
	return vs
}
