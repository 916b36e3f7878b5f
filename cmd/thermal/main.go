// Command thermal solves a thermal history from a YAML configuration and
// writes the resulting table and epoch summary, or runs a parameter sweep
// over many solves.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rollingthunder/thermal/sampling"
	"github.com/rollingthunder/thermal/thermal"
)

type axisConfig struct {
	Param string  `yaml:"param"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
}

type fileConfig struct {
	Params    thermal.Params    `yaml:"params"`
	Precision thermal.Precision `yaml:"precision"`
	Sweep     []axisConfig      `yaml:"sweep"`
}

// knownAxes maps sweepable parameter names to their setters.
var knownAxes = map[string]func(*thermal.Params, float64){
	"h":            func(p *thermal.Params, v float64) { p.Background.H100 = v },
	"omega_b":      func(p *thermal.Params, v float64) { p.Background.OmegaB = v },
	"omega_cdm":    func(p *thermal.Params, v float64) { p.Background.OmegaCDM = v },
	"t_cmb":        func(p *thermal.Params, v float64) { p.Background.TCMB = v },
	"n_eff":        func(p *thermal.Params, v float64) { p.Background.NEff = v },
	"yhe":          func(p *thermal.Params, v float64) { p.YHe = v },
	"z_reio":       func(p *thermal.Params, v float64) { p.Reio.CAMB.ZReio = v },
	"tau_reio":     func(p *thermal.Params, v float64) { p.Reio.TauReio = v },
	"annihilation": func(p *thermal.Params, v float64) { p.Heating.Annihilation = v },
	"decay":        func(p *thermal.Params, v float64) { p.Heating.Decay = v },
}

var log = logrus.New()

func main() {
	if err := rootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "thermal",
		Short:         "recombination and reionization history solver",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(viper.GetString("log_level"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "YAML configuration file")
	root.PersistentFlags().String("log-level", "info", "logrus level")
	viper.SetEnvPrefix("thermal")
	viper.AutomaticEnv()
	must(viper.BindPFlag("config", root.PersistentFlags().Lookup("config")))
	must(viper.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level")))

	root.AddCommand(solveCmd(), sweepCmd())
	return root
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// loadConfig layers the YAML file over the built-in defaults.
func loadConfig() (fileConfig, error) {
	cfg := fileConfig{
		Params:    thermal.DefaultParams(),
		Precision: thermal.DefaultPrecision(),
	}
	path := viper.GetString("config")
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func solveCmd() *cobra.Command {
	var tableOut string

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "solve one thermal history and print the epoch summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			solver, err := thermal.NewSolver(cfg.Params, cfg.Precision, log)
			if err != nil {
				return err
			}
			hist, err := solver.Solve()
			if err != nil {
				return err
			}

			if tableOut != "" {
				if err := writeTable(tableOut, hist); err != nil {
					return err
				}
				log.WithField("path", tableOut).Info("table written")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&tableOut, "table", "t", "", "write the full table as CSV")
	return cmd
}

func writeTable(path string, hist *thermal.History) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"z", "tau_mpc", "x_e", "dkappa", "exp_m_kappa", "g", "Tb_K", "cb2", "tau_d", "rate"}
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < hist.Table.Len(); i++ {
		r := hist.Table.Row(i)
		rec := []string{
			fe(hist.Table.Z[i]), fe(hist.Table.Tau[i]),
			fe(r.Xe), fe(r.DKappa), fe(r.ExpMinusKappa), fe(r.G),
			fe(r.Tb), fe(r.Cb2), fe(r.TauD), fe(r.Rate),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func fe(v float64) string { return strconv.FormatFloat(v, 'e', 10, 64) }

func sweepCmd() *cobra.Command {
	var (
		count   int
		workers int
		seed    int64
		out     string
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a latin hypercube sweep of solves",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(cfg.Sweep) == 0 {
				return fmt.Errorf("no sweep axes in the configuration")
			}

			axes := make([]sampling.Axis, len(cfg.Sweep))
			for i, ac := range cfg.Sweep {
				apply, ok := knownAxes[ac.Param]
				if !ok {
					return fmt.Errorf("unknown sweep parameter %q", ac.Param)
				}
				if ac.Max <= ac.Min {
					return fmt.Errorf("empty range for sweep parameter %q", ac.Param)
				}
				axes[i] = sampling.Axis{Name: ac.Param, Min: ac.Min, Max: ac.Max, Apply: apply}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sweep := &sampling.Sweep{
				Base:      cfg.Params,
				Precision: cfg.Precision,
				Axes:      axes,
				Workers:   workers,
				Log:       log,
			}
			points := sampling.LatinHypercube(axes, count, rand.New(rand.NewSource(seed)))
			results, err := sweep.Run(ctx, points)
			if err != nil {
				return err
			}
			return writeSweep(out, axes, results)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 100, "number of sampled points")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent solves, 0 = all cores")
	cmd.Flags().Int64Var(&seed, "seed", 1, "sampling seed")
	cmd.Flags().StringVarP(&out, "out", "o", "sweep.csv", "result CSV path")
	return cmd
}

func writeSweep(path string, axes []sampling.Axis, results []sampling.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := make([]string, 0, len(axes)+6)
	for _, ax := range axes {
		header = append(header, ax.Name)
	}
	header = append(header, "z_rec", "tau_rec", "rs_rec", "z_drag", "rs_drag", "tau_reio")
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		rec := make([]string, 0, len(header))
		for _, v := range r.Point {
			rec = append(rec, fe(v))
		}
		h := r.History
		rec = append(rec, fe(h.ZRec), fe(h.TauRec), fe(h.RsRec), fe(h.ZDrag), fe(h.RsDrag), fe(h.TauReio))
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}
