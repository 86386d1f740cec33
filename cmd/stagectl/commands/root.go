// Package commands implements the stagectl command tree.
package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/staging"
	"github.com/gogpu/staging/driver/software"

	// Drivers selectable with --driver.
	_ "github.com/gogpu/staging/driver/wgpu"
)

// Configuration keys shared by flags, STAGECTL_* variables and config files.
const (
	keyDriver    = "driver"
	keyAlignment = "alignment"
	keyBudget    = "budget-mb"
	keyRecycle   = "recycle-mb"
	keyLabel     = "label"
	keyVerbose   = "verbose"
)

// app carries the state shared by one command tree.
type app struct {
	v       *viper.Viper
	cfgFile string
}

// Execute runs stagectl with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds a fresh command tree with its own configuration.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "stagectl",
		Short: "Exercise staging transfer textures",
		Long: `stagectl drives host/device texture transfers through the staging
package. It opens a device on a registered driver (wgpu or software),
moves 2D element data through upload and readback transfer textures,
and verifies every element.

Settings come from flags, STAGECTL_* environment variables or a config
file given with --config (YAML, TOML or JSON).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file")
	pf.String(keyDriver, "", "driver name (default: best available)")
	pf.Int(keyAlignment, 0, "software driver row pitch alignment (0: driver default)")
	pf.Int(keyBudget, 0, "host memory budget in MB (0: unlimited)")
	pf.Int(keyRecycle, 0, "recycled host memory cap in MB (0: default, negative: off)")
	pf.String(keyLabel, "stagectl", "device debug label")
	pf.BoolP(keyVerbose, "v", false, "log staging activity to stderr")

	for _, key := range []string{keyDriver, keyAlignment, keyBudget, keyRecycle, keyLabel, keyVerbose} {
		_ = a.v.BindPFlag(key, pf.Lookup(key))
	}

	root.AddCommand(
		newDriversCommand(a),
		newRoundTripCommand(a),
		newRectsCommand(a),
	)
	return root
}

// initConfig reads the config file and environment, then applies logging.
func (a *app) initConfig(cmd *cobra.Command) error {
	a.v.SetEnvPrefix("STAGECTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if a.v.GetBool(keyVerbose) {
		staging.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	} else {
		staging.SetLogger(nil)
	}
	return nil
}

// openDevice opens the configured device.
func (a *app) openDevice() (*staging.Device, error) {
	opts := []staging.Option{
		staging.WithLabel(a.v.GetString(keyLabel)),
		staging.WithHostMemoryBudget(a.v.GetInt(keyBudget)),
		staging.WithRecycleLimit(a.v.GetInt(keyRecycle)),
	}

	name := a.v.GetString(keyDriver)
	if align := a.v.GetInt(keyAlignment); align != 0 {
		if name != "" && name != "software" {
			return nil, fmt.Errorf("--%s applies to the software driver only", keyAlignment)
		}
		drv, err := software.New(software.WithRowPitchAlignment(align))
		if err != nil {
			return nil, err
		}
		return staging.NewDevice(drv, opts...), nil
	}

	if name == "" {
		return staging.OpenDefault(opts...)
	}
	return staging.Open(name, opts...)
}
