package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rgmatch/rgmatch/internal/match"
)

// setting is one persistable rgmatch default. parse validates the raw
// string with the same rules the matcher applies, so a bad value fails at
// `config set` instead of on the next annotation run, and the coerced value
// is what lands in ~/.rgmatch.yaml.
type setting struct {
	key   string
	usage string
	parse func(string) (any, error)
}

// settings mirrors the root command's matcher flags.
var settings = []setting{
	{"report", "report level: exon, transcript or gene", func(v string) (any, error) {
		level, err := match.ParseReportLevel(v)
		if err != nil {
			return nil, err
		}
		return level.String(), nil
	}},
	{"threads", "number of worker threads", func(v string) (any, error) {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("threads must be a positive integer, got %q", v)
		}
		return n, nil
	}},
	{"distance", "maximum association distance in kb", func(v string) (any, error) {
		kb, err := strconv.ParseInt(v, 10, 64)
		if err != nil || kb < 0 {
			return nil, fmt.Errorf("the distance cannot be lower than 0 kb")
		}
		return kb, nil
	}},
	{"tss", "TSS region distance in bp", zoneWidth("TSS")},
	{"tts", "TTS region distance in bp", zoneWidth("TTS")},
	{"promoter", "promoter region distance in bp", zoneWidth("promoter")},
	{"perc_area", "area overlap threshold (0-100)", percentage},
	{"perc_region", "region overlap threshold (0-100)", percentage},
	{"rules", "comma-separated area priority list", func(v string) (any, error) {
		cfg := match.DefaultConfig()
		if err := cfg.ParseRules(v); err != nil {
			return nil, err
		}
		return v, nil
	}},
	{"compat", "proximity slot behavior: comprehensive or legacy", func(v string) (any, error) {
		if _, err := match.ParseCompatMode(v); err != nil {
			return nil, err
		}
		return strings.ToLower(v), nil
	}},
}

func zoneWidth(name string) func(string) (any, error) {
	return func(v string) (any, error) {
		bp, err := strconv.ParseFloat(v, 64)
		if err != nil || bp < 0 {
			return nil, fmt.Errorf("the %s distance cannot be lower than 0 bps", name)
		}
		return bp, nil
	}
}

func percentage(v string) (any, error) {
	p, err := strconv.ParseFloat(v, 64)
	if err != nil || p < 0 || p > 100 {
		return nil, fmt.Errorf("percentage %q should range between 0 and 100", v)
	}
	return p, nil
}

func findSetting(key string) (setting, error) {
	for _, s := range settings {
		if s.key == key {
			return s, nil
		}
	}
	keys := make([]string, len(settings))
	for i, s := range settings {
		keys[i] = s.key
	}
	return setting{}, fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(keys, ", "))
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage rgmatch defaults",
		Long:  "Show, get, or set matcher defaults. Values are validated like the matching flags and stored in ~/.rgmatch.yaml.",
		Example: `  rgmatch config                    # show all defaults
  rgmatch config set report gene    # default to gene-level reporting
  rgmatch config set distance 50    # default to a 50 kb budget
  rgmatch config get report`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a default",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Get a default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	})

	return cmd
}

func runConfigShow() error {
	// Only the recognized matcher settings are shown; stray keys in the
	// file never reach a run anyway.
	set := make(map[string]any)
	for _, s := range settings {
		if viper.IsSet(s.key) {
			set[s.key] = viper.Get(s.key)
		}
	}

	if len(set) == 0 {
		fmt.Println("# No defaults set. Config file: ~/.rgmatch.yaml")
		fmt.Println("# Available settings:")
		for _, s := range settings {
			fmt.Printf("#   %-12s %s\n", s.key, s.usage)
		}
		return nil
	}

	out, err := yaml.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func runConfigSet(key, value string) error {
	s, err := findSetting(key)
	if err != nil {
		return err
	}

	parsed, err := s.parse(value)
	if err != nil {
		return err
	}
	viper.Set(key, parsed)

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".rgmatch.yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Set %s = %v in %s\n", key, parsed, cfgFile)
	return nil
}

func runConfigGet(key string) error {
	s, err := findSetting(key)
	if err != nil {
		return err
	}
	if !viper.IsSet(s.key) {
		return fmt.Errorf("%s is not set (%s)", s.key, s.usage)
	}
	fmt.Println(viper.Get(s.key))
	return nil
}
