// Package cli implements the flexquery command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aleph-Alpha/flexquery/v1/logger"
	"github.com/Aleph-Alpha/flexquery/v1/predicate"
)

// state is shared by the commands of one invocation.
type state struct {
	configPath string
	inputPath  string

	cfg *Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	s := &state{}

	root := &cobra.Command{
		Use:   "flexquery",
		Short: "Inspect flexquery predicates",
		Long: `flexquery reads predicate trees encoded as JSON and either rewrites them
or renders the PostgreSQL statement they compile to.

A predicate document looks like:

  {"connector": "OR", "children": [
    {"key": "year__gt", "value": 1960},
    {"connector": "AND", "negated": true, "children": [{"key": "title", "value": "Dune"}]}
  ]}`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(s.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			s.cfg = cfg
			s.log = logger.NewLoggerClient(cfg.Logger)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&s.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVarP(&s.inputPath, "file", "f", "", "Read the predicate from this file instead of stdin")

	root.AddCommand(newRenderCmd(s), newPrefixCmd(s))
	return root
}

// Execute runs the root command with the process arguments.
func Execute() error {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// readPredicate decodes the predicate from --file, or from the command's
// input when no file is given.
func (s *state) readPredicate(cmd *cobra.Command) (predicate.Q, error) {
	var (
		data []byte
		err  error
	)
	if s.inputPath != "" {
		data, err = os.ReadFile(s.inputPath)
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return predicate.Q{}, fmt.Errorf("reading predicate: %w", err)
	}

	var q predicate.Q
	if err := q.UnmarshalJSON(data); err != nil {
		return predicate.Q{}, err
	}
	return q, nil
}
