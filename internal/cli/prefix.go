package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newPrefixCmd(s *state) *cobra.Command {
	var indent bool

	cmd := &cobra.Command{
		Use:   "prefix <prefix>",
		Short: "Prefix every lookup key of a predicate",
		Long: `Prefix reads a predicate and prints it back with <prefix>__ prepended to
every lookup key, so a predicate written for a model can be applied through a
relation pointing at it.`,
		Example: `  echo '{"children":[{"key":"born__lt","value":1925}]}' | flexquery prefix author`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := s.readPredicate(cmd)
			if err != nil {
				return err
			}

			prefixed := q.Prefix(args[0])

			var out []byte
			if indent {
				out, err = json.MarshalIndent(prefixed, "", "  ")
			} else {
				out, err = json.Marshal(prefixed)
			}
			if err != nil {
				return fmt.Errorf("encoding predicate: %w", err)
			}

			s.log.Debug("Prefixed predicate", nil, map[string]interface{}{
				"prefix": args[0],
				"leaves": len(prefixed.Leaves()),
			})
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&indent, "indent", false, "Indent the output")
	return cmd
}
