package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/confrel/confrel/pkg/rules"
)

func newRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate rule files",
	}
	cmd.AddCommand(newRulesLintCommand())
	return cmd
}

func newRulesLintCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint <rule-file>",
		Short: "Validate a rule file without evaluating it",
		Long: `Parse and validate a rule file: schema conformance, comparator and
severity names, key path syntax, and pattern compilation. Document refs
are not checked since no documents are loaded.`,
		Example: `  confrel rules lint rules.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := rules.NewLoader(log.Logger)

			// nil refs: accept any document name, validate everything else.
			ruleSet, err := loader.LoadFile(args[0], nil)
			if err != nil {
				return err
			}

			for _, rule := range ruleSet {
				log.Debug().Str("rule", rule.ID).Str("comparator", string(rule.Comparator)).Msg("Rule valid")
			}
			fmt.Printf("%s: %d rule(s) valid\n", args[0], len(ruleSet))
			return nil
		},
	}
	return cmd
}
