// Package cli implements tossupctl, a command line front end to the answer
// engine and the configured question provider.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/tossup-backend/internal/answer"
	"github.com/yungbote/tossup-backend/internal/app"
	"github.com/yungbote/tossup-backend/internal/config"
)

type rootOptions struct {
	json        bool
	aliasesPath string
}

// NewRootCmd builds the tossupctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "tossupctl",
		Short:         "Inspect tossup answer matching from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print JSON instead of text")
	cmd.PersistentFlags().StringVar(&opts.aliasesPath, "aliases", "", "alias table YAML replacing the built-in one")

	cmd.AddCommand(
		newNormalizeCmd(opts),
		newCandidatesCmd(opts),
		newEvaluateCmd(opts),
		newFetchCmd(opts),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tossupctl: %v\n", err)
		os.Exit(1)
	}
}

func (o *rootOptions) engine() (*answer.Engine, error) {
	return app.NewEngine(config.MatchingConfig{AliasesPath: o.aliasesPath})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCandidates(w io.Writer, cands []answer.Candidate) {
	if len(cands) == 0 {
		fmt.Fprintln(w, "no candidates")
		return
	}
	for i, c := range cands {
		fmt.Fprintf(w, "%2d. %-13s %-12s %s\n", i+1, c.Tier, c.Source, c.Text)
	}
}
