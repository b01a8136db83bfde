package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/tossup-backend/internal/answer"
	"github.com/yungbote/tossup-backend/internal/app"
	"github.com/yungbote/tossup-backend/internal/config"
	"github.com/yungbote/tossup-backend/internal/platform/ctxutil"
	"github.com/yungbote/tossup-backend/internal/provider"
)

func newNormalizeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <text>",
		Short: "Print the comparison form of an answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := strings.Join(args, " ")
			out := answer.Normalize(in)
			if opts.json {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"input":      in,
					"normalized": out,
					"tokens":     answer.Tokens(out),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newCandidatesCmd(opts *rootOptions) *cobra.Command {
	var question, provided string
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Resolve candidate answers for a question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.engine()
			if err != nil {
				return err
			}
			cands := e.Resolve(question, provided)
			if opts.json {
				return printJSON(cmd.OutOrStdout(), map[string]any{"candidates": cands})
			}
			printCandidates(cmd.OutOrStdout(), cands)
			return nil
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "question text")
	cmd.Flags().StringVarP(&provided, "answer", "a", "", "provider answer line")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}

func newEvaluateCmd(opts *rootOptions) *cobra.Command {
	var question, provided, user string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Judge a spoken answer against a question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.engine()
			if err != nil {
				return err
			}
			res := e.Evaluate(question, provided, user)
			if opts.json {
				return printJSON(cmd.OutOrStdout(), res)
			}
			w := cmd.OutOrStdout()
			if !res.Correct {
				fmt.Fprintln(w, "incorrect")
				return nil
			}
			fmt.Fprintf(w, "correct: %q (%s, %s)\n", res.Matched.Text, res.Tier, res.Rule)
			return nil
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "question text")
	cmd.Flags().StringVarP(&provided, "provided", "p", "", "provider answer line")
	cmd.Flags().StringVarP(&user, "answer", "a", "", "player answer")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}

func newFetchCmd(opts *rootOptions) *cobra.Command {
	var (
		f            provider.Filter
		providerType string
		timeout      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Draw a tossup from the configured provider and show its candidates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.Validate(); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if providerType != "" {
				cfg.Provider.Type = providerType
			}
			p, err := app.NewProvider(cfg.Provider)
			if err != nil {
				return err
			}
			e, err := opts.engine()
			if err != nil {
				return err
			}

			ctx := ctxutil.Default(cmd.Context())
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			q, err := p.RandomTossup(ctx, f.Normalized())
			if err != nil {
				return fmt.Errorf("%s: %w", p.Name(), err)
			}
			cands := e.Resolve(q.Text, q.ProvidedAnswer)

			if opts.json {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"question":   q,
					"candidates": cands,
				})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "[%s] %s\n\n%s\n\n", p.Name(), q.Category, q.Text)
			if q.ProvidedAnswer != "" {
				fmt.Fprintf(w, "answer: %s\n\n", answer.SanitizeProvided(q.ProvidedAnswer))
			}
			printCandidates(w, cands)
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.Category, "category", "c", "", "category filter")
	cmd.Flags().IntVarP(&f.Difficulty, "difficulty", "d", 0, "difficulty 1-5")
	cmd.Flags().StringVar(&providerType, "provider", "", "override provider.type (qbreader or static)")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "request timeout")
	return cmd
}
