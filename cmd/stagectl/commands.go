package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	staged "github.com/goliatone/go-staged"
	"github.com/goliatone/go-staged/model"
	"github.com/goliatone/go-staged/rules"
)

// errViolations makes check exit non-zero once the report is printed.
var errViolations = errors.New("check failed")

// execute runs one invocation. The store is closed even when the command
// fails.
func execute(ctx context.Context, out, errOut io.Writer, args []string) error {
	a := &app{out: out, errOut: errOut}
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); closeErr != nil {
		fmt.Fprintln(errOut, "Error:", closeErr)
		err = errors.Join(err, closeErr)
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "stagectl",
		Short: "Inspect and edit staged changes to a feature document",
		Long: `stagectl loads the baseline document named by STAGED_BASELINE_URL or
STAGED_BASELINE_FILE, restores staged edits from the configured store,
runs one command and prints the result as JSON.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(
		newDiffCmd(a),
		newGetCmd(a),
		newSetCmd(a),
		newDiscardCmd(a),
		newCheckCmd(a),
		newFeaturesCmd(a),
		newSchemaCmd(a),
	)
	return root
}

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Print the difference between committed and staged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.print(a.session.Diff())
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get [store] [address]",
		Short: "Print the value at an address (store defaults to staged)",
		Example: `  stagectl get
  stagectl get committed features[2].hp
  stagectl get diff summary`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, addr := staged.StoreStaged, ""
			if len(args) > 0 {
				parsed, err := staged.ParseStoreID(args[0])
				if err != nil {
					return err
				}
				store = parsed
			}
			if len(args) > 1 {
				addr = args[1]
			}
			cur, err := a.session.CursorAt(store, rootAlias(addr))
			if err != nil {
				return err
			}
			value, err := cur.Get()
			if err != nil {
				return err
			}
			return a.print(value)
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <address> <json>",
		Short: "Replace the staged value at an address",
		Example: `  stagectl set features[1].hp 60
  stagectl set 'features[1].rarity' '"Rare"'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, err := a.session.CursorAt(staged.StoreStaged, rootAlias(args[0]))
			if err != nil {
				return err
			}
			if err := cur.ResetJSON(cmd.Context(), []byte(args[1])); err != nil {
				return err
			}
			if err := a.persisted(); err != nil {
				return err
			}
			return a.print(a.session.Diff())
		},
	}
}

func newDiscardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Drop every staged change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Discard(cmd.Context()); err != nil {
				return err
			}
			if err := a.persisted(); err != nil {
				return err
			}
			return a.print(a.session.Diff())
		},
	}
}

type checkReport struct {
	Problems   []model.Problem   `json:"problems"`
	Violations []rules.Violation `json:"violations"`
}

func newCheckCmd(a *app) *cobra.Command {
	var (
		exprs  []string
		engine string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the staged tree and evaluate rules against every feature",
		Example: `  stagectl check
  stagectl check --rule 'hp >= 30' --rule 'len(attacks) > 0'
  stagectl check --engine cel --rule 'name.size() > 0'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state := a.session.Staged()
			report := checkReport{Problems: []model.Problem{}, Violations: []rules.Violation{}}

			if err := model.Validate(state); err != nil {
				var invalid *model.ValidationError
				if !errors.As(err, &invalid) {
					return err
				}
				report.Problems = invalid.Problems
			}

			if len(exprs) > 0 {
				ev, err := rules.NewEvaluator(engine, rules.WithFunctionRegistry(rules.FeatureFunctions()))
				if err != nil {
					return err
				}
				ev = rules.Logged(ev, a.logger)
				violations, err := rules.Check(ev, state, namedRules(exprs)...)
				if err != nil {
					return err
				}
				report.Violations = violations
			}

			if err := a.print(report); err != nil {
				return err
			}
			if n := len(report.Problems) + len(report.Violations); n > 0 {
				return fmt.Errorf("%w: %d problem(s)", errViolations, n)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&exprs, "rule", nil, "predicate every feature must satisfy (repeatable)")
	cmd.Flags().StringVar(&engine, "engine", rules.EngineExpr, "rule engine: expr, cel or js")
	return cmd
}

// namedRules accepts "name=expr" or a bare expression.
func namedRules(exprs []string) []rules.Rule {
	out := make([]rules.Rule, 0, len(exprs))
	for i, raw := range exprs {
		name, expr, ok := strings.Cut(raw, "=")
		if !ok || !isRuleName(name) || strings.HasPrefix(expr, "=") {
			name, expr = fmt.Sprintf("rule-%d", i+1), raw
		}
		out = append(out, rules.Rule{Name: name, Expr: strings.TrimSpace(expr)})
	}
	return out
}

func isRuleName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// rootAlias lets "$" stand for the root address, matching how activity
// events print it.
func rootAlias(addr string) string {
	if addr == "$" {
		return ""
	}
	return addr
}
