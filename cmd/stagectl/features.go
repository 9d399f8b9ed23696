package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	staged "github.com/goliatone/go-staged"
	"github.com/goliatone/go-staged/model"
	"github.com/goliatone/go-staged/path"
	"github.com/goliatone/go-staged/rules"
)

var featuresAddr = path.New(path.Field("features"))

func newFeaturesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "features",
		Short: "List, add and remove staged features",
	}
	cmd.AddCommand(
		newFeaturesListCmd(a),
		newFeaturesAddCmd(a),
		newFeaturesRmCmd(a),
	)
	return cmd
}

func newFeaturesListCmd(a *app) *cobra.Command {
	var where, engine string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print staged features sorted by id",
		Example: `  stagectl features list
  stagectl features list --where 'hp > 40'
  stagectl features list --where 'weak_to(weakness, "Fire")'
  stagectl features list --engine cel --where 'feature["type"] == "Fire"'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			features := model.SortedByID(a.session.Staged().Features)
			if strings.TrimSpace(where) == "" {
				return a.print(features)
			}
			ev, err := rules.NewEvaluator(engine, rules.WithFunctionRegistry(rules.FeatureFunctions()))
			if err != nil {
				return err
			}
			selected, err := rules.Select(rules.Logged(ev, a.logger), features, where)
			if err != nil {
				return err
			}
			return a.print(selected)
		},
	}
	cmd.Flags().StringVar(&where, "where", "", "only features for which this predicate holds")
	cmd.Flags().StringVar(&engine, "engine", rules.EngineExpr, "rule engine: expr, cel or js")
	return cmd
}

func newFeaturesAddCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Stage a new feature with the next free id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cur := a.session.Cursor(staged.StoreStaged, featuresAddr)
			var added model.Feature
			err := staged.SwapAs(cmd.Context(), cur, func(features []model.Feature) []model.Feature {
				added = model.NewFeature(model.NextFeatureID(features))
				if name = strings.TrimSpace(name); name != "" {
					added.Name = name
				}
				return append(features, added)
			})
			if err != nil {
				return err
			}
			if err := a.persisted(); err != nil {
				return err
			}
			return a.print(added)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to \"Feature <id>\")")
	return cmd
}

func newFeaturesRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a staged feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			cur := a.session.Cursor(staged.StoreStaged, featuresAddr)
			features, err := staged.Read[[]model.Feature](cur)
			if err != nil {
				return err
			}
			if _, _, ok := model.FindFeature(features, id); !ok {
				return fmt.Errorf("feature %q: %w", id, staged.ErrNotFound)
			}
			err = staged.SwapAs(cmd.Context(), cur, func(features []model.Feature) []model.Feature {
				_, i, ok := model.FindFeature(features, id)
				if !ok {
					return features
				}
				return append(features[:i:i], features[i+1:]...)
			})
			if err != nil {
				return err
			}
			if err := a.persisted(); err != nil {
				return err
			}
			return a.print(a.session.Diff())
		},
	}
}
