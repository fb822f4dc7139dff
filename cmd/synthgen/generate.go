package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

type requestFlags struct {
	count   int
	scope   string
	process string
	reuse   bool
	params  []string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVar(&f.count, "count", 1, "number of entities")
	flags.StringVar(&f.scope, "scope", "", "NONE, PROCESS or PROCESS_ALL (default from config)")
	flags.StringVar(&f.process, "process", "", "process id (default from config)")
	flags.BoolVar(&f.reuse, "reuse", false, "return entities already issued for the blur id")
	flags.StringArrayVarP(&f.params, "param", "p", nil, "generator parameter as key=value, repeatable")
}

func (f *requestFlags) resolveScope() (synthgen.Scope, error) {
	if f.scope == "" {
		return cfg.Scope()
	}
	return synthgen.ParseScope(f.scope)
}

// request builds the inbound document the same way the HTTP API receives it.
func (f *requestFlags) request(blurID string) (synthgen.Request, error) {
	doc := map[string]any{
		synthgen.KeyBlurID: blurID,
		synthgen.KeyCount:  f.count,
		synthgen.KeyReuse:  f.reuse,
	}
	for _, kv := range f.params {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return synthgen.Request{}, synthgen.Invalid("param", "expected key=value, got %q", kv)
		}
		doc[k] = v
	}
	return synthgen.RequestFromMap(doc)
}

var (
	genFlags  requestFlags
	genBlurID string
	flatten   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <kind>",
	Short: "Issue entities and print them as JSON",
	Example: `  synthgen generate mail --blurid b1 --count 3 -p firstName=Yann -p "lastName=Le Cleac'h" -p domain=example.org
  synthgen generate integer --blurid b2 -p minValue=1 -p maxValue=100 --scope PROCESS_ALL`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := synthgen.Kind(strings.ToUpper(args[0]))
		scope, err := genFlags.resolveScope()
		if err != nil {
			return err
		}
		req, err := genFlags.request(genBlurID)
		if err != nil {
			return err
		}

		svc, _, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		entities, err := svc.GetEntities(cmd.Context(), kind, req, genFlags.process, scope)
		if err != nil {
			return err
		}

		var out any = entities
		if flatten {
			flat := make([]map[string][]string, len(entities))
			for i, e := range entities {
				flat[i] = e.Flatten()
			}
			out = flat
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		return nil
	},
}

func init() {
	genFlags.register(generateCmd)
	generateCmd.Flags().StringVar(&genBlurID, "blurid", "", "correlation key of the request")
	generateCmd.Flags().BoolVar(&flatten, "flatten", false, "print flattened key/value lists")
	_ = generateCmd.MarkFlagRequired("blurid")
}
