package main

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

var (
	seedFlags    requestFlags
	seedRequests int
	seedParallel int
	seedPrefix   string
)

var seedCmd = &cobra.Command{
	Use:   "seed <kind>",
	Short: "Issue entities for many blur ids in parallel",
	Long:  `seed sends --requests requests, each under its own blur id (<prefix>-<n>), with at most --parallel in flight. It is meant for filling a ledger before a load test.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := synthgen.Kind(strings.ToUpper(args[0]))
		scope, err := seedFlags.resolveScope()
		if err != nil {
			return err
		}
		if seedRequests < 1 || seedParallel < 1 {
			return fmt.Errorf("--requests and --parallel must be positive")
		}

		svc, _, err := openService(cmd.Context())
		if err != nil {
			return err
		}

		bar := progressbar.NewOptions(seedRequests,
			progressbar.OptionSetDescription(fmt.Sprintf("seeding %s", kind)),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("req"),
			progressbar.OptionShowIts(),
		)

		var issued atomic.Int64
		start := time.Now()
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(seedParallel)
		for i := range seedRequests {
			g.Go(func() error {
				req, err := seedFlags.request(fmt.Sprintf("%s-%d", seedPrefix, i))
				if err != nil {
					return err
				}
				entities, err := svc.GetEntities(ctx, kind, req, seedFlags.process, scope)
				if err != nil {
					return fmt.Errorf("request %d: %w", i, err)
				}
				issued.Add(int64(len(entities)))
				return bar.Add(1)
			})
		}
		err = g.Wait()
		_ = bar.Finish()

		fmt.Fprintf(cmd.OutOrStdout(), "\n%d entities issued in %v\n", issued.Load(), time.Since(start).Round(time.Millisecond))
		return err
	},
}

func init() {
	seedFlags.register(seedCmd)
	seedCmd.Flags().IntVar(&seedRequests, "requests", 100, "number of requests")
	seedCmd.Flags().IntVar(&seedParallel, "parallel", 4, "requests in flight")
	seedCmd.Flags().StringVar(&seedPrefix, "prefix", "seed", "blur id prefix")
}
