package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/neuralviz/internal/server"
	"github.com/matzehuels/neuralviz/pkg/cache"
	"github.com/matzehuels/neuralviz/pkg/pipeline"
)

// apiKeyPrefix keeps API cache entries apart from CLI entries when both
// share one backend.
const apiKeyPrefix = "api:"

// serveCommand creates the serve command, which runs the HTTP API until
// interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the visualization HTTP API",
		Long: `Serve the visualization HTTP API.

Routes:
  POST /api/v1/visualize         laid-out diagrams as JSON
  POST /api/v1/render?format=    one rendered artifact (svg, png, pdf, dot, json)
  GET  /healthz                  health check
  GET  /metrics                  Prometheus metrics`,
		Example: `  neuralviz serve
  neuralviz serve --addr 127.0.0.1:9000
  curl -s localhost:8080/api/v1/render?format=svg -H 'Content-Type: application/json' \
    -d '{"source": "network A { input: (4,) layers: Output(2) loss: \"mse\" optimizer: \"sgd\" }"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.Config.Server.Addr = addr
			}
			return c.runServe(cmd, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, noCache bool) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cch, err := newCache(c.Config.Cache, noCache)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(cch, cache.NewScopedKeyer(nil, apiKeyPrefix), logger)
	runner.TTL = c.Config.Cache.TTL.Duration
	defer runner.Close()

	srv := server.New(runner, server.Config{
		Addr:           c.Config.Server.Addr,
		MaxSourceBytes: c.Config.Server.MaxSourceBytes,
		RequestTimeout: c.Config.Server.RequestTimeout.Duration,
		Defaults:       c.Config.Options(),
	}, logger)

	logger.Debug("cache", "backend", c.Config.Cache.Backend, "disabled", noCache)
	return srv.ListenAndServe(ctx)
}
