package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchenboard/internal/config"
	"github.com/matzehuels/kitchenboard/internal/server"
	"github.com/matzehuels/kitchenboard/pkg/observability"
	"github.com/matzehuels/kitchenboard/pkg/pipeline"
	"github.com/matzehuels/kitchenboard/pkg/session"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured Graph Store over HTTP",
		Long: `Expose the configured Graph Store through the kitchenboard HTTP API, so
boards on other machines can use it with the remote store driver.

Writes need a bearer token from [server] tokens or KITCHENBOARD_API_TOKENS.
When none is configured, a random token is generated and printed once.`,
		Example: `  kitchenboard serve --addr :8080
  KITCHENBOARD_STORE=postgres KITCHENBOARD_DSN=postgres://... kitchenboard serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if cfg.Store.Driver == config.StoreRemote {
				printWarning("Serving a remote store proxies every request to %s", cfg.Store.Endpoint)
			}
			sc := cfg.Server
			if addr != "" {
				sc.Addr = addr
			}

			tokens := sc.Tokens
			if len(tokens) == 0 {
				token, err := session.GenerateID()
				if err != nil {
					return err
				}
				tokens = []string{token}
				printInfo("No API tokens configured, generated one for this run")
				printKeyValue("Token", StyleNumber.Render(token))
				printNextStep("Connect with", "kitchenboard login http://"+displayAddr(sc.Addr)+" --token <token>")
			}

			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			ch, keyer, err := c.openCache(ctx, false)
			if err != nil {
				return err
			}
			defer ch.Close()

			observability.NewLogHooks(c.Logger).Register()
			srv := server.New(server.Options{
				Store:  st,
				Runner: pipeline.NewRunner(ch, keyer, c.Logger),
				Tokens: tokens,
				Layout: cfg.Board.Layout,
				Logger: c.Logger,
			})
			printSuccess("Serving %s store on %s", cfg.Store.Driver, StyleHighlight.Render(sc.Addr))
			return srv.ListenAndServe(ctx, server.ListenOptions{
				Addr:            sc.Addr,
				ReadTimeout:     sc.ReadTimeout,
				WriteTimeout:    sc.WriteTimeout,
				ShutdownTimeout: sc.ShutdownTimeout,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

// displayAddr turns a listen address such as ":8080" into a dialable one.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
