package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/session"
	"github.com/matzehuels/kitchenboard/pkg/store/remote"
)

// stdin is where login reads a token from. Tests replace it.
var stdin io.Reader = os.Stdin

// loginCommand saves the endpoint and token of a remote kitchenboard server.
func (c *CLI) loginCommand() *cobra.Command {
	var (
		token    string
		ttl      time.Duration
		noVerify bool
	)

	cmd := &cobra.Command{
		Use:   "login <endpoint>",
		Short: "Save credentials for a remote kitchenboard server",
		Long: `Save the endpoint and API token of a kitchenboard server so the
remote store driver can use them. The token is read from --token or, when
omitted, from the first line of stdin.

Credentials are stored in ~/.config/kitchenboard/sessions/ with mode 0600.`,
		Example: `  kitchenboard login https://board.example.com --token "$TOKEN"
  echo "$TOKEN" | kitchenboard login http://localhost:8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			endpoint := strings.TrimRight(args[0], "/")
			if token == "" {
				t, err := readToken(stdin)
				if err != nil {
					return err
				}
				token = t
			}
			if !noVerify {
				if err := c.verifyEndpoint(ctx, endpoint, token); err != nil {
					return err
				}
			}

			sess, err := session.New(endpoint, token, ttl)
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			st, err := c.sessFn()
			if err != nil {
				return fmt.Errorf("open session store: %w", err)
			}
			if err := st.SaveSession(ctx, sess); err != nil {
				return fmt.Errorf("save session: %w", err)
			}

			printSuccess("Logged in to %s", StyleHighlight.Render(endpoint))
			if !sess.ExpiresAt.IsZero() {
				printKeyValue("Expires", sess.ExpiresAt.Format("Jan 2, 2006"))
			}
			printNextStep("Use it with", "KITCHENBOARD_STORE=remote kitchenboard board -r <restaurant>")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "API token (default: read from stdin)")
	cmd.Flags().DurationVar(&ttl, "ttl", session.DefaultTTL, "how long the login stays valid (0 = forever)")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip the health check against the endpoint")
	return cmd
}

// logoutCommand removes the saved credentials.
func (c *CLI) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove saved remote server credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.sessFn()
			if err != nil {
				return fmt.Errorf("open session store: %w", err)
			}
			if err := st.DeleteSession(cmd.Context()); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			printSuccess("Logged out")
			return nil
		},
	}
}

// =============================================================================
// Session Management
// =============================================================================

// loadSession returns the saved login, or an error telling the user to log in.
func (c *CLI) loadSession(ctx context.Context) (*session.Session, error) {
	st, err := c.sessFn()
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	sess, err := st.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, errors.New(errors.ErrCodeUnauthorized, "not logged in (run 'kitchenboard login <endpoint>' first)")
	}
	return sess, nil
}

// verifyEndpoint checks that endpoint answers its health check.
func (c *CLI) verifyEndpoint(ctx context.Context, endpoint, token string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	st, err := remote.New(remote.Options{Endpoint: endpoint, Token: token, Attempts: 1, Logger: c.Logger})
	if err != nil {
		return err
	}
	defer st.Close()

	err = withSpinner(ctx, "Checking "+endpoint, func() error { return st.Ping(ctx) })
	if err != nil {
		printError("Server unreachable")
		return fmt.Errorf("verify endpoint: %w", err)
	}
	return nil
}

func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", fmt.Errorf("no token given (use --token or pipe it on stdin)")
	}
	return token, nil
}
