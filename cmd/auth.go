package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/diagimmo/suiviclientpro/internal/gmail"
	"github.com/diagimmo/suiviclientpro/internal/google"
	"github.com/diagimmo/suiviclientpro/internal/logging"
)

// authState is sent with the consent request. The code is pasted back by hand, so
// there is no redirect to check it against.
const authState = "suiviclientpro"

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize read-only Gmail access for the DDT scan",
		Long: `Authorize read-only access to your Gmail messages.

1. Download the OAuth client of a "Desktop app" from the Google Cloud console and
   save it as credentials.json (or pass --credentials).
2. Run "suiviclientpro auth url" and open the printed URL.
3. Run "suiviclientpro auth code <code>" with the code shown after consent.

The token is stored in token.json and refreshed automatically.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "url",
		Short: "Print the consent page URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := google.LoadConfig(resolvePaths().Credentials)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Visit this URL in your browser and grant read-only access to Gmail:")
			fmt.Fprintln(cmd.OutOrStdout(), google.AuthURL(conf, authState))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "code <authorization-code>",
		Short: "Exchange the authorization code for a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthCode(cmd.Context(), cmd, args[0])
		},
	})

	return cmd
}

func runAuthCode(ctx context.Context, cmd *cobra.Command, code string) error {
	paths := resolvePaths()
	conf, err := google.LoadConfig(paths.Credentials)
	if err != nil {
		return err
	}
	store := google.NewTokenStore(paths.Token)
	tok, err := google.Exchange(ctx, conf, store, code)
	if err != nil {
		return err
	}
	slog.Debug("OAuth token saved", logging.Path(paths.Token), slog.String("access_token", logging.SanitizeToken(tok.AccessToken)))

	client, err := gmail.NewClient(ctx, conf, store)
	if err != nil {
		return err
	}
	email, err := client.Profile(ctx)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", paths.Token)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s for %s\n", paths.Token, email)
	return nil
}
