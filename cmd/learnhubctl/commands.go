package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/learnhub/learnhub-web/internal/apiclient"
	"github.com/learnhub/learnhub-web/internal/app"
	"github.com/learnhub/learnhub-web/internal/config"
	"github.com/learnhub/learnhub-web/internal/logger"
	"github.com/spf13/cobra"
)

type cliOptions struct {
	apiURL      string
	sessionPath string
	verbose     bool
	out         io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	cfg, _ := config.Load()
	opts := &cliOptions{out: out}

	rootCmd := &cobra.Command{
		Use:           "learnhubctl",
		Short:         "LearnHub command line client",
		Long:          "Sign in to LearnHub and call its API with automatic token refresh",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", cfg.APIURL, "LearnHub backend base URL")
	rootCmd.PersistentFlags().StringVar(&opts.sessionPath, "session-path", cfg.SessionPath, "Session file (defaults to the XDG config dir)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newMeCmd(opts),
		newGetCmd(opts),
		newRefreshCmd(opts),
	)
	return rootCmd
}

func newLoginCmd(opts *cliOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("LEARNHUB_PASSWORD")
			}
			if email == "" || password == "" {
				return errors.New("--email and --password (or LEARNHUB_PASSWORD) are required")
			}
			client, err := opts.client()
			if err != nil {
				return err
			}
			if _, err := client.Login(cmd.Context(), apiclient.Credentials{Email: email, Password: password}); err != nil {
				return err
			}
			fmt.Fprintln(opts.out, "Logged in as", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	return cmd
}

func newLogoutCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			if err := client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(opts.out, "Logged out")
			return nil
		},
	}
}

func newMeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.get(cmd.Context(), "/me")
		},
	}
}

func newGetCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "get <path>",
		Short:   "GET any backend path and print the JSON response",
		Example: "  learnhubctl get /my-courses\n  learnhubctl get '/courses?category=design'",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.get(cmd.Context(), args[0])
		},
	}
}

func newRefreshCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			if _, err := client.Refresh(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(opts.out, "Session refreshed")
			return nil
		},
	}
}

func (o *cliOptions) client() (*apiclient.Client, error) {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	log := logger.New("development", level)

	cfg := config.Config{
		APIURL:      o.apiURL,
		StoreKind:   config.StoreFile,
		SessionPath: o.sessionPath,
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (set --api-url)", err)
	}

	store, err := app.NewStore(cfg, log)
	if err != nil {
		return nil, err
	}
	client, err := app.NewClient(cfg, store, log)
	if err != nil {
		return nil, err
	}
	client.SetOnAuthFailure(func() {
		fmt.Fprintln(os.Stderr, "Session expired, run `learnhubctl login` again")
	})
	return client, nil
}

func (o *cliOptions) get(ctx context.Context, path string) error {
	client, err := o.client()
	if err != nil {
		return err
	}

	resp, err := client.Do(ctx, &apiclient.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return err
	}
	return printJSON(o.out, resp.Body)
}

func printJSON(out io.Writer, body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		_, err = fmt.Fprintln(out, strings.TrimSpace(string(body)))
		return err
	}
	_, err := fmt.Fprintln(out, buf.String())
	return err
}
