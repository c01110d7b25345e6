package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oaiiae/huma-contacts/cli/api"
	"github.com/oaiiae/huma-contacts/cli/logger"
	"github.com/oaiiae/huma-contacts/datastores"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version  = "dev"
	revision = ""
	created  = ""
)

// Options for the CLI. Pass `--port` or set the `SERVICE_PORT` env var.
type Options struct {
	logger.Options
	api.ServerOptions
	api.RouterOptions
	api.ContactsOptions
}

func main() {
	var (
		humaAPI  huma.API
		contacts *datastores.ContactsDirectory
	)

	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		logger := logger.New(&options.Options)
		contacts = api.NewContacts(context.Background(), &options.ContactsOptions, logger)
		srv := api.NewServer(&options.ServerOptions,
			api.NewRouter(&options.RouterOptions, "Contacts API", version, revision, created, contacts, logger,
				func(a huma.API) { humaAPI = a },
			),
			logger,
		)

		hooks.OnStart(func() {
			logger.Info("server starting", "addr", srv.Addr, "contacts", contacts.Len())
			err := srv.ListenAndServe()
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error("failed to listen and serve", "err", err)
			} else {
				logger.Info("server closed")
			}
		})
		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			err := srv.Shutdown(ctx)
			if err != nil {
				logger.Warn("could not shutdown the server", "err", err)
			}
		})
	})

	cli.Root().AddCommand(&cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI document as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := humaAPI.OpenAPI().YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	})

	cli.Root().AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Print the contacts as YAML, ordered by last name then first name",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return exportContacts(cmd.Context(), cmd.OutOrStdout(), contacts)
		},
	})

	cli.Run()
}

type exportedContact struct {
	ID         int       `yaml:"id"`
	Firstname  string    `yaml:"firstname"`
	Lastname   string    `yaml:"lastname"`
	Phone      string    `yaml:"phone"`
	Email      string    `yaml:"email,omitempty"`
	Address    string    `yaml:"address,omitempty"`
	CreatedAt  time.Time `yaml:"created_at"`
	ModifiedAt time.Time `yaml:"modified_at"`
}

func exportContacts(ctx context.Context, w io.Writer, store datastores.ContactsStore) error {
	contacts, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("export: listing contacts: %w", err)
	}

	out := make([]exportedContact, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, exportedContact(*c))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2) //nolint: mnd // conventional
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("export: encoding: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("export: encoding: %w", err)
	}
	return nil
}
