package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/satulemari/partner-service/config"
	"github.com/satulemari/partner-service/internal/partner"
	"github.com/satulemari/partner-service/internal/storage"
)

// app carries the state shared by all subcommands.
type app struct {
	profile string
	verbose bool

	cfg   *config.Config
	store *storage.SQLiteStore
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "satulemari",
		Short:         "SatuLemari partner tools",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !a.verbose {
				zerolog.SetGlobalLevel(zerolog.WarnLevel)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.profile, "profile", storage.DefaultProfile, "session profile")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(
		newAnalyzeCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newCategoriesCmd(a),
		newItemCmd(a),
		newRequestsCmd(a),
	)
	return root
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close store")
		}
		a.store = nil
	}
}

// openStore opens the local database. Session commands need the token key.
func (a *app) openStore(needKey bool) (*storage.SQLiteStore, error) {
	if a.store != nil {
		return a.store, nil
	}

	var key []byte
	if a.cfg.TokenKey != "" {
		k, err := storage.DeriveKey(a.cfg.TokenKey)
		if err != nil {
			return nil, fmt.Errorf("failed to derive encryption key: %w", err)
		}
		key = k
	} else if needKey {
		return nil, fmt.Errorf("SATULEMARI_TOKEN_KEY is not set")
	}

	store, err := storage.NewSQLiteStore(a.cfg.DBPath, key)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("dbPath", a.cfg.DBPath).Msg("store opened")
	a.store = store
	return store, nil
}

// client returns a backend client authenticated with the stored session.
func (a *app) client() (*partner.Client, error) {
	store, err := a.openStore(true)
	if err != nil {
		return nil, err
	}
	session, err := store.GetSession(a.profile)
	if err != nil {
		return nil, err
	}
	baseURL := a.cfg.BackendBaseURL
	if session != nil && session.BackendURL != "" {
		baseURL = session.BackendURL
	}
	return partner.NewClient(partner.ClientOpts{
		BaseURL:     baseURL,
		Credentials: storage.SessionCredentials{Store: store, Profile: a.profile},
		Timeout:     a.cfg.RequestTimeout,
	}), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
