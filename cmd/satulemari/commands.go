package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/satulemari/partner-service/internal/llm"
	"github.com/satulemari/partner-service/internal/partner"
	"github.com/satulemari/partner-service/internal/storage"
)

type analyzeOutput struct {
	Item     *llm.ClothingAnalysis `json:"item"`
	Attempts int                   `json:"attempts"`
	Cached   bool                  `json:"cached"`
	Tokens   int64                 `json:"totalTokens"`
	CostUSD  float64               `json:"costUSD"`
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Analyze a clothing photo with Gemini",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.AIEnabled {
				return fmt.Errorf("%w (set ENABLE_AI_FEATURES=true)", llm.ErrAIDisabled)
			}
			if a.cfg.GeminiAPIKey == "" {
				return fmt.Errorf("GEMINI_API_KEY is not set")
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			img, err := llm.ReadImage(f, "", a.cfg.MaxImageBytes)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			gemini, err := llm.NewGeminiAnalyzer(ctx, a.cfg.GeminiAPIKey, a.cfg.GeminiModel)
			if err != nil {
				return err
			}
			var analyzer llm.Analyzer = gemini
			if !noCache {
				store, err := a.openStore(false)
				if err != nil {
					return err
				}
				analyzer = llm.NewCachedAnalyzer(gemini, store, a.cfg.AnalysisCacheTTL)
			}

			result, err := llm.NewService(analyzer, a.cfg.AIEnabled, a.cfg.AnalysisTimeout).Analyze(ctx, img)
			if err != nil {
				return fmt.Errorf("%s: %w", llm.ClassifyFailure(err).Message(), err)
			}
			return printJSON(cmd.OutOrStdout(), analyzeOutput{
				Item:     result.Item,
				Attempts: result.Attempts,
				Cached:   result.Cached,
				Tokens:   result.Usage.TotalTokens,
				CostUSD:  result.Usage.CostUSD,
			})
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the local analysis cache")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var token, backendURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a partner access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("--token is required")
			}
			if backendURL == "" {
				backendURL = a.cfg.BackendBaseURL
			}

			client := partner.NewClient(partner.ClientOpts{
				BaseURL:     backendURL,
				Credentials: partner.StaticToken(token),
				Timeout:     a.cfg.RequestTimeout,
			})
			user, err := client.Me(cmd.Context())
			if err != nil {
				return fmt.Errorf("token rejected: %w", err)
			}
			if user.Role != "" && user.Role != "partner" {
				return fmt.Errorf("account %s is not a partner (role %q)", user.Email, user.Role)
			}

			store, err := a.openStore(true)
			if err != nil {
				return err
			}
			err = store.SaveSession(&storage.PartnerSession{
				Profile:     a.profile,
				Token:       token,
				BackendURL:  backendURL,
				LastUpdated: time.Now(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (profile %s)\n", displayName(user), a.profile)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "partner access token")
	cmd.Flags().StringVar(&backendURL, "backend", "", "backend base URL (defaults to BACKEND_BASE_URL)")
	return cmd
}

func displayName(u *partner.User) string {
	for _, s := range []string{u.FullName, u.Username, u.Email, u.ID} {
		if s != "" {
			return s
		}
	}
	return "unknown user"
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(true)
			if err != nil {
				return err
			}
			if err := store.DeleteSession(a.profile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out (profile %s)\n", a.profile)
			return nil
		},
	}
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List item categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			cats, err := client.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, c := range cats {
				fmt.Fprintf(w, "%s\t%s\n", c.ID, c.Name)
			}
			return w.Flush()
		},
	}
}

func newItemCmd(a *app) *cobra.Command {
	item := &cobra.Command{
		Use:   "item",
		Short: "Inspect and manage items",
	}

	item.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			it, err := client.GetItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), it)
		},
	})

	item.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			if err := client.DeleteItem(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	})
	return item
}

func newRequestsCmd(a *app) *cobra.Command {
	var filter partner.RequestFilter

	cmd := &cobra.Command{
		Use:   "requests",
		Short: "List requests for your items",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			reqs, err := client.ListPartnerRequests(cmd.Context(), filter)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tITEM")
			for _, r := range reqs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Type, r.Status, r.ItemID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&filter.Type, "type", "", "donation or rental")
	cmd.Flags().StringVar(&filter.Search, "search", "", "search text")
	return cmd
}
