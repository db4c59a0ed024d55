package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/cloo-solutions/wellrag/internal/service"
	"github.com/cloo-solutions/wellrag/internal/store"
	"github.com/spf13/cobra"
)

func QueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query stored chunks",
	}
	cmd.PersistentFlags().StringArray("where", nil, "Metadata filter as key=value (repeatable)")
	cmd.PersistentFlags().Int("limit", store.DefaultLimit, "Maximum number of chunks")
	cmd.PersistentFlags().Bool("json", false, "Output as a JSON array")

	cmd.AddCommand(queryFilterCmd(), queryRelevanceCmd())
	return cmd
}

func queryFilterCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "filter",
		Short:   "Return chunks whose metadata equals every --where pair",
		Example: "  wellrag query filter --where section=Geology --limit 5",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, limit, err := queryFlags(cmd)
			if err != nil {
				return err
			}
			if len(filter) == 0 {
				return errors.New("query filter needs at least one --where pair")
			}

			rt, err := NewRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			texts, err := rt.Store.QueryByFilter(cmd.Context(), filter, limit)
			if err != nil {
				return err
			}
			return printTexts(cmd, texts)
		},
	}
}

func queryRelevanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "relevance <text>",
		Short:   "Rank chunks by similarity to text",
		Example: `  wellrag query relevance "casing depth" --where source=A-1.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, limit, err := queryFlags(cmd)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")

			rt, err := NewRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			retrieval := service.NewRetrievalOrchestrator(rt.Store, service.RetrievalConfig{}, rt.Logger)
			texts, err := retrieval.Search(cmd.Context(), query, limit, filter)
			if errors.Is(err, domain.ErrEmptyQuery) {
				return errors.New("query relevance needs query text or a --where filter")
			}
			if err != nil {
				return err
			}
			return printTexts(cmd, texts)
		},
	}
}

func queryFlags(cmd *cobra.Command) (domain.Filter, int, error) {
	pairs, _ := cmd.Flags().GetStringArray("where")
	limit, _ := cmd.Flags().GetInt("limit")
	filter, err := ParseWhere(pairs)
	if err != nil {
		return nil, 0, err
	}
	return filter, limit, nil
}

func printTexts(cmd *cobra.Command, texts []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	return writeTexts(cmd.OutOrStdout(), texts, asJSON)
}

func writeTexts(w io.Writer, texts []string, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(texts)
	}
	if len(texts) == 0 {
		_, err := fmt.Fprintln(w, "no matching chunks")
		return err
	}
	for i, text := range texts {
		if _, err := fmt.Fprintf(w, "--- %d ---\n%s\n", i+1, text); err != nil {
			return err
		}
	}
	return nil
}
