package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/entmeta/contrib/graphql"
)

func newGraphQLCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "graphql [entity...]",
		Short: "Export built entities as a GraphQL schema",
		Long: `Builds the named entities, or every declared entity, and prints the
GraphQL SDL of their object types and a Query type.

Examples:
  entmeta graphql
  entmeta graphql Book Publisher --out schema.graphql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry(cmd.Context())
			if err != nil {
				return err
			}
			s, err := graphql.Schema(cmd.Context(), reg, args...)
			if err != nil {
				return err
			}
			sdl := graphql.PrintSchema(s)
			if out == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), sdl)
				return err
			}
			if err := os.WriteFile(out, []byte(sdl), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the schema to a file instead of stdout")
	return cmd
}
