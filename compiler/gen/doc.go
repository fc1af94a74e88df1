// Package gen generates Go code from built entities.
//
// For each entity it writes one file to the target package holding the
// entity, table, property and column names as constants, the relation
// names, and a row struct with one field per default column:
//
//	g, err := gen.New(reg, gen.WithTarget("./model"))
//	if err != nil {
//		return err
//	}
//	files, err := g.Generate(ctx)
//
// Files are rendered with jennifer and written in parallel. Each file is
// passed through goimports before it is written; a file that fails to
// format is written next to its target with an ".error" suffix.
//
// # Error Handling
//
//   - ConfigError: invalid options, matches ErrMissingConfig
//   - GenerationError: a file could not be rendered or written, matches
//     ErrGenerationFailed
//
// Entity lookup and build errors are returned unchanged.
package gen
