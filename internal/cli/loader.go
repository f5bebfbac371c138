package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/selectir/internal/compiler"
	"github.com/roach88/selectir/internal/queryir"
)

// LoadMode controls how errors are handled during query loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the query definitions found in a directory.
type LoadResult struct {
	Defs      []*compiler.QueryDef
	FileCount int
}

// LoadError represents an error that occurred during query loading.
type LoadError struct {
	Code     string
	Message  string
	Location queryir.Location
}

func (e *LoadError) Error() string {
	if e.Location.Line > 0 {
		return fmt.Sprintf("%s: %s: %s", e.Location, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadQueries reads every query definition under dir.
//
// Each .cue file is compiled on its own and contributes the fields of
// its top-level `query` struct. A nil result means nothing could be
// loaded; otherwise errs holds per-query failures.
func LoadQueries(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("queries directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing queries directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	result := &LoadResult{FileCount: len(cueFiles)}
	var errs []error

	for _, path := range cueFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}}
		}

		value := ctx.CompileBytes(data, cue.Filename(path))
		if err := value.Err(); err != nil {
			errs = append(errs, convertCompileError(compiler.FormatCUEError(err), path, ErrCodeBuildFailed))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		queriesVal := value.LookupPath(cue.ParsePath("query"))
		if !queriesVal.Exists() {
			continue
		}
		iter, err := queriesVal.Fields()
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("%s: iterating queries: %v", path, err)})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		for iter.Next() {
			def, err := compiler.CompileQuery(iter.Value())
			if err != nil {
				errs = append(errs, convertCompileError(err, "query."+iter.Label(), ErrCodeGeneric))
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			result.Defs = append(result.Defs, def)
		}
	}

	if len(result.Defs) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no queries found"})
	}
	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths in
// lexical order.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with its
// location. Other errors get fallback and a context prefix.
func convertCompileError(err error, context, fallback string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:     compileErr.Code,
			Message:  compileErr.Message,
			Location: compileErr.Location,
		}
	}
	return &LoadError{
		Code:    fallback,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// findQuery returns the definition named name.
func findQuery(defs []*compiler.QueryDef, name string) (*compiler.QueryDef, bool) {
	for _, def := range defs {
		if def.Name == name {
			return def, true
		}
	}
	return nil, false
}

// loadErrorsToCLI converts load errors for output.
func loadErrorsToCLI(errs []error) []CLIError {
	out := make([]CLIError, len(errs))
	for i, err := range errs {
		out[i] = toCLIError(err)
	}
	return out
}

// toCLIError extracts code, message and location from any error the
// loader or compiler returns.
func toCLIError(err error) CLIError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return CLIError{Code: loadErr.Code, Message: loadErr.Message, Location: locationString(loadErr.Location)}
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		msg := compileErr.Message
		if compileErr.Construct != "" {
			msg = fmt.Sprintf("%s, got: %s", msg, compileErr.Construct)
		}
		return CLIError{Code: compileErr.Code, Message: msg, Location: locationString(compileErr.Location)}
	}
	return CLIError{Code: ErrCodeGeneric, Message: err.Error()}
}

func locationString(loc queryir.Location) string {
	if loc.Line == 0 {
		return ""
	}
	return loc.String()
}
