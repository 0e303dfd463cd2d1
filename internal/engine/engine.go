package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/SimonWaldherr/gridDB/internal/config"
	"github.com/SimonWaldherr/gridDB/internal/logger"
	"github.com/SimonWaldherr/gridDB/internal/storage"
)

// ErrQuit is returned by Execute when the session should end.
var ErrQuit = fmt.Errorf("quit")

// Engine bundles the process-wide state every command handler needs: the
// configuration, the buffer pool, and the catalog. There are no package
// globals; tests run engines side by side.
type Engine struct {
	cfg     *config.Config
	pol     storage.Policy
	bm      *storage.Manager
	catalog *storage.Catalog

	// Out receives command output (PRINT, LIST, SYMMETRY).
	Out io.Writer

	// sourceDepth guards against SOURCE recursion.
	sourceDepth int
}

// New creates an engine over cfg.DataDir. The data directory must exist;
// the temp directory under it is created on demand.
func New(cfg *config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	info, err := os.Stat(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data directory %s: %w", cfg.DataDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data directory %s is not a directory", cfg.DataDir)
	}
	if err := os.MkdirAll(cfg.TempDir(), 0o755); err != nil {
		return nil, fmt.Errorf("temp directory: %w", err)
	}
	return &Engine{
		cfg:     cfg,
		pol:     storage.Policy{BlockBytes: cfg.BlockCapacityBytes(), BlockCount: cfg.BlockCount},
		bm:      storage.NewManager(cfg.TempDir(), cfg.BlockCount),
		catalog: storage.NewCatalog(),
		Out:     os.Stdout,
	}, nil
}

// Buffer exposes the pool, mainly for tests asserting on I/O counters.
func (e *Engine) Buffer() *storage.Manager { return e.bm }

// Catalog exposes the object registry.
func (e *Engine) Catalog() *storage.Catalog { return e.catalog }

// Close flushes dirty pages and drops every loaded object's block files,
// leaving only permanent CSVs behind.
func (e *Engine) Close() {
	e.bm.FlushAll()
	for _, kind := range []storage.ObjectKind{storage.KindTable, storage.KindMatrix} {
		for _, name := range e.catalog.List(kind) {
			if obj, ok := e.catalog.Remove(name); ok {
				obj.Drop()
			}
		}
	}
}

// Run parses and executes one command line. Empty lines and comments are
// no-ops. The error is the command's user-visible failure; Run does not log
// it, reporting it is left to the caller.
func (e *Engine) Run(line string) error {
	stmt, err := Parse(line)
	if err != nil {
		return err
	}
	if stmt == nil {
		return nil
	}
	return e.Execute(stmt)
}

// Execute dispatches a parsed statement to its executor.
func (e *Engine) Execute(stmt Statement) error {
	switch st := stmt.(type) {
	case LoadStmt:
		return e.execLoad(st)
	case ListStmt:
		return e.execList(st)
	case PrintStmt:
		return e.execPrint(st)
	case RenameStmt:
		return e.execRename(st)
	case ExportStmt:
		return e.execExport(st)
	case ClearStmt:
		return e.execClear(st)
	case IndexStmt:
		return e.execIndex(st)
	case SourceStmt:
		return e.execSource(st)
	case SortStmt:
		return e.execSort(st)
	case TransposeStmt:
		return e.execTranspose(st)
	case SymmetryStmt:
		return e.execSymmetry(st)
	case SelectStmt:
		return e.execSelect(st)
	case ProjectStmt:
		return e.execProject(st)
	case JoinStmt:
		return e.execJoin(st)
	case CrossStmt:
		return e.execCross(st)
	case DistinctStmt:
		return e.execDistinct(st)
	case OrderByStmt:
		return e.execOrderBy(st)
	case GroupByStmt:
		return e.execGroupBy(st)
	case ComputeStmt:
		return e.execCompute(st)
	case QuitStmt:
		return ErrQuit
	default:
		return fmt.Errorf("unhandled statement %T", stmt)
	}
}

// csvPath returns the permanent CSV path for a name.
func (e *Engine) csvPath(name string) string {
	return filepath.Join(e.cfg.DataDir, name+".csv")
}

// scriptPath returns the script path for SOURCE.
func (e *Engine) scriptPath(name string) string {
	return filepath.Join(e.cfg.DataDir, name+".ra")
}

// requireFree fails when name is already loaded.
func (e *Engine) requireFree(name string) error {
	if e.catalog.Has(name) {
		return fmt.Errorf("%s already exists", name)
	}
	return nil
}

// execSource runs a command script, stopping at the first failing line.
func (e *Engine) execSource(st SourceStmt) error {
	if e.sourceDepth >= 8 {
		return fmt.Errorf("SOURCE nesting too deep")
	}
	path := e.scriptPath(st.Name)
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	e.sourceDepth++
	defer func() { e.sourceDepth-- }()
	lineNo := 0
	for _, line := range splitLines(string(b)) {
		lineNo++
		if err := e.Run(line); err != nil {
			if err == ErrQuit {
				return err
			}
			return fmt.Errorf("%s line %d: %w", st.Name, lineNo, err)
		}
	}
	logger.Debugf("SOURCE %s: %d lines", st.Name, lineNo)
	return nil
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			line := s[start:i]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			out = append(out, line)
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
