package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/docsig/internal/domain/document"
)

const (
	extParquet = ".parquet"
	extJSONL   = ".jsonl"

	// maxLineBytes bounds a single JSONL document.
	maxLineBytes = 16 << 20
)

// readCallback receives each document with its position. Returning false stops reading.
type readCallback func(doc *domdoc.Document, fileIndex, row int) bool

// fileReader streams documents from the parquet and JSONL files of a directory,
// in file name order.
type fileReader struct {
	files  []string
	logger *zap.Logger
}

func newFileReader(dataDir string, logger *zap.Logger) (*fileReader, error) {
	var files []string
	for _, ext := range []string{extParquet, extJSONL} {
		matched, err := filepath.Glob(filepath.Join(dataDir, "*"+ext))
		if err != nil {
			return nil, fmt.Errorf("glob %s files: %w", ext, err)
		}
		files = append(files, matched...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no parquet or jsonl files found in %s", dataDir)
	}
	sort.Strings(files)
	logger.Info("Found input files", zap.Int("count", len(files)), zap.String("dir", dataDir))
	return &fileReader{files: files, logger: logger}, nil
}

// Read emits documents starting at fileIndex/rowOffset. maxRows=0 means no limit.
// It returns the number of documents emitted.
func (r *fileReader) Read(fileIndex, rowOffset, maxRows int, cb readCallback) (int, error) {
	total := 0
	for fi := fileIndex; fi < len(r.files); fi++ {
		skip := 0
		if fi == fileIndex {
			skip = rowOffset
		}
		limit := 0
		if maxRows > 0 {
			limit = maxRows - total
		}

		n, stopped, err := r.readFile(fi, skip, limit, cb)
		total += n
		if err != nil {
			return total, fmt.Errorf("read %s: %w", filepath.Base(r.files[fi]), err)
		}
		if stopped || (maxRows > 0 && total >= maxRows) {
			break
		}
	}
	return total, nil
}

func (r *fileReader) readFile(fi, skip, limit int, cb readCallback) (int, bool, error) {
	path := r.files[fi]
	r.logger.Debug("Reading file", zap.String("file", filepath.Base(path)), zap.Int("skip", skip))

	emit := limitedEmit(fi, limit, cb)
	switch strings.ToLower(filepath.Ext(path)) {
	case extParquet:
		return readParquet(path, skip, emit)
	default:
		return readJSONL(path, skip, emit)
	}
}

// rowEmitter is called per row. The bool result reports whether reading continues.
type rowEmitter func(doc *domdoc.Document, row int) bool

func limitedEmit(fileIndex, limit int, cb readCallback) rowEmitter {
	n := 0
	return func(doc *domdoc.Document, row int) bool {
		n++
		if !cb(doc, fileIndex, row) {
			return false
		}
		return limit <= 0 || n < limit
	}
}

// readJSONL reads one JSON object per line. Blank lines are ignored but still count as rows.
func readJSONL(path string, skip int, emit rowEmitter) (int, bool, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, false, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)

	emitted := 0
	for row := 0; sc.Scan(); row++ {
		if row < skip {
			continue
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		doc := domdoc.New()
		if err := doc.UnmarshalJSON([]byte(line)); err != nil {
			return emitted, false, fmt.Errorf("line %d: %w", row+1, err)
		}
		emitted++
		if !emit(doc, row) {
			return emitted, true, nil
		}
	}
	if err := sc.Err(); err != nil {
		return emitted, false, fmt.Errorf("scan: %w", err)
	}
	return emitted, false, nil
}

// parquetColumn maps a leaf column to a document field.
type parquetColumn struct {
	field    string
	repeated bool
}

// resolveColumns maps leaf column indexes to top-level field names.
// Nested groups other than lists collapse onto their top-level name.
func resolveColumns(schema *parquet.Schema) []parquetColumn {
	paths := schema.Columns()
	cols := make([]parquetColumn, len(paths))
	for i, path := range paths {
		if len(path) == 0 {
			continue
		}
		col := parquetColumn{field: path[0]}
		if leaf, ok := schema.Lookup(path...); ok {
			col.repeated = leaf.MaxRepetitionLevel > 0
		}
		cols[i] = col
	}
	return cols
}

func readParquet(path string, skip int, emit rowEmitter) (int, bool, error) {
	h, err := openParquet(path)
	if err != nil {
		return 0, false, err
	}
	defer h.Close()

	cols := resolveColumns(h.pf.Schema())
	skipped, emitted, row := 0, 0, 0

	for _, rg := range h.pf.RowGroups() {
		rgRows := int(rg.NumRows())
		if skipped+rgRows <= skip {
			skipped += rgRows
			row += rgRows
			continue
		}

		rows := parquet.NewRowGroupReader(rg)
		buf := make([]parquet.Row, 1000)
		for {
			cnt, readErr := rows.ReadRows(buf)
			for i := 0; i < cnt; i++ {
				if skipped < skip {
					skipped++
					row++
					continue
				}
				emitted++
				if !emit(rowToDocument(buf[i], cols), row) {
					return emitted, true, nil
				}
				row++
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return emitted, false, fmt.Errorf("read rows: %w", readErr)
			}
		}
	}
	return emitted, false, nil
}

// rowToDocument converts a generic parquet row. Fields appear in schema order.
// Repeated columns become sequences, null scalars become null fields.
func rowToDocument(row parquet.Row, cols []parquetColumn) *domdoc.Document {
	doc := domdoc.New()
	lists := make(map[string][]any)

	for _, v := range row {
		idx := v.Column()
		if idx < 0 || idx >= len(cols) || cols[idx].field == "" {
			continue
		}
		col := cols[idx]
		if col.repeated {
			if _, seen := lists[col.field]; !seen {
				lists[col.field] = []any{}
				doc.SetField(col.field, nil)
			}
			if !v.IsNull() {
				lists[col.field] = append(lists[col.field], parquetValue(v))
			}
			continue
		}
		if _, exists := doc.Get(col.field); exists && v.IsNull() {
			continue
		}
		if v.IsNull() {
			doc.SetField(col.field, nil)
			continue
		}
		doc.SetField(col.field, parquetValue(v))
	}

	for name, values := range lists {
		doc.SetField(name, values)
	}
	return doc
}

func parquetValue(v parquet.Value) any {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

// parquetHandle wraps parquet.File and the underlying os.File for cleanup.
type parquetHandle struct {
	pf   *parquet.File
	file *os.File
}

func (h *parquetHandle) Close() {
	_ = h.file.Close()
}

func openParquet(path string) (*parquetHandle, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	return &parquetHandle{pf: pf, file: f}, nil
}
