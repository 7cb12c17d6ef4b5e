package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/janisto/wallet-profiles/internal/platform/schema"
	profilesvc "github.com/janisto/wallet-profiles/internal/service/profile"
)

// Record encodings accepted by --format and --output.
const (
	FormatAuto = "auto"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// stdinPath reads the record from standard input.
const stdinPath = "-"

// readRecordFile reads the record at path, or from stdin for "-".
func readRecordFile(stdin io.Reader, path, format string) (schema.Record, error) {
	var (
		data []byte
		err  error
	)
	if path == stdinPath {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if format == FormatAuto {
		format = detectFormat(path, data)
	}
	return decodeRecord(data, format)
}

// detectFormat picks the decoder from the file extension, falling back to
// the first non-blank byte for stdin and unknown extensions.
func detectFormat(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

func decodeRecord(data []byte, format string) (schema.Record, error) {
	switch format {
	case FormatJSON:
		return schema.ParseJSON(data)
	case FormatYAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%w: %w", schema.ErrInvalidRecord, err)
		}
		return schema.Canonicalize(v)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func writeRecord(w io.Writer, rec schema.Record, output string) error {
	switch output {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	case FormatYAML:
		out, err := yaml.Marshal(schema.Native(rec))
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("unknown output %q", output)
	}
}

// writeIssues prints one "field: kind: detail" line per validation issue.
// Other errors are printed as a single line.
func writeIssues(w io.Writer, prefix string, err error) {
	for _, line := range issueLines(err) {
		fmt.Fprintln(w, prefix+line)
	}
}

func issueLines(err error) []string {
	var verr *schema.ValidationError
	switch {
	case errors.As(err, &verr) && len(verr.Issues) > 0:
		lines := make([]string, len(verr.Issues))
		for i, issue := range verr.Issues {
			lines[i] = issue.Error()
		}
		return lines
	case errors.Is(err, profilesvc.ErrUnknownNetwork):
		return []string{profilesvc.FieldNetworkID + ": " + err.Error()}
	default:
		return []string{err.Error()}
	}
}
