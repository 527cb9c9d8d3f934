package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	CSV        Format = "csv"
	TSV        Format = "tsv"
	JSON       Format = "json"
	PrettyJSON Format = "pjson"
	YAML       Format = "yaml"
)

var formats = []Format{CSV, TSV, JSON, PrettyJSON, YAML}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "yml" {
		return YAML, nil
	}
	for _, known := range formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want csv, tsv, json, pjson or yaml)", s)
}

// FormatFromPath picks a format from a file extension, CSV when unknown.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return CSV
	}
	return f
}

// Record is a row that can be written in the delimited formats.
type Record interface {
	CSVHeader() []string
	CSVRecord() []string
}

// Write serializes items to w. Delimited formats always carry a header row.
func Write[T Record](w io.Writer, format Format, items []T) error {
	switch format {
	case CSV, TSV:
		cw := csv.NewWriter(w)
		if format == TSV {
			cw.Comma = '\t'
		}
		var zero T
		if err := cw.Write(zero.CSVHeader()); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		for _, item := range items {
			if err := cw.Write(item.CSVRecord()); err != nil {
				return fmt.Errorf("writing record: %w", err)
			}
		}
		cw.Flush()
		return cw.Error()

	case JSON, PrettyJSON:
		if items == nil {
			items = []T{}
		}
		enc := json.NewEncoder(w)
		if format == PrettyJSON {
			enc.SetIndent("", "  ")
		}
		if err := enc.Encode(items); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil

	case YAML:
		if items == nil {
			items = []T{}
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(items); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()

	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
