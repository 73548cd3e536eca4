// Package liststore provides key/column lookups against operator-maintained
// lists such as the authorized DHCP relay list.
package liststore

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Store looks up one cell of a named list: the value of valueColumn in the
// row whose keyColumn equals keyValue. When the row or the cell is absent,
// notFound is returned with a nil error.
type Store interface {
	Lookup(ctx context.Context, list, keyColumn, keyValue, valueColumn, notFound string) (string, error)
}

// Row is one list row, column name to cell value.
type Row map[string]string

// Memory is an in-process Store.
type Memory struct {
	Lists map[string][]Row
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{Lists: make(map[string][]Row)}
}

// AddRow appends a row to a list.
func (m *Memory) AddRow(list string, row Row) {
	m.Lists[list] = append(m.Lists[list], row)
}

// Lookup implements Store. The first matching row wins.
func (m *Memory) Lookup(_ context.Context, list, keyColumn, keyValue, valueColumn, notFound string) (string, error) {
	for _, row := range m.Lists[list] {
		if row[keyColumn] != keyValue {
			continue
		}
		if v, ok := row[valueColumn]; ok {
			return v, nil
		}
		return notFound, nil
	}
	return notFound, nil
}

// Column returns the values of column across the rows of list, in row
// order. Rows without the column are skipped.
func (m *Memory) Column(list, column string) []string {
	var out []string
	for _, row := range m.Lists[list] {
		if v, ok := row[column]; ok {
			out = append(out, v)
		}
	}
	return out
}

// listFile is the on-disk YAML layout:
//
//	lists:
//	  DHCP Relays:
//	    - Key: Site-001
//	      Relays: 192.168.255.67,192.168.255.68
//	      Exclusions: 10.100.1.1
type listFile struct {
	Lists map[string][]Row `yaml:"lists"`
}

// LoadFile reads a YAML list file into a Memory store.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading list file: %w", err)
	}

	var lf listFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing list file %s: %w", path, err)
	}

	m := NewMemory()
	for name, rows := range lf.Lists {
		for i, row := range rows {
			if row == nil {
				return nil, fmt.Errorf("list %q row %d: empty row", name, i)
			}
			m.AddRow(name, row)
		}
	}
	return m, nil
}
