package core

// columns.go holds the declarative row layout: which sheet column feeds which
// lead field. Extraction consumes the table; nothing else hardcodes indexes.

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Field names a lead field that is read from the sheet.
type Field string

const (
	FieldCreatedTime  Field = "created_time"
	FieldAdName       Field = "ad_name"
	FieldAdsetName    Field = "adset_name"
	FieldCampaignName Field = "campaign_name"
	FieldFormName     Field = "form_name"
	FieldPlatform     Field = "platform"
	FieldStartDate    Field = "preferred_start_date"
	FieldPeopleCount  Field = "people_count"
	FieldFullName     Field = "full_name"
	FieldEmail        Field = "email"
	FieldPhone        Field = "phone"
	FieldCity         Field = "city"
)

// allFields lists every field a column map must place.
var allFields = []Field{
	FieldCreatedTime, FieldAdName, FieldAdsetName, FieldCampaignName,
	FieldFormName, FieldPlatform, FieldStartDate, FieldPeopleCount,
	FieldFullName, FieldEmail, FieldPhone, FieldCity,
}

// ColumnSpec binds one field to a 0-based column index.
type ColumnSpec struct {
	Field Field
	Index int
}

// ColumnMap is the full row layout.
type ColumnMap []ColumnSpec

// DefaultColumnMap is the layout of the lead-form export sheet.
var DefaultColumnMap = ColumnMap{
	{Field: FieldCreatedTime, Index: 1},
	{Field: FieldAdName, Index: 3},
	{Field: FieldAdsetName, Index: 5},
	{Field: FieldCampaignName, Index: 7},
	{Field: FieldFormName, Index: 9},
	{Field: FieldPlatform, Index: 11},
	{Field: FieldStartDate, Index: 12},
	{Field: FieldPeopleCount, Index: 13},
	{Field: FieldFullName, Index: 14},
	{Field: FieldEmail, Index: 15},
	{Field: FieldPhone, Index: 16},
	{Field: FieldCity, Index: 17},
}

// Index returns the column index of f, or -1 if f is not mapped.
func (m ColumnMap) Index(f Field) int {
	for _, spec := range m {
		if spec.Field == f {
			return spec.Index
		}
	}
	return -1
}

// Validate checks that every field is placed exactly once at a
// non-negative index and that no two fields share a column.
func (m ColumnMap) Validate() error {
	known := make(map[Field]bool, len(allFields))
	for _, f := range allFields {
		known[f] = true
	}

	seenField := make(map[Field]bool, len(m))
	seenIndex := make(map[int]Field, len(m))
	for _, spec := range m {
		if !known[spec.Field] {
			return fmt.Errorf("column map: unknown field %q", spec.Field)
		}
		if spec.Index < 0 {
			return fmt.Errorf("column map: field %q has negative index %d", spec.Field, spec.Index)
		}
		if seenField[spec.Field] {
			return fmt.Errorf("column map: field %q mapped twice", spec.Field)
		}
		if other, ok := seenIndex[spec.Index]; ok {
			return fmt.Errorf("column map: fields %q and %q share column %d", other, spec.Field, spec.Index)
		}
		seenField[spec.Field] = true
		seenIndex[spec.Index] = spec.Field
	}

	for _, f := range allFields {
		if !seenField[f] {
			return fmt.Errorf("column map: field %q is not mapped", f)
		}
	}
	return nil
}

// columnFile is the YAML shape of a column map override:
//
//	columns:
//	  created_time: 1
//	  phone: 16
type columnFile struct {
	Columns map[string]int `yaml:"columns"`
}

// ParseColumnMap parses a YAML override. Fields absent from the document
// keep their DefaultColumnMap index.
func ParseColumnMap(data []byte) (ColumnMap, error) {
	var file columnFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse column map: %w", err)
	}

	byField := make(map[Field]int, len(DefaultColumnMap))
	for _, spec := range DefaultColumnMap {
		byField[spec.Field] = spec.Index
	}
	for name, idx := range file.Columns {
		byField[Field(name)] = idx
	}

	m := make(ColumnMap, 0, len(byField))
	for f, idx := range byField {
		m = append(m, ColumnSpec{Field: f, Index: idx})
	}
	sort.Slice(m, func(i, j int) bool { return m[i].Index < m[j].Index })

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadColumnMap reads a YAML override from path. An empty path yields
// DefaultColumnMap.
func LoadColumnMap(path string) (ColumnMap, error) {
	if path == "" {
		return DefaultColumnMap, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read column map: %w", err)
	}
	return ParseColumnMap(data)
}
