package csvio

import (
	"strings"

	"go.uber.org/zap"
)

// Field is a single raw column/value pair carried by a merged row. Interview
// marks that the value was contributed by the interview source.
type Field struct {
	Column    string
	Value     string
	Interview bool
}

// MergedRow is the outer-join result for one identity: the application row's
// fields, overwritten by the interview row's fields for identical column
// names. Field order is application columns first, then interview-only
// columns.
type MergedRow struct {
	Identity string

	fields []Field
	index  map[string]int
}

// NewMergedRow creates an empty merged row for the given identity.
func NewMergedRow(identity string) *MergedRow {
	return &MergedRow{
		Identity: identity,
		index:    make(map[string]int),
	}
}

// Set inserts or overwrites the value for a column, preserving the insertion
// position of columns seen earlier.
func (r *MergedRow) Set(column, value string, interview bool) {
	if idx, ok := r.index[column]; ok {
		r.fields[idx].Value = value
		r.fields[idx].Interview = interview
		return
	}
	r.index[column] = len(r.fields)
	r.fields = append(r.fields, Field{Column: column, Value: value, Interview: interview})
}

// Get returns the value stored for the column, or an empty string.
func (r *MergedRow) Get(column string) string {
	if idx, ok := r.index[column]; ok {
		return r.fields[idx].Value
	}
	return ""
}

// Fields returns all column/value pairs in insertion order.
func (r *MergedRow) Fields() []Field {
	return r.fields
}

func (r *MergedRow) Len() int {
	return len(r.fields)
}

// Merge outer-joins application and interview rows on identityColumn. Every
// identity present in either source appears exactly once in the output:
// application identities in input order first, then interview-only
// identities. Rows with an empty identity are skipped, and when the same
// identity occurs twice within one source the first occurrence wins. The
// merge never fails; empty inputs yield an empty result.
func Merge(application, interview *Table, identityColumn string, logger *zap.Logger) []*MergedRow {
	appRows, appOrder := indexByIdentity(application, identityColumn, "application", logger)
	intRows, intOrder := indexByIdentity(interview, identityColumn, "interview", logger)

	if application.Len() != interview.Len() {
		logger.Info("source row counts differ, keeping the union of both",
			zap.String("identity_column", identityColumn),
			zap.Int("application_rows", application.Len()),
			zap.Int("interview_rows", interview.Len()),
		)
	}

	order := make([]string, 0, len(appOrder)+len(intOrder))
	order = append(order, appOrder...)
	for _, id := range intOrder {
		if _, ok := appRows[id]; !ok {
			order = append(order, id)
		}
	}

	merged := make([]*MergedRow, 0, len(order))
	for _, id := range order {
		row := NewMergedRow(id)

		if appRow, ok := appRows[id]; ok {
			for _, header := range application.Headers {
				if header == "" {
					continue
				}
				row.Set(header, appRow[header], false)
			}
		}

		if intRow, ok := intRows[id]; ok {
			for _, header := range interview.Headers {
				if header == "" {
					continue
				}
				row.Set(header, intRow[header], true)
			}
		}

		// The identity column always carries the canonical trimmed value.
		row.Set(identityColumn, id, false)

		merged = append(merged, row)
	}

	return merged
}

// indexByIdentity maps trimmed identity values to their rows, keeping first
// occurrences and the order identities were seen in.
func indexByIdentity(table *Table, identityColumn, source string, logger *zap.Logger) (map[string]map[string]string, []string) {
	rows := make(map[string]map[string]string)
	order := make([]string, 0, table.Len())

	if table.Len() > 0 && !table.HasColumn(identityColumn) {
		logger.Warn("identity column missing from source, all rows skipped",
			zap.String("identity_column", identityColumn),
			zap.String("source", source),
			zap.String("path", table.Path),
		)
		return rows, order
	}

	for i, row := range table.Rows {
		id := strings.TrimSpace(row[identityColumn])
		if id == "" {
			logger.Warn("skipping row with empty identity",
				zap.String("identity_column", identityColumn),
				zap.String("source", source),
				zap.Int("row", i+1),
			)
			continue
		}
		if _, ok := rows[id]; ok {
			logger.Warn("skipping duplicate identity, first occurrence kept",
				zap.String("identity", id),
				zap.String("source", source),
				zap.Int("row", i+1),
			)
			continue
		}
		rows[id] = row
		order = append(order, id)
	}

	return rows, order
}
