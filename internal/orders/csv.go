package orders

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"fleetsim/internal/model"
)

// LoadCSV imports orders from a flat file with the header
// id,node,deadline,weight,fragile,class. Upstream systems drop these files;
// only the fields the core reads are parsed, everything else is rejected
// early with a row number.
func LoadCSV(path string) ([]*model.Order, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open orders csv: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseCSV(f)
}

// ParseCSV reads order rows from r. The header row is required.
func ParseCSV(r io.Reader) ([]*model.Order, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("orders csv: read header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"id", "node", "deadline", "weight"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("orders csv: missing column %q", required)
		}
	}
	var out []*model.Order
	row := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("orders csv: row %d: %w", row, err)
		}
		row++
		o := &model.Order{Integrity: 100}
		if o.ID, err = strconv.ParseInt(rec[col["id"]], 10, 64); err != nil {
			return nil, fmt.Errorf("orders csv: row %d: bad id: %w", row, err)
		}
		if o.NodeID, err = strconv.ParseInt(rec[col["node"]], 10, 64); err != nil {
			return nil, fmt.Errorf("orders csv: row %d: bad node: %w", row, err)
		}
		if o.DeadlineMin, err = strconv.ParseFloat(rec[col["deadline"]], 64); err != nil {
			return nil, fmt.Errorf("orders csv: row %d: bad deadline: %w", row, err)
		}
		if o.WeightKg, err = strconv.ParseFloat(rec[col["weight"]], 64); err != nil {
			return nil, fmt.Errorf("orders csv: row %d: bad weight: %w", row, err)
		}
		if i, ok := col["fragile"]; ok && i < len(rec) {
			o.Fragile = parseBool(rec[i])
		}
		if i, ok := col["class"]; ok && i < len(rec) {
			if n, err := strconv.Atoi(strings.TrimSpace(rec[i])); err == nil {
				o.PriorityClass = n
			}
		}
		out = append(out, o)
	}
	return out, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
