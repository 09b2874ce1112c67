package stubbackend

import "strings"

// GroupColumns clusters n_* columns by their longest underscore prefix
// (at least two tokens) that is shared by two or more columns. Columns
// with no shared prefix form a group of their own.
func GroupColumns(columns []string) (map[string][]string, []string) {
	tokens := make(map[string][]string, len(columns))
	prefixCounts := map[string]int{}
	for _, col := range columns {
		tk := splitTokens(col)
		tokens[col] = tk
		if len(tk) < 3 {
			continue
		}
		for n := 2; n < len(tk); n++ {
			prefixCounts[strings.Join(tk[:n], "_")]++
		}
	}

	groups := map[string][]string{}
	var order []string
	add := func(key, col string) {
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], col)
	}
	for _, col := range columns {
		tk := tokens[col]
		best := ""
		if len(tk) >= 3 {
			for n := 2; n < len(tk); n++ {
				p := strings.Join(tk[:n], "_")
				if prefixCounts[p] >= 2 {
					best = p
				}
			}
		}
		if best == "" {
			best = col
		}
		add(best, col)
	}
	return groups, order
}

func splitTokens(name string) []string {
	var out []string
	for _, t := range strings.Split(name, "_") {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
