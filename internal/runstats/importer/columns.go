package importer

import (
	"strings"
)

// ColumnMap tells which CSV header holds which run field. An empty value means
// the field is not imported.
type ColumnMap struct {
	Date     string `json:"date"`
	Distance string `json:"distance"`
	Duration string `json:"duration"`
	Notes    string `json:"notes"`
	Effort   string `json:"effort"`
	Route    string `json:"route"`
}

// GuessColumnMap picks a header for each field by name. A header containing
// "time" is used for the date or the duration only when nothing better exists.
func GuessColumnMap(headers []string) ColumnMap {
	var cm ColumnMap
	var timeHeader string
	for _, h := range headers {
		lower := strings.ToLower(strings.TrimSpace(h))
		switch {
		case lower == "":
		case strings.Contains(lower, "date"):
			setOnce(&cm.Date, h)
		case strings.Contains(lower, "dur"):
			setOnce(&cm.Duration, h)
		case strings.Contains(lower, "time"):
			setOnce(&timeHeader, h)
		case strings.Contains(lower, "dist"), strings.Contains(lower, "km"), strings.Contains(lower, "mile"), lower == "mi":
			setOnce(&cm.Distance, h)
		case strings.Contains(lower, "note"), strings.Contains(lower, "desc"):
			setOnce(&cm.Notes, h)
		case strings.Contains(lower, "effort"), strings.Contains(lower, "intensity"), strings.Contains(lower, "rpe"):
			setOnce(&cm.Effort, h)
		case strings.Contains(lower, "route"):
			setOnce(&cm.Route, h)
		}
	}

	if timeHeader != "" {
		if cm.Date == "" {
			cm.Date = timeHeader
		} else if cm.Duration == "" {
			cm.Duration = timeHeader
		}
	}
	return cm
}

func setOnce(field *string, header string) {
	if *field == "" {
		*field = header
	}
}
