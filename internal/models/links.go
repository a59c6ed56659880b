package models

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
)

// encodeLinks serialises learning-in-public links into a JSON column value.
func encodeLinks(links []string) datatypes.JSON {
	if links == nil {
		links = []string{}
	}
	data, err := json.Marshal(links)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}

// decodeLinks returns the non-blank links stored in a JSON column.
func decodeLinks(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}

	var links []string
	if err := json.Unmarshal(raw, &links); err != nil {
		return nil
	}

	result := make([]string, 0, len(links))
	for _, link := range links {
		if trimmed := strings.TrimSpace(link); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
