package extract

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aridlab/litreview"
)

// LoadSchema reads the externally supplied extraction schema and verifies
// it is well-formed JSON. The raw bytes are embedded in the prompt
// verbatim; this system never interprets or mutates the schema. Loaded
// fresh per task so a schema edit mid-corpus applies to later tasks.
func LoadSchema(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", litreview.ErrSchemaNotFound, path)
	}
	var probe map[string]interface{}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing extraction schema %s: %w", path, err)
	}
	return data, nil
}
