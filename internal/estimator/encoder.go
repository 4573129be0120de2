package estimator

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LabelEncoder maps route keys to the integer codes the model was trained
// with. A key's code is its index in the class list.
type LabelEncoder struct {
	codes map[string]int
}

func NewLabelEncoder(classes []string) *LabelEncoder {
	codes := make(map[string]int, len(classes))
	for i, c := range classes {
		if _, dup := codes[c]; !dup {
			codes[c] = i
		}
	}
	return &LabelEncoder{codes: codes}
}

// LoadLabelEncoder reads a JSON array of class names.
func LoadLabelEncoder(path string) (*LabelEncoder, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("route encoder not found at %s: %w", path, err)
	}
	var classes []string
	if err := json.Unmarshal(b, &classes); err != nil {
		return nil, fmt.Errorf("malformed route encoder %s: %w", path, err)
	}
	return NewLabelEncoder(classes), nil
}

// Encode never fails: unseen keys encode to 0. Without a class list a
// numeric key encodes to its own value.
func (e *LabelEncoder) Encode(routeKey string) int {
	key := strings.TrimSpace(routeKey)
	if e == nil {
		if v, err := strconv.Atoi(key); err == nil {
			return v
		}
		return 0
	}
	return e.codes[key]
}

// Len is the number of known classes.
func (e *LabelEncoder) Len() int {
	if e == nil {
		return 0
	}
	return len(e.codes)
}
