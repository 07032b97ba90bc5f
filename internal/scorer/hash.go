package scorer

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// ConfigHash returns a SHA-256 hash of the calibration for reproducibility.
// Profiles computed under different calibrations carry different hashes.
func ConfigHash(cfg any) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:16]) // 32 hex chars
}
