package conversation

import (
	"encoding/json"
	"strconv"

	domconv "github.com/kailas-cloud/convscore/internal/domain/conversation"
)

// resultRecord is the stored form of one finalization.
type resultRecord struct {
	Identity string `json:"identity"`
	BatchNum int64  `json:"batch_num"`
	Payload  any    `json:"payload"`
}

// resultField names the hash field: "validator" or "window:<idx>".
func resultField(f domconv.Finalization) string {
	if f.Kind == domconv.KindWindow {
		return string(f.Kind) + ":" + strconv.Itoa(f.Window)
	}
	return string(f.Kind)
}

func encodeResult(f domconv.Finalization) (string, error) {
	data, err := json.Marshal(resultRecord{Identity: f.Identity, BatchNum: f.BatchNum, Payload: f.Payload})
	if err != nil {
		return "", err //nolint:wrapcheck // wrapped by caller
	}
	return string(data), nil
}
