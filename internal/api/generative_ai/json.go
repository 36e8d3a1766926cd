package generativeAI

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CleanJSONResponse strips markdown fences and any prose around the outermost JSON object.
func CleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	firstBrace := strings.Index(response, "{")
	if firstBrace == -1 {
		return response
	}
	lastBrace := strings.LastIndex(response, "}")
	if lastBrace == -1 || lastBrace <= firstBrace {
		return response
	}
	return strings.TrimSpace(response[firstBrace : lastBrace+1])
}

// DecodeJSON cleans a model response and unmarshals it into dst.
func DecodeJSON(response string, dst any) error {
	cleaned := CleanJSONResponse(response)
	if cleaned == "" {
		return ErrEmptyResponse
	}
	if !strings.HasPrefix(cleaned, "{") {
		return errors.New("response does not contain a JSON object")
	}
	if err := json.Unmarshal([]byte(cleaned), dst); err != nil {
		return fmt.Errorf("malformed JSON response: %w", err)
	}
	return nil
}
