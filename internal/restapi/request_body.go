package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxBodyBytes = 1 << 20

// decodeJSONBody reads a single JSON object into dst. Problems are returned
// as field errors keyed by the offending field, or "body" when the payload
// as a whole is unusable.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) map[string][]string {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)

	err := dec.Decode(dst)
	if err == nil {
		if dec.More() {
			return map[string][]string{"body": {"Request body must contain a single JSON object."}}
		}
		return nil
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return map[string][]string{typeErr.Field: {fmt.Sprintf("Invalid field value for field %q.", typeErr.Field)}}
	case errors.As(err, &maxErr):
		return map[string][]string{"body": {fmt.Sprintf("Request body must not exceed %d bytes.", maxErr.Limit)}}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return map[string][]string{"body": {"Request body is not valid JSON."}}
	case errors.Is(err, io.EOF):
		return map[string][]string{"body": {"Request body must not be empty."}}
	default:
		return map[string][]string{"body": {"Request body could not be decoded."}}
	}
}
