package hassio

import (
	"encoding/json"
	"io"
	"net/http"
)

// maxEnvelopeSize bounds how much of a Supervisor reply is read into memory
const maxEnvelopeSize = 16 << 20

// envelope is the wrapper every Supervisor reply uses
type envelope struct {
	Result *string         `json:"result"`
	Data   json.RawMessage `json:"data"`
}

// checkStatus enforces HTTP-level success. It is the only check applied to
// Home Assistant replies.
func checkStatus(url string, resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewHTTPError(url, resp.StatusCode)
	}
	return nil
}

// validateSupervisorReply checks status, then the {result, data} envelope.
// The body is always closed.
func validateSupervisorReply(url string, resp *http.Response) (map[string]any, error) {
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(url, resp); err != nil {
		return nil, err
	}

	// One byte past the limit tells a full reply from a truncated one
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeSize+1))
	if err != nil {
		return nil, NewTransportError(url, err)
	}
	if len(body) > maxEnvelopeSize {
		return nil, NewReplyTooLargeError(url, resp.StatusCode, maxEnvelopeSize)
	}
	return parseEnvelope(url, body)
}

func parseEnvelope(url string, body []byte) (map[string]any, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, NewMalformedResponseError(url, body, err)
	}

	if env.Result == nil {
		return nil, NewMalformedResponseError(url, body, nil)
	}
	if *env.Result != "ok" {
		return nil, NewSupervisorReportedError(url, *env.Result)
	}

	data := map[string]any{}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return data, nil
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, NewMalformedResponseError(url, body, err)
	}
	return data, nil
}
