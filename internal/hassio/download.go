package hassio

import (
	"fmt"
	"net/http"
)

// DownloadRequest describes a snapshot download without performing it. The
// headers are captured when the request is created. Whoever prepares the
// request owns the response body.
type DownloadRequest struct {
	URL    string
	Header http.Header
}

// Prepare builds the GET request for the whole snapshot
func (d *DownloadRequest) Prepare() (*http.Request, error) {
	req, err := http.NewRequest(http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, NewTransportError(d.URL, err)
	}
	req.Header = d.Header.Clone()
	return req, nil
}

// PrepareRange builds a GET for length bytes starting at offset. A length of
// zero or less requests everything from offset to the end.
func (d *DownloadRequest) PrepareRange(offset, length int64) (*http.Request, error) {
	req, err := d.Prepare()
	if err != nil {
		return nil, err
	}
	if length > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+length-1))
	} else {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	return req, nil
}
