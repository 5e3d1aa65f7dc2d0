package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/inveniosoftware/airdec-workflows/internal/common"
	"github.com/inveniosoftware/airdec-workflows/internal/services/extract"
)

// ErrDownloadFailed indicates the source URL could not be fetched.
var ErrDownloadFailed = errors.New("download failed")

// Client downloads source documents with a timeout and size cap, and
// validates them as PDFs before they reach an extraction backend.
type Client struct {
	http        *http.Client
	maxBodySize int64
	logger      arbor.ILogger
}

// NewClient creates a download client from the fetch configuration.
func NewClient(config *common.FetchConfig, logger arbor.ILogger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: common.Duration(config.Timeout, 30*time.Second),
		},
		maxBodySize: int64(config.MaxBodySize),
		logger:      logger,
	}
}

// FetchPDF downloads the URL and returns the validated document bytes.
func (c *Client) FetchPDF(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrDownloadFailed, url, resp.StatusCode)
	}

	// Read one byte past the cap to distinguish "exactly at" from "over".
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if int64(len(data)) > c.maxBodySize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrDownloadFailed, url, c.maxBodySize)
	}

	if err := validatePDF(data); err != nil {
		return nil, err
	}

	c.logger.Debug().Str("url", url).Int("bytes", len(data)).Msg("Document downloaded")
	return data, nil
}

// validatePDF rejects downloads that are not well-formed PDFs before any
// backend spends time on them.
func validatePDF(data []byte) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return fmt.Errorf("%w: %v", extract.ErrInvalidDocument, err)
	}
	return nil
}
