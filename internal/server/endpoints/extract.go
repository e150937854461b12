package endpoints

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sides/internal/api"
	"github.com/jackzampolin/sides/internal/script"
	"github.com/jackzampolin/sides/internal/svcctx"
	"github.com/jackzampolin/sides/internal/transcript"
)

// ExtractRequest is the body of POST /pdf/extract.
type ExtractRequest struct {
	// DataURL is the PDF as a data URL or bare base64.
	DataURL  string `json:"dataUrl"`
	FileName string `json:"fileName,omitempty"`
	// Provider and Chunking override the server defaults.
	Provider string `json:"provider,omitempty"`
	Chunking string `json:"chunking,omitempty"`
}

// ExtractResponse is the extracted transcript.
type ExtractResponse struct {
	transcript.Transcript `yaml:",inline"`
	FileName              string `json:"fileName,omitempty" yaml:"fileName,omitempty"`
}

// WriteText prints the transcript lines.
func (r ExtractResponse) WriteText(w io.Writer) error {
	return r.Transcript.WriteText(w)
}

// ExtractEndpoint handles POST /pdf/extract.
type ExtractEndpoint struct {
	// MaxBodyBytes caps the request body. Zero means no cap.
	MaxBodyBytes int64
}

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/pdf/extract", e.handler
}

func (e *ExtractEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Extract dialogue from a PDF script
//	@Description	Extracts page text, sends each chunk to the extraction provider concurrently, and returns the merged transcript. Chunks that fail are listed in chunks and contribute no lines.
//	@Tags			pdf
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ExtractRequest	true	"PDF as a data URL"
//	@Success		200		{object}	ExtractResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		413		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/pdf/extract [post]
func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	logger := svcctx.LoggerFrom(r.Context())

	if e.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, e.MaxBodyBytes)
	}

	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.DataURL == "" {
		writeError(w, http.StatusBadRequest, "Missing PDF dataUrl")
		return
	}
	data, err := DecodeDataURL(req.DataURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	policy, err := script.ParsePolicy(req.Chunking)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pipeline := svcctx.PipelineFrom(r.Context())
	if pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "extraction pipeline not initialized")
		return
	}

	t, err := pipeline.ExtractWith(r.Context(), data, transcript.ExtractOptions{
		Provider: req.Provider,
		Chunking: policy,
	})
	if err != nil {
		switch {
		case transcript.IsInputError(err):
			writeError(w, http.StatusBadRequest, inputErrorMessage(err))
		case errors.Is(err, transcript.ErrNoProvider):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			logger.Error("extraction failed", "file", req.FileName, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Info("processed PDF",
		"file", req.FileName,
		"run_id", t.RunID,
		"lines", len(t.Lines),
		"failed_chunks", t.Failed(),
		"duration", t.Duration)
	writeJSON(w, http.StatusOK, ExtractResponse{Transcript: *t, FileName: req.FileName})
}

// inputErrorMessage maps input errors onto the messages the extract API
// has always returned.
func inputErrorMessage(err error) string {
	switch {
	case errors.Is(err, transcript.ErrNoDocument):
		return "Missing PDF dataUrl"
	case errors.Is(err, transcript.ErrNoText):
		return "No text found in PDF"
	default:
		return err.Error()
	}
}

// DecodeDataURL returns the bytes of a base64 data URL. Everything up to the
// first comma is treated as the header; a string without a comma is decoded
// as bare base64.
func DecodeDataURL(s string) ([]byte, error) {
	payload := s
	if i := strings.IndexByte(s, ','); i >= 0 {
		payload = s[i+1:]
	}
	payload = strings.Join(strings.Fields(payload), "")

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some encoders drop the padding.
		if data, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); rawErr == nil {
			return data, nil
		}
		return nil, fmt.Errorf("invalid PDF dataUrl: %w", err)
	}
	return data, nil
}

// EncodeDataURL wraps PDF bytes in a data URL.
func EncodeDataURL(data []byte) string {
	return "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data)
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	var provider, chunking string
	cmd := &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Extract dialogue from a PDF on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read PDF: %w", err)
			}

			client := api.NewClient(getServerURL())
			var resp ExtractResponse
			if err := client.Post(cmd.Context(), "/pdf/extract", ExtractRequest{
				DataURL:  EncodeDataURL(data),
				FileName: filepath.Base(args[0]),
				Provider: provider,
				Chunking: chunking,
			}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Extraction provider (default: server's defaults.llm_provider)")
	cmd.Flags().StringVar(&chunking, "chunking", "", "Chunking policy: page or size")
	return cmd
}
