package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/starwalkn/gotenberg-go-client/v8"
	"github.com/starwalkn/gotenberg-go-client/v8/document"
	"golang.org/x/sync/semaphore"
)

// PDFRenderer converts assembled report HTML to a PDF through Gotenberg's
// Chromium engine. Renders are CPU and memory heavy on the Gotenberg side,
// so concurrent conversions are bounded by a weighted semaphore.
type PDFRenderer struct {
	client  *gotenberg.Client
	timeout time.Duration
	renders *semaphore.Weighted
}

func NewPDFRenderer(gotenbergURL string, timeoutStr string, maxRenders int) (*PDFRenderer, error) {
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{
		Timeout: timeout,
	}

	client, err := gotenberg.NewClient(gotenbergURL, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gotenberg client: %w", err)
	}

	if maxRenders <= 0 {
		maxRenders = 1
	}

	return &PDFRenderer{
		client:  client,
		timeout: timeout,
		renders: semaphore.NewWeighted(int64(maxRenders)),
	}, nil
}

// RenderHTML converts one HTML document to an A4 PDF buffer. Orientation
// comes from the template; margins are zero and background graphics are
// kept. Chromium waits for network idle before printing.
func (r *PDFRenderer) RenderHTML(ctx context.Context, html string, landscape bool) ([]byte, error) {
	if err := r.renders.Acquire(ctx, 1); err != nil {
		return nil, generationError(CodeGenerationRender, "render queue wait cancelled", err)
	}
	defer r.renders.Release(1)

	renderCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	index, err := document.FromString("index.html", html)
	if err != nil {
		return nil, generationError(CodeGenerationRender, "failed to build index document", err)
	}

	req := gotenberg.NewHTMLRequest(index)
	req.PaperSize(gotenberg.A4)
	req.Margins(gotenberg.NoMargins)
	req.PrintBackground()
	req.SkipNetworkIdleEvent(false)
	if landscape {
		req.Landscape()
	}

	resp, err := r.client.Send(renderCtx, req)
	if err != nil {
		return nil, generationError(CodeGenerationRender, "PDF conversion failed", err)
	}
	defer resp.Body.Close()

	buffer, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, generationError(CodeGenerationRender, "failed to read PDF response", err)
	}

	return buffer, nil
}
