// Package covers downloads book covers and computes blurhash placeholders.
package covers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// maxCoverSize limits download size to prevent memory exhaustion.
	maxCoverSize = 10 * 1024 * 1024 // 10MB

	downloadTimeout = 15 * time.Second

	// blurHashSize is the longest edge of the thumbnail the hash is computed
	// from. A placeholder needs no more detail than this.
	blurHashSize = 64

	// 4 horizontal, 3 vertical components suit portrait covers.
	xComponents = 4
	yComponents = 3
)

// ErrEmptyURL is returned when there is no cover to fetch.
var ErrEmptyURL = errors.New("empty cover URL")

// Result describes a processed cover.
type Result struct {
	Blurhash string
	Width    int
	Height   int
	Size     int64
	Format   string
}

// Processor fetches covers over HTTP and hashes them.
type Processor struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewProcessor creates a cover processor. A nil client gets a default one
// with a download timeout.
func NewProcessor(httpClient *http.Client, logger *slog.Logger) *Processor {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: downloadTimeout}
	}
	return &Processor{httpClient: httpClient, logger: logger}
}

// Process downloads the cover at url and computes its blurhash.
func (p *Processor) Process(ctx context.Context, url string) (*Result, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrEmptyURL
	}

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverSize))
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}

	result, err := FromBytes(data)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("processed cover",
		"url", url,
		"format", result.Format,
		"size", result.Size,
		"width", result.Width,
		"height", result.Height,
	)
	return result, nil
}

// Blurhash is Process reduced to the hash. Failures are logged and yield "".
func (p *Processor) Blurhash(ctx context.Context, url string) string {
	if strings.TrimSpace(url) == "" {
		return ""
	}
	result, err := p.Process(ctx, url)
	if err != nil {
		p.logger.Warn("failed to compute cover blurhash", "url", url, "error", err)
		return ""
	}
	return result.Blurhash
}

// FromBytes decodes an image and computes its blurhash.
func FromBytes(data []byte) (*Result, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	hash, err := blurhash.Encode(xComponents, yComponents, thumbnail(img))
	if err != nil {
		return nil, fmt.Errorf("encode blurhash: %w", err)
	}

	bounds := img.Bounds()
	return &Result{
		Blurhash: hash,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Size:     int64(len(data)),
		Format:   format,
	}, nil
}

// thumbnail scales img so its longest edge is at most blurHashSize,
// keeping the aspect ratio.
func thumbnail(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= blurHashSize && h <= blurHashSize {
		return img
	}

	dw, dh := blurHashSize, blurHashSize
	if w > h {
		dh = max(1, h*blurHashSize/w)
	} else {
		dw = max(1, w*blurHashSize/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
