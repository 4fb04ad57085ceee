package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const maxImageBytes = 16 << 20

// Loader читает картинки по http(s) URL, file:// URL или пути на диске.
// Относительные пути ("/plants/rose.png") разрешаются от BaseURL, если он задан,
// иначе от Root.
type Loader struct {
	BaseURL string
	Root    string
	client  *http.Client
	local   bool
}

func NewLoader(baseURL, root string) *Loader {
	return &Loader{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Root:    root,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// NewLocalLoader читает только файлы внутри root: URL со схемой и пути
// вне root отклоняются (сервис рисует снимок по чужим строкам).
func NewLocalLoader(root string) *Loader {
	return &Loader{Root: root, local: true}
}

func (l *Loader) Load(ctx context.Context, raw string) (image.Image, error) {
	data, err := l.fetch(ctx, raw)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", raw, err)
	}
	return img, nil
}

func (l *Loader) fetch(ctx context.Context, raw string) ([]byte, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty image url")
	}

	u, err := url.Parse(raw)
	if l.local {
		if err != nil || u.Scheme != "" || u.Host != "" {
			return nil, fmt.Errorf("image %s: only local paths allowed", raw)
		}
		return readFile(filepath.Join(l.Root, filepath.Clean("/"+u.Path)))
	}
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return l.fetchHTTP(ctx, raw)
		case "file":
			return readFile(u.Path)
		}
	}

	if l.BaseURL != "" && strings.HasPrefix(raw, "/") {
		return l.fetchHTTP(ctx, l.BaseURL+raw)
	}

	path := raw
	if !filepath.IsAbs(path) || l.Root != "" {
		path = filepath.Join(l.Root, filepath.FromSlash(strings.TrimPrefix(raw, "/")))
	}
	return readFile(path)
}

func (l *Loader) fetchHTTP(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", target, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxImageBytes))
}
