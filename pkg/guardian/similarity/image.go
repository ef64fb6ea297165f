package similarity

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	// Registered decoders for image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/nfnt/resize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GridSize is the edge length images are downsampled to before comparison.
const GridSize = 8

const maxLuminance = 255

// Grid is the luminance of a downsampled image, row-major.
type Grid [GridSize * GridSize]uint8

var (
	gridCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guardian_image_grid_cache_hits_total",
		Help: "Image grids served from the cache.",
	})
	gridCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guardian_image_grid_cache_misses_total",
		Help: "Image grids computed because they were not cached.",
	})
)

// ImageScorer compares images by their luminance grids. Grids of stored
// images are cached by a digest of the loaded bytes, so a scan re-reads each
// candidate but only decodes images it has not seen before.
type ImageScorer struct {
	loader ImageLoader
	cache  *lru.LRU[string, Grid]
	logger *slog.Logger
}

// ImageScorerConfig configures an ImageScorer.
type ImageScorerConfig struct {
	Loader    ImageLoader
	CacheSize int           // 0 disables caching
	CacheTTL  time.Duration // 0 keeps entries until evicted by size
	Logger    *slog.Logger
}

// NewImageScorer creates an image scorer. A SourceLoader without a root is
// used when cfg.Loader is nil.
func NewImageScorer(cfg ImageScorerConfig) *ImageScorer {
	s := &ImageScorer{
		loader: cfg.Loader,
		logger: cfg.Logger,
	}
	if s.loader == nil {
		s.loader = NewSourceLoader("")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if cfg.CacheSize > 0 {
		s.cache = lru.NewLRU[string, Grid](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return s
}

// Grid loads, decodes and downsamples the image at ref.
func (s *ImageScorer) Grid(ctx context.Context, ref string) (Grid, error) {
	data, err := s.loader.Load(ctx, ref)
	if err != nil {
		return Grid{}, err
	}
	return GridFromBytes(data)
}

// CachedGrid is Grid with decoding skipped for bytes the cache has seen.
// The reference is always loaded, so changed or removed files are noticed.
func (s *ImageScorer) CachedGrid(ctx context.Context, ref string) (Grid, error) {
	if s.cache == nil {
		return s.Grid(ctx, ref)
	}
	data, err := s.loader.Load(ctx, ref)
	if err != nil {
		return Grid{}, err
	}

	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])
	if g, ok := s.cache.Get(key); ok {
		gridCacheHits.Inc()
		return g, nil
	}
	gridCacheMisses.Inc()
	g, err := GridFromBytes(data)
	if err != nil {
		return Grid{}, err
	}
	s.cache.Add(key, g)
	return g, nil
}

// Compare scores the images at refs a and b. Only the stored image (b) goes
// through the cache.
func (s *ImageScorer) Compare(ctx context.Context, a, b string) (float64, error) {
	ga, err := s.Grid(ctx, a)
	if err != nil {
		return 0, fmt.Errorf("query image: %w", err)
	}
	return s.CompareTo(ctx, ga, b)
}

// CompareTo scores an already computed query grid against the stored image at ref.
func (s *ImageScorer) CompareTo(ctx context.Context, query Grid, ref string) (float64, error) {
	g, err := s.CachedGrid(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("stored image: %w", err)
	}
	return CompareGrids(query, g), nil
}

// GridFromBytes decodes an encoded image and reduces it to a luminance grid.
func GridFromBytes(data []byte) (Grid, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Grid{}, fmt.Errorf("failed to decode image: %w", err)
	}
	return GridFromImage(img), nil
}

// GridFromImage downsamples img to GridSize x GridSize and converts each cell
// to 8-bit luminance.
func GridFromImage(img image.Image) Grid {
	small := resize.Resize(GridSize, GridSize, img, resize.Bilinear)
	b := small.Bounds()

	var g Grid
	for y := 0; y < GridSize; y++ {
		for x := 0; x < GridSize; x++ {
			gray := color.GrayModel.Convert(small.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			g[y*GridSize+x] = gray.Y
		}
	}
	return g
}

// CompareGrids returns 1 minus the summed absolute luminance difference,
// normalised by the largest possible difference.
func CompareGrids(a, b Grid) float64 {
	var diff int
	for i := range a {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		diff += d
	}
	return clamp(1 - float64(diff)/float64(len(a)*maxLuminance))
}
