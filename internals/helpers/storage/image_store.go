package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"callmanager_backend/internals/constants"
)

var (
	ErrImageTooLarge      = errors.New("image exceeds size limit")
	ErrUnsupportedImage   = errors.New("unsupported image format")
	ErrInvalidImage       = errors.New("invalid image payload")
	ErrImageDecodeTimeout = errors.New("image decode timed out")
)

// maxPixels guards against decompression bombs that pass the byte cap.
const maxPixels = 40_000_000

type Options struct {
	Root          string
	MaxBytes      int
	MaxDimension  int
	DecodeTimeout time.Duration
	Quality       float32
}

// ImageStore keeps attendance photos on local disk under
// <root>/attendance/<admin_id>/<user_id>/<yyyymmdd>-<uuid>.webp.
type ImageStore struct {
	opt Options
}

func NewImageStore(opt Options) *ImageStore {
	if opt.MaxBytes <= 0 {
		opt.MaxBytes = 2 << 20
	}
	if opt.MaxDimension <= 0 {
		opt.MaxDimension = 1600
	}
	if opt.DecodeTimeout <= 0 {
		opt.DecodeTimeout = 5 * time.Second
	}
	if opt.Quality <= 0 {
		opt.Quality = 80
	}
	return &ImageStore{opt: opt}
}

// SaveBase64 decodes, validates, re-encodes and writes an image. The returned
// path is relative to the store root.
func (s *ImageStore) SaveBase64(ctx context.Context, adminID, userID uint, payload string) (string, error) {
	raw, err := s.decodePayload(payload)
	if err != nil {
		return "", err
	}

	mt := mimetype.Detect(raw)
	if !constants.IsAcceptedImageMIME(mt.String()) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, mt.String())
	}

	img, err := s.decodeWithTimeout(ctx, raw, mt.String())
	if err != nil {
		return "", err
	}
	img = downscaleIfNeeded(img, s.opt.MaxDimension)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: false, Quality: s.opt.Quality}); err != nil {
		return "", fmt.Errorf("encode webp: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel := GenerateUniqueFilename(UserFolder(adminID, userID), ".webp")
	if err := s.write(rel, buf.Bytes()); err != nil {
		return "", err
	}
	return rel, nil
}

// RemoveUser deletes every stored image of one user.
func (s *ImageStore) RemoveUser(adminID, userID uint) error {
	return os.RemoveAll(filepath.Join(s.opt.Root, filepath.FromSlash(UserFolder(adminID, userID))))
}

// Remove deletes one stored file, ignoring files that are already gone.
func (s *ImageStore) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.opt.Root, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *ImageStore) decodePayload(payload string) ([]byte, error) {
	p := strings.TrimSpace(payload)
	if i := strings.Index(p, ";base64,"); i >= 0 && strings.HasPrefix(p, "data:") {
		p = p[i+len(";base64,"):]
	}
	if p == "" {
		return nil, ErrInvalidImage
	}
	// reject before allocating when the encoded form is already too big
	if base64.StdEncoding.DecodedLen(len(p)) > s.opt.MaxBytes+3 {
		return nil, ErrImageTooLarge
	}

	var raw []byte
	var err error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if raw, err = enc.DecodeString(p); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(raw) > s.opt.MaxBytes {
		return nil, ErrImageTooLarge
	}
	return raw, nil
}

func (s *ImageStore) decodeWithTimeout(ctx context.Context, raw []byte, mime string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opt.DecodeTimeout)
	defer cancel()

	type result struct {
		img image.Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := decodeImage(raw, mime)
		done <- result{img, err}
	}()

	select {
	case r := <-done:
		return r.img, r.err
	case <-ctx.Done():
		return nil, ErrImageDecodeTimeout
	}
}

func decodeImage(raw []byte, mime string) (image.Image, error) {
	if mime == "image/webp" {
		cfg, err := webp.DecodeConfig(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		if cfg.Width*cfg.Height > maxPixels {
			return nil, ErrImageTooLarge
		}
		img, err := webp.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		return img, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, ErrImageTooLarge
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

func downscaleIfNeeded(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return src
	}
	return imaging.Fit(src, maxDim, maxDim, imaging.CatmullRom)
}

// write goes through a temp file so a crash never leaves a half written image.
func (s *ImageStore) write(rel string, data []byte) error {
	full := filepath.Join(s.opt.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

func UserFolder(adminID, userID uint) string {
	return path.Join("attendance", strconv.FormatUint(uint64(adminID), 10), strconv.FormatUint(uint64(userID), 10))
}

// GenerateUniqueFilename returns folder/<yyyymmdd>-<uuid><ext>.
func GenerateUniqueFilename(folder, ext string) string {
	return fmt.Sprintf("%s/%s-%s%s", folder, time.Now().UTC().Format("20060102"), uuid.NewString(), ext)
}
