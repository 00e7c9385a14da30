package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

type Kind string

const (
	KindPDF   Kind = "pdf"
	KindWord  Kind = "word"
	KindImage Kind = "image"
)

var kindByExt = map[string]Kind{
	".pdf":  KindPDF,
	".docx": KindWord,
	".doc":  KindWord,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
}

// KindForKey classifies a storage key or file name by its extension,
// case-insensitively.
func KindForKey(key string) (Kind, bool) {
	kind, ok := kindByExt[strings.ToLower(filepath.Ext(key))]
	return kind, ok
}

type Extractor interface {
	Extract(ctx context.Context, kind Kind, path string) (string, error)
}

type Config struct {
	TesseractPath string
	OCRLanguage   string
}

type extractor struct {
	ocr *ocrEngine
}

func New(cfg Config) Extractor {
	return &extractor{ocr: newOCREngine(cfg.TesseractPath, cfg.OCRLanguage)}
}

func (e *extractor) Extract(ctx context.Context, kind Kind, path string) (string, error) {
	switch kind {
	case KindPDF:
		return extractPDF(path)
	case KindWord:
		return extractDocx(path)
	case KindImage:
		return e.ocr.extract(ctx, path)
	default:
		return "", fmt.Errorf("unsupported kind: %s", kind)
	}
}
