package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type ocrEngine struct {
	bin  string
	lang string
}

func newOCREngine(bin, lang string) *ocrEngine {
	if bin == "" {
		bin = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	return &ocrEngine{bin: bin, lang: lang}
}

func (o *ocrEngine) extract(ctx context.Context, path string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, o.bin, path, "stdout", "-l", o.lang)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run %s: %w: %s", o.bin, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
