package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// PopplerRenderer renders first-page PNG thumbnails by shelling out to
// pdftoppm from poppler-utils.
type PopplerRenderer struct {
	binPath string
	width   int
}

func NewPopplerRenderer() *PopplerRenderer {
	path, _ := exec.LookPath("pdftoppm")
	if path == "" {
		path = "pdftoppm"
	}
	return &PopplerRenderer{binPath: path, width: 320}
}

// IsAvailable reports whether the renderer binary can run at all.
func (r *PopplerRenderer) IsAvailable() bool {
	return exec.Command(r.binPath, "-v").Run() == nil
}

func (r *PopplerRenderer) RenderThumbnail(ctx context.Context, filePath string) ([]byte, error) {
	outDir, err := os.MkdirTemp("", "thumb-*")
	if err != nil {
		return nil, fmt.Errorf("create thumbnail dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	prefix := filepath.Join(outDir, "page")
	cmd := exec.CommandContext(ctx, r.binPath,
		"-png", "-singlefile", "-f", "1", "-l", "1",
		"-scale-to-x", fmt.Sprint(r.width), "-scale-to-y", "-1",
		filePath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, out)
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("read rendered thumbnail: %w", err)
	}
	return data, nil
}
